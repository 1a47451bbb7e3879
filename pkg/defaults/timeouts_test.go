// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package defaults

import "testing"

// Nested timeouts must leave room for the enclosing operation to report
// the failure instead of being cut off together with it.
func TestTimeoutOrdering(t *testing.T) {
	if PluginShutdownTimeout >= PluginInitTimeout {
		t.Fatalf("plugin shutdown timeout %v should be shorter than init timeout %v",
			PluginShutdownTimeout, PluginInitTimeout)
	}
	if FailCheckInterval >= TestRunTimeout {
		t.Fatalf("fail check interval %v should be shorter than the test run timeout %v",
			FailCheckInterval, TestRunTimeout)
	}
	if MetricsReadHeaderTimeout >= ServerReadTimeout {
		t.Fatalf("metrics header timeout %v should be shorter than server read timeout %v",
			MetricsReadHeaderTimeout, ServerReadTimeout)
	}
}
