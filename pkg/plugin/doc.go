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

// Package plugin defines the versioned contract between the diagnostic
// manager and its check plugins.
//
// A plugin registers with the Registry, which negotiates the interface
// version before handing out a usable handle: a plugin built against a
// different InterfaceVersion is refused outright and never invoked. The
// lifecycle is Init (host-enforced timeout) -> RunTest -> RetrieveCustomStats
// (repeated while MoreStats is set) -> RetrieveResults -> Shutdown. Init
// returns a typed Instance that owns all per-run plugin state.
//
// All result collections are bounded. A plugin with more custom stats than
// fit in one batch signals continuation through MoreStats instead of
// dropping data.
package plugin
