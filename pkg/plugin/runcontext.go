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

package plugin

import "sync/atomic"

// RunContext carries the control state of one diagnostic run. It is handed
// to every check so that both the host and the checks themselves can request
// an orderly stop, and so checks can observe a module pause, without any
// party reaching into global state.
type RunContext struct {
	stop   atomic.Bool
	paused func() bool
}

// NewRunContext returns a context for a fresh run. paused reports the
// owning module's pause state; nil means never paused.
func NewRunContext(paused func() bool) *RunContext {
	return &RunContext{paused: paused}
}

// ShouldStop reports whether a stop has been requested. Checks poll this
// between units of work.
func (rc *RunContext) ShouldStop() bool {
	return rc.stop.Load()
}

// RequestStop asks the run to wind down. It is idempotent and safe to call
// from any goroutine; a check calls it when it detects a condition that
// makes continuing the run unsafe.
func (rc *RunContext) RequestStop() {
	rc.stop.Store(true)
}

// IsPaused reports whether the owning module is paused.
func (rc *RunContext) IsPaused() bool {
	if rc.paused == nil {
		return false
	}
	return rc.paused()
}
