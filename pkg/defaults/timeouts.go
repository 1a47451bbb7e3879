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

import "time"

// Plugin host timeouts.
const (
	// PluginInitTimeout bounds plugin initialization. A plugin exceeding it
	// is reported as an initialization failure, not a crash.
	PluginInitTimeout = 10 * time.Second

	// PluginShutdownTimeout bounds plugin shutdown during run teardown.
	PluginShutdownTimeout = 5 * time.Second

	// TestRunTimeout is the fallback per-test timeout when the run request
	// does not carry one.
	TestRunTimeout = 10 * time.Minute
)

// Diagnostic run defaults.
const (
	// FailCheckInterval is how often a running test re-evaluates fail-early
	// conditions when the request does not specify an interval.
	FailCheckInterval = 5 * time.Second

	// SystemdQueryTimeout bounds the persistence-daemon unit state query.
	SystemdQueryTimeout = 5 * time.Second
)

// Server timeouts for the command socket and metrics sidecar.
const (
	// ServerReadTimeout is the maximum duration for reading a command frame.
	ServerReadTimeout = 30 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a reply frame.
	ServerWriteTimeout = 30 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second

	// MetricsReadHeaderTimeout prevents slow header attacks on the
	// metrics sidecar.
	MetricsReadHeaderTimeout = 5 * time.Second

	// ClientDialTimeout bounds CLI connections to the daemon socket.
	ClientDialTimeout = 5 * time.Second
)
