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

// Package logging provides structured logging utilities for the GPU
// diagnostic daemon and its plugins.
//
// It wraps the standard library slog package with daemon-specific defaults:
// JSON output to stderr, module/version context injection, source location
// tracking for debug logs, and LOG_LEVEL environment configuration.
//
// The daemon changes log severity at runtime when it receives a
// logging-severity-changed core command; SetLevel applies the new severity to
// every logger created by this package.
//
// Usage:
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("gpudiagd", version)
//
//	    slog.Info("daemon starting", "socket", cfg.SocketPath)
//	    slog.Debug("detailed state", "request", req)
//	    slog.Error("run failed", "error", err)
//	}
//
// The LOG_LEVEL environment variable controls verbosity (DEBUG, INFO, WARN,
// ERROR, case-insensitive); INFO is the default.
package logging
