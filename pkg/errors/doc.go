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

// Package errors provides structured error types shared by the diagnostic
// module, the wire protocol, and the plugin host.
//
// Every error carries a machine-readable ErrorCode that doubles as the wire
// status in command replies. Structural errors (version mismatch, bad
// parameter, unknown subcommand) are fatal to the request that produced them;
// per-check collaborator failures are recorded against the affected GPU and
// the run continues.
package errors
