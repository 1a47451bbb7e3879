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

// Package cli implements the command-line interface for the GPU diagnostic
// daemon.
//
// # Commands
//
// serve - run the daemon:
//
//	gpudiagd serve [--config /etc/gpudiagd.yaml]
//
// Opens the command socket, discovers the GPU inventory and serves
// diagnostic commands until SIGINT/SIGTERM.
//
// run - run diagnostics against a live daemon:
//
//	gpudiagd run [--gpus 0,1] [--test software] [-p software.require_persistence=false]
//
// Submits a run request over the command socket and renders the response.
// Output defaults to stdout in YAML format; --format json|yaml|table and
// --output FILE select other destinations.
//
// stop - cooperatively stop the active run:
//
//	gpudiagd stop
//
// pause / resume - toggle the daemon's pause gate, for handing the GPUs to
// an external exclusive-access diagnostic:
//
//	gpudiagd pause
//	gpudiagd resume
//
// version - show build information.
package cli
