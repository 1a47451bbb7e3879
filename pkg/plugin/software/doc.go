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

// Package software implements the software deployment checks plugin.
//
// It verifies the host environment rather than exercising the GPUs: device
// node permissions, denylisted kernel drivers, presence of the NVML and CUDA
// libraries, persistence mode, hostile CUDA environment variables, running
// graphics processes, page retirement and row remapping state, and inforom
// validity. The check to run is selected with the do_test parameter.
//
// Page retirement and row remapping failures make continuing a diagnostic
// pointless or unsafe, so those checks request a run-wide stop. Failures to
// read telemetry are recorded against the affected GPU and the run continues.
package software
