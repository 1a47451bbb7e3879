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

// Package diag hosts the diagnostic module: the command dispatcher, the
// version-bound response wrapper, and the manager that drives registered
// plugins through a run.
//
// The dispatcher accepts commands in any supported wire generation,
// normalizes run requests to the canonical shape, and answers in the
// response layout paired with the caller's request version. Core-control
// commands (log severity, pause/resume) act on process-wide state and never
// touch a run. Pause gates new runs only; stop is honored at any time.
package diag
