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

// Package telemetry defines the boundary to the GPU telemetry subsystem.
//
// Diagnostic checks read live hardware state (page retirements, row remaps,
// inforom validity, running process lists) through the FieldReader interface.
// The daemon wires in a real reader backed by the telemetry stack; tests use
// FakeReader. Values can be blank: the telemetry subsystem reports a
// dedicated sentinel when a field has no data, which checks must treat as
// "skip" rather than zero.
package telemetry
