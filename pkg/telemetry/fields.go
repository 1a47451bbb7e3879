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

package telemetry

// FieldID identifies one telemetry field.
type FieldID uint16

// Fields consumed by the software environment checks.
const (
	FieldGraphicsPIDs             FieldID = 220
	FieldRetiredPagesSBE          FieldID = 390
	FieldRetiredPagesDBE          FieldID = 391
	FieldRetiredPagesPending      FieldID = 392
	FieldECCDBEVolTotal           FieldID = 395
	FieldRowRemapFailure          FieldID = 396
	FieldRowRemapPending          FieldID = 397
	FieldUncorrectableRemappedRows FieldID = 398
	FieldInforomConfigValid       FieldID = 403
)

// Flags for GetCurrentFieldValue.
const (
	// FlagLiveData bypasses the telemetry cache and reads from hardware.
	// Fake GPUs do not support live reads; callers pass 0 for them.
	FlagLiveData uint = 1 << 0
)

// Per-read statuses reported inside a FieldValue.
const (
	StatusOK           int32 = 0
	StatusNotSupported int32 = -6
)

// Int64Blank is the sentinel the telemetry subsystem stores when an int64
// field has no data. Values at or above it are blank variants.
const Int64Blank int64 = 0x7ffffffffffffff0

// IsInt64Blank reports whether v is a blank sentinel rather than a reading.
func IsInt64Blank(v int64) bool {
	return v >= Int64Blank
}

// ValueType describes the payload of a FieldValue.
type ValueType uint8

const (
	ValueTypeInt64 ValueType = iota
	ValueTypeDouble
	ValueTypeString
	ValueTypeBlob
)

// FieldValue is one reading returned by the telemetry subsystem. Status is
// the subsystem's own result for the read; a non-zero status means the value
// payload must not be trusted.
type FieldValue struct {
	FieldID   FieldID
	Status    int32
	Type      ValueType
	Timestamp int64

	Int64  int64
	Double float64
	Str    string
	Blob   []byte
}
