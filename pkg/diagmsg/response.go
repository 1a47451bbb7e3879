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

package diagmsg

// Result is a per-GPU diagnostic outcome.
type Result uint32

const (
	ResultPass Result = iota
	ResultSkip
	ResultWarn
	ResultFail
)

// String returns the lowercase outcome name.
func (r Result) String() string {
	switch r {
	case ResultPass:
		return "pass"
	case ResultSkip:
		return "skip"
	case ResultWarn:
		return "warn"
	case ResultFail:
		return "fail"
	default:
		return "unknown"
	}
}

// AllGpus addresses every GPU in the run; it is also the GPU id recorded for
// errors that cannot be attributed to a specific device.
const AllGpus int32 = -1

// MaxNumDevices is the most GPUs a single response can carry results for.
const MaxNumDevices = 32

// Bounded list capacities of the response layouts. Versions 7 and 8 carry
// the legacy limits; versions 9 and 10 doubled them.
const (
	MaxErrorsLegacy = 64
	MaxInfoLegacy   = 64
	MaxErrors       = 128
	MaxInfo         = 128
)

// SimpleResult is one GPU's outcome.
type SimpleResult struct {
	GpuID  int32  `cbor:"gpuId"`
	Result Result `cbor:"result"`
}

// ErrorDetail is one structured error entry: a machine-readable code, the
// affected GPU (or AllGpus), a human message, and suggested remediation.
type ErrorDetail struct {
	GpuID     int32  `cbor:"gpuId"`
	Code      uint32 `cbor:"code"`
	Message   string `cbor:"message"`
	NextSteps string `cbor:"nextSteps,omitempty"`
}

// AuxDataType tags the optional auxiliary payload of a version 10 response.
type AuxDataType uint32

const (
	// AuxDataNone marks an absent auxiliary payload.
	AuxDataNone AuxDataType = iota
	// AuxDataJSON marks a blob that can be parsed as JSON. The caller must
	// know upfront how to interpret it.
	AuxDataJSON
)

// AuxData is an opaque typed payload a plugin can hand back alongside its
// results.
type AuxData struct {
	Type AuxDataType `cbor:"type"`
	Data []byte      `cbor:"data,omitempty"`
}

// Response wire versions.
const (
	ResponseVersion7  uint32 = 7
	ResponseVersion8  uint32 = 8
	ResponseVersion9  uint32 = 9
	ResponseVersion10 uint32 = 10
)

// ResponseV7 is the response layout paired with version 5 run requests.
type ResponseV7 struct {
	Version uint32         `cbor:"version"`
	Results []SimpleResult `cbor:"results,omitempty"`
	Errors  []ErrorDetail  `cbor:"errors,omitempty"`
	Info    []string       `cbor:"info,omitempty"`
}

// ResponseV8 added the driver version string; paired with version 6 runs.
type ResponseV8 struct {
	Version       uint32         `cbor:"version"`
	DriverVersion string         `cbor:"driverVersion,omitempty"`
	Results       []SimpleResult `cbor:"results,omitempty"`
	Errors        []ErrorDetail  `cbor:"errors,omitempty"`
	Info          []string       `cbor:"info,omitempty"`
}

// ResponseV9 doubled the bounded list capacities; paired with version 7 runs.
type ResponseV9 struct {
	Version       uint32         `cbor:"version"`
	DriverVersion string         `cbor:"driverVersion,omitempty"`
	Results       []SimpleResult `cbor:"results,omitempty"`
	Errors        []ErrorDetail  `cbor:"errors,omitempty"`
	Info          []string       `cbor:"info,omitempty"`
}

// ResponseV10 added the auxiliary payload; paired with version 8 and 9 runs.
type ResponseV10 struct {
	Version       uint32         `cbor:"version"`
	DriverVersion string         `cbor:"driverVersion,omitempty"`
	Results       []SimpleResult `cbor:"results,omitempty"`
	Errors        []ErrorDetail  `cbor:"errors,omitempty"`
	Info          []string       `cbor:"info,omitempty"`
	AuxData       *AuxData       `cbor:"auxData,omitempty"`
}

// ResponseVersionFor returns the response wire version a given run request
// generation expects its results in.
func ResponseVersionFor(runVersion uint32) (uint32, bool) {
	switch runVersion {
	case RunVersion5:
		return ResponseVersion7, true
	case RunVersion6:
		return ResponseVersion8, true
	case RunVersion7:
		return ResponseVersion9, true
	case RunVersion8, RunVersion9:
		return ResponseVersion10, true
	default:
		return 0, false
	}
}
