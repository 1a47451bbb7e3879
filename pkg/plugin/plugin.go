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

import (
	"context"
	"log/slog"
	"time"

	"github.com/NVIDIA/gpu-diagd/pkg/telemetry"
)

// InterfaceVersion is the plugin contract version this host implements.
// Register refuses plugins reporting any other version.
const InterfaceVersion uint = 5

// Collection bounds. Plugins exceeding a bound either signal continuation
// (custom stats, via MoreStats) or have the excess rejected by the host.
const (
	MaxTestsPerPlugin      = 6
	MaxParametersPerPlugin = 64
	MaxStatFieldIDs        = 96
	MaxCustomStats         = 2048
	MaxValuesPerStat       = 128
	MaxErrors              = 128
	MaxInfo                = 128
)

// AllGpus marks a result or error that applies to every GPU in the run, or
// that cannot be attributed to a single device.
const AllGpus int32 = -1

// Per-entity test outcomes, ordered by increasing badness.
const (
	ResultPass uint32 = iota
	ResultSkip
	ResultWarn
	ResultFail
)

// GPU entity statuses. Fake GPUs are injected for testing; checks that need
// live hardware short-circuit when the run targets them.
const (
	GpuStatusUnknown uint = iota
	GpuStatusOK
	GpuStatusFake
)

// ParamType is the declared type of a test parameter.
type ParamType uint8

const (
	ParamTypeNone ParamType = iota
	ParamTypeBool
	ParamTypeInt
	ParamTypeDouble
	ParamTypeString
)

// ParameterInfo describes one parameter a test accepts.
type ParameterInfo struct {
	Name string
	Type ParamType
}

// TestInfo describes one test a plugin implements.
type TestInfo struct {
	Name        string
	Description string
	TestGroups  []string
	Parameters  []ParameterInfo

	// TargetEntityGroup is the entity class the test runs against. The
	// software checks target GPUs; future plugins may target switches.
	TargetEntityGroup uint
}

// Info is the descriptor a plugin returns before initialization. The host
// uses it to route test names to plugins and to surface capabilities.
type Info struct {
	Name        string
	Description string
	Tests       []TestInfo
}

// TestParameter is one resolved parameter passed to RunTest.
type TestParameter struct {
	Name string
	Type ParamType
	Bool bool
	Int  int64
	Dbl  float64
	Str  string
}

// Value is one sample inside a custom stat series.
type Value struct {
	Timestamp int64
	Type      ParamType
	Int       int64
	Dbl       float64
	Str       string
	Bool      bool
}

// CustomStat is a named per-entity series of observed values.
type CustomStat struct {
	Name   string
	GpuID  int32
	Values []Value
}

// CustomStats is one retrieval batch. MoreStats tells the host to call
// RetrieveCustomStats again for the same test; a plugin never drops samples
// to fit the batch bound.
type CustomStats struct {
	Stats     []CustomStat
	MoreStats bool
}

// Error is one diagnostic failure a test observed. GpuID is AllGpus when the
// failure is not attributable to a single device.
type Error struct {
	GpuID     int32
	Code      uint32
	Category  uint32
	Severity  uint32
	Message   string
	NextSteps string
}

// Info entries are free-form per-entity observations that are not failures.
type InfoMessage struct {
	GpuID   int32
	Message string
}

// Result is the per-entity outcome of a test run.
type Result struct {
	GpuID  int32
	Result uint32
}

// Results is the full outcome of one test run.
type Results struct {
	Results []Result
	Errors  []Error
	Info    []InfoMessage

	// AuxData carries optional structured JSON output for response
	// versions that support it.
	AuxData []byte
}

// GpuAttributes are the static device properties checks consult.
type GpuAttributes struct {
	PersistenceModeEnabled bool
	VirtualizationMode     uint
	PCIBusID               string
	DeviceName             string
}

// GpuInfo identifies one GPU visible to a run.
type GpuInfo struct {
	ID         uint
	Status     uint
	Attributes GpuAttributes
}

// InitEnv is everything a plugin instance may touch. Plugins hold no global
// state; all host access flows through these handles.
type InitEnv struct {
	Gpus   []GpuInfo
	Fields telemetry.FieldReader
	Logger *slog.Logger

	// DriverVersion is the installed driver version string, empty when
	// unknown (fake-GPU runs).
	DriverVersion string
}

// Plugin is the registration-time contract. Implementations must be safe to
// describe before Init and must return a fresh Instance per Init call.
type Plugin interface {
	// InterfaceVersion reports the contract version the plugin was built
	// against. It is checked once, at registration.
	InterfaceVersion() uint

	// Info describes the plugin's tests. hostVersion is the version the
	// host speaks, for plugins that want to degrade capabilities.
	Info(hostVersion uint) (*Info, error)

	// Init creates a per-run instance. The returned field IDs are the
	// telemetry fields the host should watch on the plugin's behalf.
	// Init must honor ctx cancellation; the host bounds it with a timeout.
	Init(ctx context.Context, env InitEnv) (Instance, []telemetry.FieldID, error)
}

// Instance is one initialized plugin run. Methods are called sequentially by
// the manager; implementations need not be safe for concurrent use.
type Instance interface {
	// RunTest executes the named test. It polls rc.ShouldStop and returns
	// early when a stop is requested; partial results stay retrievable.
	RunTest(rc *RunContext, testName string, timeout time.Duration, params []TestParameter) error

	// RetrieveCustomStats drains collected stats in bounded batches.
	RetrieveCustomStats(testName string) (*CustomStats, error)

	// RetrieveResults returns the outcome of a completed (or stopped) test.
	RetrieveResults(testName string) (*Results, error)

	// Shutdown releases instance resources. The instance is unusable after.
	Shutdown() error
}
