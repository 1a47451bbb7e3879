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

// Buffer capacities for the fixed-size fields of a run request. These bound
// what any client generation may submit and what the canonical request will
// hold after upgrade.
const (
	// GpuListLen bounds the comma-separated GPU id lists (real and fake).
	GpuListLen = 256
	// PathLen bounds the debug log file and stats output paths.
	PathLen = 128
	// ConfigFileLen bounds the embedded config file contents.
	ConfigFileLen = 1024
	// ThrottleMaskLen bounds the throttle reason mask bytes.
	ThrottleMaskLen = 50
	// PluginPathLen bounds the plugin search path.
	PluginPathLen = 2048
	// EntityListLen bounds the entity id list introduced in version 9.
	EntityListLen = 256

	// MaxTestNames is the fixed size of the test name array.
	MaxTestNames = 20
	// TestNameLen bounds each test name.
	TestNameLen = 50
	// MaxTestParms is the fixed size of the test parameter array.
	MaxTestParms = 100
	// TestParmLen bounds each "test.parameter=value" entry.
	TestParmLen = 100
)

// Run request flags.
const (
	// RunFlagVerbose requests verbose plugin output.
	RunFlagVerbose uint32 = 1 << 0
	// RunFlagStatsOnFail writes the stats file only when a test fails.
	RunFlagStatsOnFail uint32 = 1 << 1
	// RunFlagFailEarly enables fail-early checks at FailCheckInterval.
	RunFlagFailEarly uint32 = 1 << 2
	// RunFlagFakeGpus selects the fake GPU id list instead of the real one.
	RunFlagFakeGpus uint32 = 1 << 3
)

// RunRequestV5 is the oldest supported run request generation.
type RunRequestV5 struct {
	Flags              uint32   `cbor:"flags"`
	DebugLevel         uint32   `cbor:"debugLevel"`
	GroupID            uint32   `cbor:"groupId"`
	Validate           uint32   `cbor:"validate"`
	TestNames          [][]byte `cbor:"testNames,omitempty"`
	TestParms          [][]byte `cbor:"testParms,omitempty"`
	FakeGpuList        []byte   `cbor:"fakeGpuList,omitempty"`
	GpuList            []byte   `cbor:"gpuList,omitempty"`
	DebugLogFile       []byte   `cbor:"debugLogFile,omitempty"`
	StatsPath          []byte   `cbor:"statsPath,omitempty"`
	ConfigFileContents []byte   `cbor:"configFileContents,omitempty"`
	ThrottleMask       []byte   `cbor:"throttleMask,omitempty"`
	PluginPath         []byte   `cbor:"pluginPath,omitempty"`
}

// RunRequestV6 added iteration tracking.
type RunRequestV6 struct {
	RunRequestV5
	CurrentIteration uint32 `cbor:"currentIteration"`
	TotalIterations  uint32 `cbor:"totalIterations"`
}

// RunRequestV7 added a per-run timeout.
type RunRequestV7 struct {
	RunRequestV6
	TimeoutSeconds uint32 `cbor:"timeoutSeconds"`
}

// RunRequestV8 added the fail-early check interval.
type RunRequestV8 struct {
	RunRequestV7
	FailCheckInterval uint32 `cbor:"failCheckInterval"`
}

// RunRequest is the canonical, latest-generation request every supported
// envelope upgrades to. Version 9 added entity selection and a watch
// frequency. Because generations are strict supersets, this is also the
// version 9 wire shape.
type RunRequest struct {
	RunRequestV8
	EntityIDs      []byte `cbor:"entityIds,omitempty"`
	WatchFrequency uint32 `cbor:"watchFrequency"`
}

// RunRequestV9 is the canonical request's wire alias.
type RunRequestV9 = RunRequest

// StopRequest asks the module to halt the active run cooperatively. It
// carries no payload beyond its version.
type StopRequest struct {
	Version uint32 `cbor:"version"`
}

// LoggingChanged is the core-control notification that the process log
// severity changed.
type LoggingChanged struct {
	Version  uint32 `cbor:"version"`
	Severity string `cbor:"severity"`
}

// PauseResume is the core-control pause gate toggle. Pause exists so an
// external exclusive-access diagnostic can run without interference; stop
// commands remain allowed while paused.
type PauseResume struct {
	Version uint32 `cbor:"version"`
	Pause   bool   `cbor:"pause"`
}
