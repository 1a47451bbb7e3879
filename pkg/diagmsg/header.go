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

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/NVIDIA/gpu-diagd/pkg/errors"
)

// ModuleID identifies the module a command is addressed to.
type ModuleID uint32

const (
	// ModuleIDCore is the core-control namespace. Commands addressed to it
	// adjust process-wide state (log severity, pause/resume) and never touch
	// a diagnostic run.
	ModuleIDCore ModuleID = 0
	// ModuleIDDiag is the diagnostic module.
	ModuleIDDiag ModuleID = 5
)

// SubCommand identifies the operation within a module namespace.
type SubCommand uint32

// Core-control subcommands.
const (
	CoreSubCmdLoggingChanged SubCommand = 1
	CoreSubCmdPauseResume    SubCommand = 2
)

// Diagnostic subcommands.
const (
	DiagSubCmdRun  SubCommand = 1
	DiagSubCmdStop SubCommand = 2
)

// Run request wire versions. Each generation only ever adds fields, so the
// upgrade path to the latest is a pure field copy.
const (
	RunVersion5 uint32 = 5
	RunVersion6 uint32 = 6
	RunVersion7 uint32 = 7
	RunVersion8 uint32 = 8
	RunVersion9 uint32 = 9

	// RunVersionLatest is the canonical in-memory generation every supported
	// envelope is upgraded to.
	RunVersionLatest = RunVersion9
)

// Versions of the auxiliary message payloads.
const (
	StopVersion1           uint32 = 1
	LoggingChangedVersion1 uint32 = 1
	PauseResumeVersion1    uint32 = 1
)

// RunVersionName returns a printable name for a run request version tag.
func RunVersionName(v uint32) string {
	return fmt.Sprintf("v%d", v)
}

// CommandHeader precedes every command payload and is all the dispatcher
// needs to route: target module, subcommand, declared payload version, and
// the identity of the submitting connection.
type CommandHeader struct {
	ModuleID     ModuleID   `cbor:"moduleId"`
	SubCommand   SubCommand `cbor:"subCommand"`
	Version      uint32     `cbor:"version"`
	ConnectionID string     `cbor:"connectionId,omitempty"`
}

// Command is a decoded frame: a header plus the still-raw payload. The
// payload is only decoded once the header's version has selected a concrete
// envelope shape.
type Command struct {
	Header  CommandHeader   `cbor:"header"`
	Payload cbor.RawMessage `cbor:"payload,omitempty"`
}

// Reply is the daemon's answer to a command: the echoed header, a wire
// status code, an optional human-readable message, and the response payload
// serialized in the caller's response-wire-version.
type Reply struct {
	Header  CommandHeader    `cbor:"header"`
	Status  errors.ErrorCode `cbor:"status"`
	Message string           `cbor:"message,omitempty"`
	Payload cbor.RawMessage  `cbor:"payload,omitempty"`
}

// CheckVersion verifies the declared header version against what the
// selected processing path expects. The double check (routing already
// switched on the version) guards against a payload being routed through
// the wrong path after future refactors.
func CheckVersion(hdr *CommandHeader, expected uint32) error {
	if hdr == nil {
		return errors.New(errors.ErrCodeBadParameter, "nil command header")
	}
	if hdr.Version != expected {
		return errors.NewWithContext(errors.ErrCodeVersionMismatch, "unexpected message version",
			map[string]any{"received": hdr.Version, "expected": expected})
	}
	return nil
}
