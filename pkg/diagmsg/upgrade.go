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
	"github.com/fxamacker/cbor/v2"

	"github.com/NVIDIA/gpu-diagd/pkg/errors"
)

// An upgrader decodes one wire generation and produces the canonical
// request. The mapping from version tag to upgrader is the single place a
// new generation has to be registered.
type upgrader func(payload cbor.RawMessage) (*RunRequest, error)

var upgraders = map[uint32]upgrader{
	RunVersion5: func(p cbor.RawMessage) (*RunRequest, error) {
		var env RunRequestV5
		if err := decodePayload(p, &env); err != nil {
			return nil, err
		}
		return UpgradeV5(&env), nil
	},
	RunVersion6: func(p cbor.RawMessage) (*RunRequest, error) {
		var env RunRequestV6
		if err := decodePayload(p, &env); err != nil {
			return nil, err
		}
		return UpgradeV6(&env), nil
	},
	RunVersion7: func(p cbor.RawMessage) (*RunRequest, error) {
		var env RunRequestV7
		if err := decodePayload(p, &env); err != nil {
			return nil, err
		}
		return UpgradeV7(&env), nil
	},
	RunVersion8: func(p cbor.RawMessage) (*RunRequest, error) {
		var env RunRequestV8
		if err := decodePayload(p, &env); err != nil {
			return nil, err
		}
		return UpgradeV8(&env), nil
	},
	RunVersion9: func(p cbor.RawMessage) (*RunRequest, error) {
		var env RunRequest
		if err := decodePayload(p, &env); err != nil {
			return nil, err
		}
		return UpgradeV9(&env), nil
	},
}

// SupportedRunVersion reports whether version names a known run request
// generation.
func SupportedRunVersion(version uint32) bool {
	_, ok := upgraders[version]
	return ok
}

// UpgradeEnvelope decodes the payload according to its declared version and
// upgrades it to the canonical request. Any version without a registered
// upgrader is a hard version mismatch, never silently accepted.
func UpgradeEnvelope(version uint32, payload cbor.RawMessage) (*RunRequest, error) {
	up, ok := upgraders[version]
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeVersionMismatch,
			"unsupported run request version",
			map[string]any{"received": version, "expected": RunVersionLatest})
	}
	return up(payload)
}

// copyBase copies the fields shared by every generation. Scalars copy as-is;
// bounded buffers copy capacity-aware so a too-long source value can never
// overflow its destination.
func copyBase(dst *RunRequest, src *RunRequestV5) {
	dst.Flags = src.Flags
	dst.DebugLevel = src.DebugLevel
	dst.GroupID = src.GroupID
	dst.Validate = src.Validate
	dst.TestNames = SafeCopyStrings(src.TestNames, MaxTestNames, TestNameLen)
	dst.TestParms = SafeCopyStrings(src.TestParms, MaxTestParms, TestParmLen)
	dst.FakeGpuList = SafeCopy(src.FakeGpuList, GpuListLen)
	dst.GpuList = SafeCopy(src.GpuList, GpuListLen)
	dst.DebugLogFile = SafeCopy(src.DebugLogFile, PathLen)
	dst.StatsPath = SafeCopy(src.StatsPath, PathLen)
	dst.ConfigFileContents = SafeCopy(src.ConfigFileContents, ConfigFileLen)
	dst.ThrottleMask = SafeCopy(src.ThrottleMask, ThrottleMaskLen)
	dst.PluginPath = SafeCopy(src.PluginPath, PluginPathLen)
}

// UpgradeV5 produces the canonical request from a version 5 envelope.
// Fields added after version 5 stay at their zero values.
func UpgradeV5(src *RunRequestV5) *RunRequest {
	var dst RunRequest
	copyBase(&dst, src)
	return &dst
}

// UpgradeV6 produces the canonical request from a version 6 envelope.
func UpgradeV6(src *RunRequestV6) *RunRequest {
	dst := UpgradeV5(&src.RunRequestV5)
	dst.CurrentIteration = src.CurrentIteration
	dst.TotalIterations = src.TotalIterations
	return dst
}

// UpgradeV7 produces the canonical request from a version 7 envelope.
func UpgradeV7(src *RunRequestV7) *RunRequest {
	dst := UpgradeV6(&src.RunRequestV6)
	dst.TimeoutSeconds = src.TimeoutSeconds
	return dst
}

// UpgradeV8 produces the canonical request from a version 8 envelope.
func UpgradeV8(src *RunRequestV8) *RunRequest {
	dst := UpgradeV7(&src.RunRequestV7)
	dst.FailCheckInterval = src.FailCheckInterval
	return dst
}

// UpgradeV9 copies an already-canonical request into its own shape. The
// copy keeps upgrade semantics uniform across versions and is a fixed point
// for any input that respects the field capacities.
func UpgradeV9(src *RunRequest) *RunRequest {
	dst := UpgradeV8(&src.RunRequestV8)
	dst.EntityIDs = SafeCopy(src.EntityIDs, EntityListLen)
	dst.WatchFrequency = src.WatchFrequency
	return dst
}

func decodePayload(p cbor.RawMessage, v any) error {
	if len(p) == 0 {
		return errors.New(errors.ErrCodeBadParameter, "empty run request payload")
	}
	if err := cbor.Unmarshal(p, v); err != nil {
		return errors.Wrap(errors.ErrCodeBadParameter, "malformed run request payload", err)
	}
	return nil
}
