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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Every fixed-capacity field filled to exactly capacity with no terminator
// must come out of Sanitize terminated within capacity.
func TestSanitizeTerminatesFullBuffers(t *testing.T) {
	fill := func(n int) []byte { return bytes.Repeat([]byte{'z'}, n) }

	req := &RunRequest{
		RunRequestV8: RunRequestV8{
			RunRequestV7: RunRequestV7{
				RunRequestV6: RunRequestV6{
					RunRequestV5: RunRequestV5{
						TestNames:          [][]byte{fill(TestNameLen)},
						TestParms:          [][]byte{fill(TestParmLen)},
						FakeGpuList:        fill(GpuListLen),
						GpuList:            fill(GpuListLen),
						DebugLogFile:       fill(PathLen),
						StatsPath:          fill(PathLen),
						ConfigFileContents: fill(ConfigFileLen),
						ThrottleMask:       fill(ThrottleMaskLen),
						PluginPath:         fill(PluginPathLen),
					},
				},
			},
		},
		EntityIDs: fill(EntityListLen),
	}

	Sanitize(req)

	checks := []struct {
		name     string
		buf      []byte
		capacity int
	}{
		{"fakeGpuList", req.FakeGpuList, GpuListLen},
		{"gpuList", req.GpuList, GpuListLen},
		{"debugLogFile", req.DebugLogFile, PathLen},
		{"statsPath", req.StatsPath, PathLen},
		{"configFileContents", req.ConfigFileContents, ConfigFileLen},
		{"throttleMask", req.ThrottleMask, ThrottleMaskLen},
		{"pluginPath", req.PluginPath, PluginPathLen},
		{"entityIds", req.EntityIDs, EntityListLen},
		{"testNames[0]", req.TestNames[0], TestNameLen},
		{"testParms[0]", req.TestParms[0], TestParmLen},
	}

	for _, c := range checks {
		assert.True(t, Terminated(c.buf, c.capacity), "%s not terminated", c.name)
		assert.LessOrEqual(t, len(CString(c.buf)), c.capacity-1, "%s string too long", c.name)
	}
}

func TestSanitizeLeavesShortBuffersAlone(t *testing.T) {
	req := &RunRequest{}
	req.GpuList = []byte("0,1")
	req.TestNames = [][]byte{[]byte("software")}

	Sanitize(req)

	assert.Equal(t, "0,1", CString(req.GpuList))
	assert.Equal(t, "software", CString(req.TestNames[0]))
}

func TestSanitizeNilRequest(t *testing.T) {
	assert.NotPanics(t, func() { Sanitize(nil) })
}
