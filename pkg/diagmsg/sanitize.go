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

// Sanitize forces a terminator onto every fixed-capacity buffer field of the
// canonical request. The upgrade source may have been populated by an
// external, less trusted writer; no field may be read downstream before this
// pass runs.
func Sanitize(req *RunRequest) {
	if req == nil {
		return
	}

	req.FakeGpuList = Terminate(req.FakeGpuList, GpuListLen)
	req.GpuList = Terminate(req.GpuList, GpuListLen)
	req.DebugLogFile = Terminate(req.DebugLogFile, PathLen)
	req.StatsPath = Terminate(req.StatsPath, PathLen)
	req.ConfigFileContents = Terminate(req.ConfigFileContents, ConfigFileLen)
	req.ThrottleMask = Terminate(req.ThrottleMask, ThrottleMaskLen)
	req.PluginPath = Terminate(req.PluginPath, PluginPathLen)
	req.EntityIDs = Terminate(req.EntityIDs, EntityListLen)

	for i := range req.TestNames {
		req.TestNames[i] = Terminate(req.TestNames[i], TestNameLen)
	}
	for i := range req.TestParms {
		req.TestParms[i] = Terminate(req.TestParms[i], TestParmLen)
	}
}
