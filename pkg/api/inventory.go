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

package api

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/NVIDIA/gpu-diagd/pkg/errors"
	"github.com/NVIDIA/gpu-diagd/pkg/plugin"
	ver "github.com/NVIDIA/gpu-diagd/pkg/version"
)

const (
	defaultDevDir            = "/dev"
	defaultDriverVersionPath = "/proc/driver/nvidia/version"
)

// minDriverVersion is the oldest driver branch the diagnostic checks
// understand. Older drivers still run, with a warning at startup.
var minDriverVersion = ver.Version{Major: 450, Minor: 51, Precision: 2}

// discoverGpus enumerates numbered NVIDIA device nodes under devDir. An
// empty inventory is not an error; the daemon can still serve fake-GPU runs.
func discoverGpus(devDir string) ([]plugin.GpuInfo, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailure, "reading device directory", err)
	}

	var gpus []plugin.GpuInfo
	for _, entry := range entries {
		id, ok := deviceMinor(entry.Name())
		if !ok {
			continue
		}
		gpus = append(gpus, plugin.GpuInfo{ID: id, Status: plugin.GpuStatusOK})
	}

	sort.Slice(gpus, func(i, j int) bool { return gpus[i].ID < gpus[j].ID })
	return gpus, nil
}

// deviceMinor parses "nvidia<N>" device node names. Control nodes such as
// nvidiactl, nvidia-uvm and nvidia-modeset are not GPUs.
func deviceMinor(name string) (uint, bool) {
	rest, ok := strings.CutPrefix(name, "nvidia")
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

// driverVersion extracts the kernel module version from the driver banner,
// e.g. /proc/driver/nvidia/version:
//
//	NVRM version: NVIDIA UNIX x86_64 Kernel Module  570.86.15  Thu Jan 23 ...
func driverVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeQueryFailure, "reading driver banner", err)
	}

	line, _, _ := strings.Cut(string(data), "\n")
	for _, token := range strings.Fields(line) {
		v, err := ver.ParseVersion(token)
		if err != nil {
			continue
		}
		// A single number is a date or count, not a driver ver.
		if v.Precision < 2 {
			continue
		}
		return token, nil
	}
	return "", errors.New(errors.ErrCodeNotFound, "no version token in driver banner")
}
