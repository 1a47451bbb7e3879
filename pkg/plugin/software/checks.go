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

package software

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/NVIDIA/gpu-diagd/pkg/plugin"
	"github.com/NVIDIA/gpu-diagd/pkg/telemetry"
)

type libraryCheck int

const (
	checkNVML libraryCheck = iota
	checkCuda
	checkCudaTk
)

// countDevEntry reports whether a /dev entry is a GPU device node: "nvidia"
// followed only by digits. nvidiactl, nvidia-uvm and friends do not count.
func countDevEntry(name string) bool {
	if len(name) < 6 || name[:6] != "nvidia" {
		return false
	}
	for i := 6; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

func (i *instance) checkPermissions(checkFileCreation, skipDeviceTest bool) {
	gpuCount := len(i.env.Gpus)

	if !skipDeviceTest {
		entries, err := os.ReadDir(i.deps.DevDir)
		if err != nil {
			i.env.Logger.Warn("cannot read device directory", "dir", i.deps.DevDir, "error", err)
			return
		}

		deviceCount := 0
		var accessWarnings []string
		for _, ent := range entries {
			if !countDevEntry(ent.Name()) {
				continue
			}
			path := filepath.Join(i.deps.DevDir, ent.Name())
			f, err := os.Open(path)
			if err != nil {
				accessWarnings = append(accessWarnings, fmt.Sprintf("No access to device file %s: %v", path, err))
				continue
			}
			f.Close() //nolint:errcheck
			deviceCount++
		}

		if deviceCount < gpuCount {
			i.res.addError(plugin.AllGpus, ErrDeviceCountMismatch, SeverityWarning,
				fmt.Sprintf("%d GPUs are detected but only %d device nodes under %s are readable",
					gpuCount, deviceCount, i.deps.DevDir),
				"Check the permissions of the NVIDIA device nodes and the user running the diagnostic.")
			for _, w := range accessWarnings {
				i.res.addError(plugin.AllGpus, ErrNoAccessToFile, SeverityWarning, w, "")
			}
			i.res.setResult(plugin.ResultWarn)
		}
	}

	if checkFileCreation {
		f, err := os.CreateTemp(i.deps.WorkDir, ".gpudiagd-perm-*")
		if err != nil {
			wd, _ := filepath.Abs(i.deps.WorkDir)
			i.res.addError(plugin.AllGpus, ErrFileCreatePermissions, SeverityError,
				fmt.Sprintf("No permission to create a file in directory '%s'", wd),
				"Run the diagnostic from a directory writable by the current user.")
			i.res.setResult(plugin.ResultFail)
			return
		}
		f.Close()           //nolint:errcheck
		os.Remove(f.Name()) //nolint:errcheck
	}
}

var denylistedDrivers = []string{"nouveau"}

func (i *instance) checkDenylist() {
	driverDirs := []string{"driver", filepath.Join("subsystem", "drivers")}

	found := false
	for _, busDir := range i.deps.SysfsBusDirs {
		entries, err := os.ReadDir(busDir)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			for _, sub := range driverDirs {
				if i.checkDriverPathDenylist(filepath.Join(busDir, ent.Name(), sub)) {
					i.res.setResult(plugin.ResultFail)
					found = true
				}
			}
		}
	}
	if !found {
		i.res.setResult(plugin.ResultPass)
	}
}

// checkDriverPathDenylist resolves one device's driver symlink and reports
// whether it points at a denylisted kernel module. Missing paths and
// non-symlinks are fine; the device just uses a different layout.
func (i *instance) checkDriverPathDenylist(driverPath string) bool {
	target, err := os.Readlink(driverPath)
	if err != nil {
		return false
	}
	driver := filepath.Base(target)
	for _, denied := range denylistedDrivers {
		if driver == denied {
			i.res.addError(plugin.AllGpus, ErrDenylistedDriver, SeverityError,
				fmt.Sprintf("Found driver on the denylist: %s", denied),
				"Uninstall the denylisted driver and load the NVIDIA kernel driver.")
			return true
		}
	}
	return false
}

func (i *instance) checkLibraries(kind libraryCheck) {
	var (
		libraries   []string
		diagnostics []string
		failureCode uint32
	)
	switch kind {
	case checkNVML:
		libraries = []string{NVMLSoname}
		diagnostics = []string{
			"The NVML main library could not be found in the default search paths.",
			"Please check to see if it is installed or that LD_LIBRARY_PATH contains the path to " + NVMLSoname,
			"Skipping remainder of tests.",
		}
		failureCode = plugin.ResultFail
	case checkCuda:
		libraries = []string{CudaSoname}
		diagnostics = []string{
			"The CUDA main library could not be found. Skipping remainder of tests.",
		}
		failureCode = plugin.ResultWarn
	case checkCudaTk:
		libraries = []string{CudartSoname, CublasSoname}
		diagnostics = []string{
			"The CUDA Toolkit libraries could not be found.",
			"Is LD_LIBRARY_PATH set to the 64-bit library path? (usually /usr/local/cuda/lib64)",
			"Some tests will not run.",
		}
		failureCode = plugin.ResultWarn
	}

	failure := false
	for _, lib := range libraries {
		if err := i.deps.Prober.Probe(lib); err != nil {
			i.res.addError(plugin.AllGpus, ErrCannotOpenLib, SeverityError,
				fmt.Sprintf("Cannot open library %s: %v", lib, err), "")
			i.res.setResult(failureCode)
			failure = true
		}
	}
	if failure {
		for _, d := range diagnostics {
			i.res.addInfo(d)
		}
	}
}

func (i *instance) checkPersistenceMode(_ *plugin.RunContext) {
	persistencedActive := true
	if i.deps.Persistenced != nil {
		active, err := i.deps.Persistenced.UnitActive(context.Background(), PersistencedUnit)
		if err != nil {
			i.env.Logger.Warn("cannot query persistenced unit state", "unit", PersistencedUnit, "error", err)
		} else {
			persistencedActive = active
		}
	}

	for _, g := range i.env.Gpus {
		if g.Attributes.PersistenceModeEnabled {
			continue
		}
		nextSteps := fmt.Sprintf("Enable persistence mode by running \"nvidia-smi -i %d -pm 1\" as root.", g.ID)
		if !persistencedActive {
			nextSteps = fmt.Sprintf("Start %s or enable persistence mode by running \"nvidia-smi -i %d -pm 1\" as root.",
				PersistencedUnit, g.ID)
		}
		i.res.addError(int32(g.ID), ErrPersistenceMode, SeverityWarning,
			fmt.Sprintf("Persistence mode for GPU %d is disabled.", g.ID), nextSteps)
		i.res.setResult(plugin.ResultWarn)
	}
}

// Environment variables that alter CUDA behavior under a diagnostic.
var badEnvKeys = []string{
	"NSIGHT_CUDA_DEBUGGER",
	"CUDA_INJECTION32_PATH",
	"CUDA_INJECTION64_PATH",
	"CUDA_AUTO_BOOST",
	"CUDA_ENABLE_COREDUMP_ON_EXCEPTION",
	"CUDA_COREDUMP_FILE",
	"CUDA_DEVICE_WAITS_ON_EXCEPTION",
	"CUDA_PROFILE",
	"COMPUTE_PROFILE",
	"OPENCL_PROFILE",
}

func (i *instance) checkForBadEnvVariables() {
	for _, key := range badEnvKeys {
		if _, found := i.deps.LookupEnv(key); !found {
			i.env.Logger.Debug("env variable not found (good)", "key", key)
			continue
		}
		i.res.addError(plugin.AllGpus, ErrBadCudaEnv, SeverityWarning,
			fmt.Sprintf("Found CUDA behavior-altering environment variable %s.", key),
			"Unset the variable before running the diagnostic.")
		i.res.setResult(plugin.ResultWarn)
	}
}

func (i *instance) checkForGraphicsProcesses() {
	for _, g := range i.env.Gpus {
		gpuID := int32(g.ID)
		v, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldGraphicsPIDs, telemetry.FlagLiveData)
		if err != nil {
			i.res.addError(gpuID, ErrFieldQuery, SeverityError,
				fmt.Sprintf("Error reading graphics_pids for GPU %d: %v", g.ID, err), "")
			i.res.setResult(plugin.ResultFail)
			continue
		}
		if v.Status != telemetry.StatusOK {
			i.res.addInfo(fmt.Sprintf(
				"Error getting the graphics pids for GPU %d. Status = %d, skipping check.", g.ID, v.Status))
			continue
		}
		if len(v.Blob) > 0 && v.Blob[0] != 0 {
			// Any payload here means a process is running.
			i.res.addError(gpuID, ErrGraphicsProcesses, SeverityWarning,
				fmt.Sprintf("A graphics or compute process is running on GPU %d.", g.ID),
				"Stop the process and run the diagnostic again.")
			i.res.setResult(plugin.ResultWarn)
		}
	}
}

func (i *instance) liveFlags() uint {
	// Fake GPUs do not support live reads.
	if i.usingFakeGpus() {
		return 0
	}
	return telemetry.FlagLiveData
}

func (i *instance) checkPageRetirement(rc *plugin.RunContext) {
	flags := i.liveFlags()

	for _, g := range i.env.Gpus {
		if rc.ShouldStop() {
			return
		}
		gpuID := int32(g.ID)

		pending, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldRetiredPagesPending, flags)
		if err != nil {
			i.res.addError(gpuID, ErrFieldQuery, SeverityError,
				fmt.Sprintf("Error reading retired_pages_pending for GPU %d: %v", g.ID, err), "")
			i.res.setResult(plugin.ResultFail)
			continue
		}

		if pending.Status != telemetry.StatusOK || telemetry.IsInt64Blank(pending.Int64) {
			i.env.Logger.Warn("skipping pending retirement check",
				"gpu", g.ID, "status", pending.Status, "value", pending.Int64)
		} else if pending.Int64 > 0 {
			dbe, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldECCDBEVolTotal, flags)
			if err == nil && dbe.Int64 > 0 && !telemetry.IsInt64Blank(dbe.Int64) {
				i.res.addError(gpuID, ErrDbePendingPageRetirements, SeverityError,
					fmt.Sprintf("GPU %d has pending page retirements caused by double-bit ECC errors.", g.ID),
					"Drain the GPU and reset it to retire the pages.")
			} else {
				i.res.addError(gpuID, ErrPendingPageRetirements, SeverityError,
					fmt.Sprintf("GPU %d has pending page retirements.", g.ID),
					"Drain the GPU and reset it to retire the pages.")
			}
			i.res.setResult(plugin.ResultFail)
			// Pending retirements make further testing pointless. Query
			// failures above deliberately do not stop the run.
			rc.RequestStop()
			continue
		}

		var retiredTotal int64

		dbe, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldRetiredPagesDBE, flags)
		if err != nil {
			i.res.addError(gpuID, ErrFieldQuery, SeverityError,
				fmt.Sprintf("Error reading retired_pages_dbe for GPU %d: %v", g.ID, err), "")
			i.res.setResult(plugin.ResultFail)
			continue
		}
		if dbe.Status != telemetry.StatusOK || telemetry.IsInt64Blank(dbe.Int64) {
			i.env.Logger.Warn("skipping dbe retired page count",
				"gpu", g.ID, "status", dbe.Status, "value", dbe.Int64)
		} else {
			retiredTotal += dbe.Int64
		}

		sbe, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldRetiredPagesSBE, flags)
		if err != nil {
			i.res.addError(gpuID, ErrFieldQuery, SeverityError,
				fmt.Sprintf("Error reading retired_pages_sbe for GPU %d: %v", g.ID, err), "")
			i.res.setResult(plugin.ResultFail)
			continue
		}
		if sbe.Status != telemetry.StatusOK || telemetry.IsInt64Blank(sbe.Int64) {
			i.env.Logger.Warn("skipping sbe retired page count",
				"gpu", g.ID, "status", sbe.Status, "value", sbe.Int64)
		} else {
			retiredTotal += sbe.Int64
		}

		if retiredTotal >= MaxRetiredPages {
			i.res.addError(gpuID, ErrRetiredPagesLimit, SeverityError,
				fmt.Sprintf("GPU %d has %d retired pages, at or above the limit of %d.",
					g.ID, retiredTotal, MaxRetiredPages),
				"The GPU has reached its page retirement limit and should be replaced.")
			i.res.setResult(plugin.ResultFail)
			rc.RequestStop()
		}
	}
}

func (i *instance) checkRowRemapping(rc *plugin.RunContext) {
	flags := i.liveFlags()

	for _, g := range i.env.Gpus {
		if rc.ShouldStop() {
			return
		}
		gpuID := int32(g.ID)

		failure, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldRowRemapFailure, flags)
		if err != nil {
			i.res.addError(gpuID, ErrFieldQuery, SeverityError,
				fmt.Sprintf("Error reading row_remap_failure for GPU %d: %v", g.ID, err), "")
			i.res.setResultForGpu(gpuID, plugin.ResultFail)
			continue
		}

		if failure.Status != telemetry.StatusOK || telemetry.IsInt64Blank(failure.Int64) {
			i.env.Logger.Info("skipping row remap failure check",
				"gpu", g.ID, "status", failure.Status, "value", failure.Int64)
		} else if failure.Int64 > 0 {
			i.res.addError(gpuID, ErrRowRemapFailure, SeverityError,
				fmt.Sprintf("GPU %d failed to remap a memory row.", g.ID),
				"The GPU has uncontained memory damage and should be replaced.")
			i.res.setResultForGpu(gpuID, plugin.ResultFail)
			rc.RequestStop()
			continue
		}

		pending, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldRowRemapPending, flags)
		if err != nil {
			i.res.addError(gpuID, ErrFieldQuery, SeverityError,
				fmt.Sprintf("Error reading row_remap_pending for GPU %d: %v", g.ID, err), "")
			i.res.setResultForGpu(gpuID, plugin.ResultFail)
			continue
		}

		if pending.Status != telemetry.StatusOK || telemetry.IsInt64Blank(pending.Int64) {
			i.env.Logger.Info("skipping pending row remap check",
				"gpu", g.ID, "status", pending.Status, "value", pending.Int64)
		} else if pending.Int64 > 0 {
			unc, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldUncorrectableRemappedRows, flags)
			if err == nil && unc.Int64 > 0 && !telemetry.IsInt64Blank(unc.Int64) {
				i.res.addError(gpuID, ErrUncorrectableRowRemap, SeverityError,
					fmt.Sprintf("GPU %d has remapped rows for uncorrectable errors.", g.ID),
					"Reset the GPU to activate the remapped rows.")
			} else {
				i.res.addError(gpuID, ErrPendingRowRemap, SeverityError,
					fmt.Sprintf("GPU %d has pending row remappings.", g.ID),
					"Reset the GPU to activate the remapped rows.")
			}
			i.res.setResultForGpu(gpuID, plugin.ResultFail)
			rc.RequestStop()
		}
	}
}

func (i *instance) checkInforom() {
	for _, g := range i.env.Gpus {
		gpuID := int32(g.ID)
		v, err := i.env.Fields.GetCurrentFieldValue(g.ID, telemetry.FieldInforomConfigValid, telemetry.FlagLiveData)
		if err != nil {
			i.res.addError(gpuID, ErrFieldQuery, SeverityError,
				fmt.Sprintf("Error reading inforom_config_valid for GPU %d: %v", g.ID, err), "")
			i.res.setResult(plugin.ResultFail)
			continue
		}

		switch {
		case v.Status == telemetry.StatusNotSupported,
			v.Status == telemetry.StatusOK && telemetry.IsInt64Blank(v.Int64):
			i.res.addInfo(fmt.Sprintf(
				"Status %d for GPU %d when checking the validity of the inforom. Skipping this check.", v.Status, g.ID))
			i.res.setResult(plugin.ResultSkip)
		case v.Status != telemetry.StatusOK:
			i.res.addInfo(fmt.Sprintf(
				"Status %d for GPU %d when checking the validity of the inforom. Skipping this check.", v.Status, g.ID))
		case v.Int64 == 0:
			i.res.addError(gpuID, ErrCorruptInforom, SeverityError,
				fmt.Sprintf("GPU %d has a corrupt inforom.", g.ID),
				"Flash the inforom or return the GPU for repair.")
			i.res.setResult(plugin.ResultFail)
		}
	}
}
