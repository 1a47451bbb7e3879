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
	"os"
	"sort"
	"sync"
	"time"

	"github.com/NVIDIA/gpu-diagd/pkg/errors"
	"github.com/NVIDIA/gpu-diagd/pkg/plugin"
	"github.com/NVIDIA/gpu-diagd/pkg/telemetry"
)

// PluginName doubles as the single test name the plugin implements.
const PluginName = "software"

// Test parameter names.
const (
	ParamDoTest             = "do_test"
	ParamRequirePersistence = "require_persistence"
	ParamCheckFileCreation  = "check_file_creation"
	ParamSkipDeviceTest     = "skip_device_test"
)

// do_test values. Each selects one environment check.
const (
	TestDenylist          = "denylist"
	TestPermissions       = "permissions"
	TestLibrariesNVML     = "libraries_nvml"
	TestLibrariesCuda     = "libraries_cuda"
	TestLibrariesCudaTk   = "libraries_cudatk"
	TestPersistenceMode   = "persistence_mode"
	TestEnvVariables      = "env_variables"
	TestGraphicsProcesses = "graphics_processes"
	TestPageRetirement    = "page_retirement"
	TestInforom           = "inforom"
)

// Diagnostic error codes reported by this plugin.
const (
	ErrFieldQuery uint32 = iota + 1
	ErrNoAccessToFile
	ErrDeviceCountMismatch
	ErrFileCreatePermissions
	ErrDenylistedDriver
	ErrCannotOpenLib
	ErrPersistenceMode
	ErrBadCudaEnv
	ErrGraphicsProcesses
	ErrPendingPageRetirements
	ErrDbePendingPageRetirements
	ErrRetiredPagesLimit
	ErrRowRemapFailure
	ErrPendingRowRemap
	ErrUncorrectableRowRemap
	ErrCorruptInforom
)

// Error severities.
const (
	SeverityWarning uint32 = 1
	SeverityError   uint32 = 2
)

// MaxRetiredPages is the retired page count at and above which a GPU is
// considered unhealthy regardless of the cause of each retirement.
const MaxRetiredPages int64 = 60

// Deps are the host-environment collaborators the checks touch. Zero fields
// are filled with production defaults by New; tests inject fakes.
type Deps struct {
	Prober       LibraryProber
	Persistenced UnitStateQuerier
	DevDir       string
	SysfsBusDirs []string
	LookupEnv    func(string) (string, bool)
	WorkDir      string
}

func (d *Deps) fillDefaults() {
	if d.Prober == nil {
		d.Prober = NewLdPathProber()
	}
	if d.DevDir == "" {
		d.DevDir = "/dev"
	}
	if len(d.SysfsBusDirs) == 0 {
		d.SysfsBusDirs = []string{"/sys/bus/pci/devices", "/sys/bus/pci_express/devices"}
	}
	if d.LookupEnv == nil {
		d.LookupEnv = os.LookupEnv
	}
	if d.WorkDir == "" {
		d.WorkDir = "."
	}
}

// Plugin implements plugin.Plugin for the software deployment checks.
type Plugin struct {
	deps Deps
}

// New returns the software plugin with missing dependencies defaulted.
func New(deps Deps) *Plugin {
	deps.fillDefaults()
	return &Plugin{deps: deps}
}

// InterfaceVersion implements plugin.Plugin.
func (p *Plugin) InterfaceVersion() uint {
	return plugin.InterfaceVersion
}

// Info implements plugin.Plugin.
func (p *Plugin) Info(uint) (*plugin.Info, error) {
	return &plugin.Info{
		Name:        PluginName,
		Description: "Software deployment checks plugin.",
		Tests: []plugin.TestInfo{
			{
				Name:        PluginName,
				Description: "Host software environment checks selected by do_test.",
				TestGroups:  []string{"Software"},
				Parameters: []plugin.ParameterInfo{
					{Name: ParamDoTest, Type: plugin.ParamTypeString},
					{Name: ParamRequirePersistence, Type: plugin.ParamTypeBool},
					{Name: ParamCheckFileCreation, Type: plugin.ParamTypeBool},
					{Name: ParamSkipDeviceTest, Type: plugin.ParamTypeBool},
				},
			},
		},
	}, nil
}

// Init implements plugin.Plugin. The software checks read telemetry on
// demand, so no fields are requested for watching.
func (p *Plugin) Init(_ context.Context, env plugin.InitEnv) (plugin.Instance, []telemetry.FieldID, error) {
	if env.Fields == nil {
		return nil, nil, errors.New(errors.ErrCodeBadParameter, "no field reader supplied")
	}
	return &instance{deps: p.deps, env: env}, nil, nil
}

type params struct {
	doTest             string
	requirePersistence bool
	checkFileCreation  bool
	skipDeviceTest     bool
}

func parseParams(in []plugin.TestParameter) params {
	p := params{requirePersistence: true}
	for _, tp := range in {
		switch tp.Name {
		case ParamDoTest:
			p.doTest = tp.Str
		case ParamRequirePersistence:
			p.requirePersistence = tp.Bool
		case ParamCheckFileCreation:
			p.checkFileCreation = tp.Bool
		case ParamSkipDeviceTest:
			p.skipDeviceTest = tp.Bool
		}
	}
	return p
}

// resultSet accumulates one run's outcome. The overall result is
// overwrite-last, matching the response wrapper's semantics.
type resultSet struct {
	overall    uint32
	overallSet bool
	perGpu     map[int32]uint32
	gpuOrder   []int32
	errors     []plugin.Error
	info       []plugin.InfoMessage
}

func newResultSet() *resultSet {
	return &resultSet{perGpu: make(map[int32]uint32)}
}

func (r *resultSet) setResult(res uint32) {
	r.overall = res
	r.overallSet = true
}

func (r *resultSet) setResultForGpu(gpuID int32, res uint32) {
	if _, ok := r.perGpu[gpuID]; !ok {
		r.gpuOrder = append(r.gpuOrder, gpuID)
	}
	r.perGpu[gpuID] = res
}

func (r *resultSet) addError(gpuID int32, code, severity uint32, msg, nextSteps string) {
	if len(r.errors) >= plugin.MaxErrors {
		return
	}
	r.errors = append(r.errors, plugin.Error{
		GpuID:     gpuID,
		Code:      code,
		Severity:  severity,
		Message:   msg,
		NextSteps: nextSteps,
	})
}

func (r *resultSet) addInfo(msg string) {
	if len(r.info) >= plugin.MaxInfo {
		return
	}
	r.info = append(r.info, plugin.InfoMessage{GpuID: plugin.AllGpus, Message: msg})
}

type instance struct {
	deps Deps
	env  plugin.InitEnv

	mu   sync.Mutex
	res  *resultSet
	done bool
}

func (i *instance) usingFakeGpus() bool {
	for _, g := range i.env.Gpus {
		if g.Status == plugin.GpuStatusFake {
			return true
		}
	}
	return false
}

// RunTest implements plugin.Instance. Fake-GPU runs pass everything except
// the page retirement and row remapping checks, which still work against
// cached telemetry.
func (i *instance) RunTest(rc *plugin.RunContext, testName string, _ time.Duration, in []plugin.TestParameter) error {
	if testName != PluginName {
		return errors.NewWithContext(errors.ErrCodeNotFound,
			"unknown test", map[string]any{"test": testName})
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done {
		return errors.New(errors.ErrCodeBadParameter, "instance already shut down")
	}
	i.res = newResultSet()
	p := parseParams(in)

	if i.usingFakeGpus() {
		i.env.Logger.Warn("running software checks against fake gpus")
		i.res.setResult(plugin.ResultPass)
		if p.doTest == TestPageRetirement {
			i.checkPageRetirement(rc)
			i.checkRowRemapping(rc)
		}
		return nil
	}

	i.res.setResult(plugin.ResultPass)

	switch p.doTest {
	case TestDenylist:
		i.checkDenylist()
	case TestPermissions:
		i.checkPermissions(p.checkFileCreation, p.skipDeviceTest)
	case TestLibrariesNVML:
		i.checkLibraries(checkNVML)
	case TestLibrariesCuda:
		i.checkLibraries(checkCuda)
	case TestLibrariesCudaTk:
		i.checkLibraries(checkCudaTk)
	case TestPersistenceMode:
		if !p.requirePersistence {
			i.env.Logger.Info("skipping persistence check")
			i.res.setResult(plugin.ResultSkip)
		} else {
			i.checkPersistenceMode(rc)
		}
	case TestEnvVariables:
		i.checkForBadEnvVariables()
	case TestGraphicsProcesses:
		i.checkForGraphicsProcesses()
	case TestPageRetirement:
		i.checkPageRetirement(rc)
		i.checkRowRemapping(rc)
	case TestInforom:
		i.checkInforom()
	}
	return nil
}

// RetrieveCustomStats implements plugin.Instance. The software checks
// collect no time-series stats.
func (i *instance) RetrieveCustomStats(string) (*plugin.CustomStats, error) {
	return &plugin.CustomStats{}, nil
}

// RetrieveResults implements plugin.Instance.
func (i *instance) RetrieveResults(testName string) (*plugin.Results, error) {
	if testName != PluginName {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound,
			"unknown test", map[string]any{"test": testName})
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.res == nil {
		return nil, errors.New(errors.ErrCodeBadParameter, "no test has been run")
	}

	out := &plugin.Results{}
	if i.res.overallSet {
		out.Results = append(out.Results, plugin.Result{GpuID: plugin.AllGpus, Result: i.res.overall})
	}
	gpus := append([]int32(nil), i.res.gpuOrder...)
	sort.Slice(gpus, func(a, b int) bool { return gpus[a] < gpus[b] })
	for _, id := range gpus {
		out.Results = append(out.Results, plugin.Result{GpuID: id, Result: i.res.perGpu[id]})
	}
	out.Errors = append(out.Errors, i.res.errors...)
	out.Info = append(out.Info, i.res.info...)
	return out, nil
}

// Shutdown implements plugin.Instance.
func (i *instance) Shutdown() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.done = true
	return nil
}
