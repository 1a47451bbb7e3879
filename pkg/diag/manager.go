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

package diag

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/NVIDIA/gpu-diagd/pkg/defaults"
	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
	"github.com/NVIDIA/gpu-diagd/pkg/errors"
	"github.com/NVIDIA/gpu-diagd/pkg/plugin"
	"github.com/NVIDIA/gpu-diagd/pkg/telemetry"
)

// Manager runs diagnostics on behalf of the dispatcher. The dispatcher hands
// it a sanitized canonical request and a bound response wrapper; everything
// else is the manager's business.
type Manager interface {
	RunDiagAndAction(ctx context.Context, req *diagmsg.RunRequest, action Action,
		resp *ResponseWrapper, connectionID string) error
	StopRunningDiag() error
}

// ManagerConfig wires a DefaultManager to its collaborators.
type ManagerConfig struct {
	Logger        *slog.Logger
	Registry      *plugin.Registry
	Fields        telemetry.FieldReader
	Gpus          []plugin.GpuInfo
	DriverVersion string
}

// DefaultManager drives registered plugins through the Init, RunTest,
// RetrieveCustomStats, RetrieveResults, Shutdown lifecycle. One run is
// active at a time.
type DefaultManager struct {
	logger        *slog.Logger
	registry      *plugin.Registry
	fields        telemetry.FieldReader
	gpus          []plugin.GpuInfo
	driverVersion string
	pausedProbe   func() bool

	mu      sync.Mutex
	current *plugin.RunContext
}

// NewManager returns a DefaultManager for the given collaborators.
func NewManager(cfg ManagerConfig) *DefaultManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultManager{
		logger:        logger,
		registry:      cfg.Registry,
		fields:        cfg.Fields,
		gpus:          cfg.Gpus,
		driverVersion: cfg.DriverVersion,
	}
}

// SetPauseProbe wires the module's pause state into run contexts, so checks
// can observe a pause that arrives mid-run.
func (m *DefaultManager) SetPauseProbe(probe func() bool) {
	m.pausedProbe = probe
}

// StopRunningDiag implements Manager. Stopping with no active run is a
// no-op; the stop command must never fail just because the run already
// finished.
func (m *DefaultManager) StopRunningDiag() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.RequestStop()
	}
	return nil
}

func (m *DefaultManager) beginRun() (*plugin.RunContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return nil, errors.New(errors.ErrCodeInProgress, "a diagnostic is already running")
	}
	m.current = plugin.NewRunContext(m.pausedProbe)
	return m.current, nil
}

func (m *DefaultManager) endRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// parseIDList parses a comma-separated GPU id list.
func parseIDList(s string) ([]uint, error) {
	if s == "" {
		return nil, nil
	}
	var ids []uint
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, errors.NewWithContext(errors.ErrCodeBadParameter,
				"malformed GPU id list", map[string]any{"entry": part})
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// targetGpus resolves the request's device selection against the known
// inventory. A fake GPU list takes precedence and yields synthetic entries;
// an empty selection means every known GPU.
func (m *DefaultManager) targetGpus(req *diagmsg.RunRequest) ([]plugin.GpuInfo, error) {
	if fake := diagmsg.CString(req.FakeGpuList); fake != "" {
		ids, err := parseIDList(fake)
		if err != nil {
			return nil, err
		}
		out := make([]plugin.GpuInfo, 0, len(ids))
		for _, id := range ids {
			out = append(out, plugin.GpuInfo{ID: id, Status: plugin.GpuStatusFake})
		}
		return out, nil
	}

	ids, err := parseIDList(diagmsg.CString(req.GpuList))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return m.gpus, nil
	}

	out := make([]plugin.GpuInfo, 0, len(ids))
	for _, id := range ids {
		found := false
		for _, g := range m.gpus {
			if g.ID == id {
				out = append(out, g)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.NewWithContext(errors.ErrCodeBadParameter,
				"unknown GPU id", map[string]any{"gpuId": id})
		}
	}
	return out, nil
}

// testNames extracts the requested test names. An empty selection runs the
// software environment checks.
func testNames(req *diagmsg.RunRequest) []string {
	var names []string
	for _, raw := range req.TestNames {
		if name := diagmsg.CString(raw); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		names = []string{"software"}
	}
	return names
}

// testParameters parses the "test.parameter=value" entries and groups them
// by test name. Value types are inferred: bool, then integer, then string.
func testParameters(req *diagmsg.RunRequest) map[string][]plugin.TestParameter {
	out := make(map[string][]plugin.TestParameter)
	for _, raw := range req.TestParms {
		entry := diagmsg.CString(raw)
		if entry == "" {
			continue
		}
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		test, param, ok := strings.Cut(key, ".")
		if !ok {
			continue
		}
		out[test] = append(out[test], typedParameter(param, value))
	}
	return out
}

func typedParameter(name, value string) plugin.TestParameter {
	switch strings.ToLower(value) {
	case "true":
		return plugin.TestParameter{Name: name, Type: plugin.ParamTypeBool, Bool: true}
	case "false":
		return plugin.TestParameter{Name: name, Type: plugin.ParamTypeBool}
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return plugin.TestParameter{Name: name, Type: plugin.ParamTypeInt, Int: n}
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return plugin.TestParameter{Name: name, Type: plugin.ParamTypeDouble, Dbl: f}
	}
	return plugin.TestParameter{Name: name, Type: plugin.ParamTypeString, Str: value}
}

func runTimeout(req *diagmsg.RunRequest) time.Duration {
	if req.TimeoutSeconds > 0 {
		return time.Duration(req.TimeoutSeconds) * time.Second
	}
	return defaults.TestRunTimeout
}

// RunDiagAndAction implements Manager.
func (m *DefaultManager) RunDiagAndAction(ctx context.Context, req *diagmsg.RunRequest,
	_ Action, resp *ResponseWrapper, connectionID string) error {
	if req == nil {
		return errors.New(errors.ErrCodeBadParameter, "nil run request")
	}
	if resp == nil || !resp.Bound() {
		return errors.New(errors.ErrCodeBadParameter, "response wrapper not bound")
	}

	rc, err := m.beginRun()
	if err != nil {
		return err
	}
	defer m.endRun()

	gpus, err := m.targetGpus(req)
	if err != nil {
		return err
	}
	names := testNames(req)
	params := testParameters(req)
	timeout := runTimeout(req)

	m.logger.Info("starting diagnostic run",
		"connectionId", connectionID,
		"tests", names,
		"gpus", len(gpus),
		"timeout", timeout)

	resp.SetDriverVersion(m.driverVersion) //nolint:errcheck

	for _, name := range names {
		if rc.ShouldStop() {
			m.logger.Warn("run stopped before test", "test", name)
			break
		}
		m.runOneTest(ctx, rc, name, gpus, params[name], timeout, resp)
	}
	return nil
}

// runOneTest drives one plugin through its lifecycle. Failures are recorded
// through the response wrapper; only structural problems abort the whole run
// upstream.
func (m *DefaultManager) runOneTest(ctx context.Context, rc *plugin.RunContext, name string,
	gpus []plugin.GpuInfo, params []plugin.TestParameter, timeout time.Duration, resp *ResponseWrapper) {
	p, pluginName, err := m.registry.PluginForTest(name)
	if err != nil {
		resp.AddError(diagmsg.AllGpus, 0, fmt.Sprintf("no plugin implements test %q", name), "") //nolint:errcheck
		resp.SetResult(diagmsg.AllGpus, diagmsg.ResultFail)                                      //nolint:errcheck
		return
	}

	env := plugin.InitEnv{
		Gpus:          gpus,
		Fields:        m.fields,
		Logger:        m.logger.With("plugin", pluginName),
		DriverVersion: m.driverVersion,
	}
	inst, watched, err := plugin.InitWithTimeout(ctx, p, env, defaults.PluginInitTimeout)
	if err != nil {
		m.logger.Error("plugin initialization failed", "plugin", pluginName, "error", err)
		resp.AddError(diagmsg.AllGpus, 0, fmt.Sprintf("plugin %q failed to initialize: %v", pluginName, err), "") //nolint:errcheck
		resp.SetResult(diagmsg.AllGpus, diagmsg.ResultFail)                                                       //nolint:errcheck
		return
	}
	defer func() {
		if err := inst.Shutdown(); err != nil {
			m.logger.Warn("plugin shutdown failed", "plugin", pluginName, "error", err)
		}
	}()
	if len(watched) > 0 {
		m.logger.Debug("plugin requested field watches", "plugin", pluginName, "fields", len(watched))
	}

	if err := inst.RunTest(rc, name, timeout, params); err != nil {
		resp.AddError(diagmsg.AllGpus, 0, fmt.Sprintf("test %q failed to run: %v", name, err), "") //nolint:errcheck
		resp.SetResult(diagmsg.AllGpus, diagmsg.ResultFail)                                        //nolint:errcheck
		return
	}

	m.drainCustomStats(inst, name)
	m.collectResults(inst, name, resp)
}

// drainCustomStats pulls every stats batch the plugin collected. The daemon
// currently only accounts for them; stats files are written client-side.
func (m *DefaultManager) drainCustomStats(inst plugin.Instance, name string) {
	total := 0
	for {
		stats, err := inst.RetrieveCustomStats(name)
		if err != nil {
			m.logger.Warn("custom stats retrieval failed", "test", name, "error", err)
			return
		}
		total += len(stats.Stats)
		if !stats.MoreStats {
			break
		}
	}
	if total > 0 {
		m.logger.Debug("collected custom stats", "test", name, "stats", total)
	}
}

func (m *DefaultManager) collectResults(inst plugin.Instance, name string, resp *ResponseWrapper) {
	results, err := inst.RetrieveResults(name)
	if err != nil {
		resp.AddError(diagmsg.AllGpus, 0, fmt.Sprintf("results for test %q unavailable: %v", name, err), "") //nolint:errcheck
		resp.SetResult(diagmsg.AllGpus, diagmsg.ResultFail)                                                  //nolint:errcheck
		return
	}

	for _, r := range results.Results {
		outcome := diagmsg.Result(r.Result)
		checkResults.WithLabelValues(name, outcome.String()).Inc()
		if err := resp.SetResult(r.GpuID, outcome); err != nil {
			m.logger.Warn("result dropped", "test", name, "gpu", r.GpuID, "error", err)
		}
	}
	for _, e := range results.Errors {
		if err := resp.AddError(e.GpuID, e.Code, e.Message, e.NextSteps); err != nil {
			m.logger.Warn("error entry dropped", "test", name, "error", err)
			break
		}
	}
	for _, info := range results.Info {
		if err := resp.AddInfo(info.Message); err != nil {
			m.logger.Warn("info entry dropped", "test", name, "error", err)
			break
		}
	}
	if len(results.AuxData) > 0 {
		aux := &diagmsg.AuxData{Type: diagmsg.AuxDataJSON, Data: results.AuxData}
		if err := resp.SetAuxData(aux); err != nil {
			m.logger.Debug("aux data not representable in bound response version",
				"test", name, "version", resp.Version())
		}
	}
}
