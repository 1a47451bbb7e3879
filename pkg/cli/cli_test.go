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

package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
	diagerrors "github.com/NVIDIA/gpu-diagd/pkg/errors"
	"github.com/NVIDIA/gpu-diagd/pkg/server"
)

// cannedProcessor answers run commands with a fixed response and records
// every command it sees.
type cannedProcessor struct {
	mu       sync.Mutex
	cmds     []*diagmsg.Command
	response diagmsg.ResponseV10
}

func (p *cannedProcessor) ProcessMessage(_ context.Context, cmd *diagmsg.Command) *diagmsg.Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmds = append(p.cmds, cmd)

	reply := &diagmsg.Reply{Header: cmd.Header, Status: diagerrors.ErrCodeOK}
	if cmd.Header.ModuleID == diagmsg.ModuleIDDiag && cmd.Header.SubCommand == diagmsg.DiagSubCmdRun {
		payload, err := diagmsg.MarshalPayload(p.response)
		if err != nil {
			return &diagmsg.Reply{Header: cmd.Header, Status: diagerrors.ErrCodeInternal, Message: err.Error()}
		}
		reply.Payload = payload
	}
	return reply
}

func (p *cannedProcessor) seen() []*diagmsg.Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*diagmsg.Command(nil), p.cmds...)
}

// startDaemon serves the processor on a throwaway unix socket.
func startDaemon(t *testing.T, processor server.MessageProcessor) string {
	t.Helper()

	cfg := server.NewConfig()
	cfg.ListenNetwork = "unix"
	cfg.ListenAddress = filepath.Join(t.TempDir(), "gpudiagd.sock")
	cfg.MetricsAddress = "127.0.0.1:0"
	cfg.ShutdownTimeoutSeconds = 2

	s := server.New(processor,
		server.WithConfig(cfg),
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop in time")
		}
	})

	require.Eventually(t, s.Ready, 5*time.Second, 10*time.Millisecond)
	return cfg.ListenAddress
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	return Root().Run(context.Background(), append([]string{name}, args...))
}

func TestRunCommandRendersReport(t *testing.T) {
	processor := &cannedProcessor{response: diagmsg.ResponseV10{
		Version:       diagmsg.ResponseVersion10,
		DriverVersion: "570.86.15",
		Results: []diagmsg.SimpleResult{
			{GpuID: diagmsg.AllGpus, Result: diagmsg.ResultPass},
			{GpuID: 0, Result: diagmsg.ResultWarn},
		},
		Info: []string{"persistence mode disabled on gpu 0"},
	}}
	socket := startDaemon(t, processor)
	outFile := filepath.Join(t.TempDir(), "report.json")

	err := runCLI(t, "run",
		"--socket", socket,
		"--gpus", "0",
		"--output", outFile,
		"--format", "json")
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)

	var report struct {
		DriverVersion string `json:"driverVersion"`
		Results       []struct {
			Gpu    string `json:"gpu"`
			Result string `json:"result"`
		} `json:"results"`
		Info []string `json:"info"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "570.86.15", report.DriverVersion)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "All", report.Results[0].Gpu)
	assert.Equal(t, "Pass", report.Results[0].Result)
	assert.Equal(t, "0", report.Results[1].Gpu)
	assert.Equal(t, "Warn", report.Results[1].Result)
	require.Len(t, report.Info, 1)

	// The daemon saw a latest-generation run request with the GPU list.
	seen := processor.seen()
	require.Len(t, seen, 1)
	assert.Equal(t, diagmsg.RunVersionLatest, seen[0].Header.Version)

	var req diagmsg.RunRequest
	require.NoError(t, diagmsg.UnmarshalPayload(seen[0].Payload, &req))
	assert.Equal(t, "0", string(req.GpuList))
}

func TestRunCommandBuildsRequestFromFlags(t *testing.T) {
	processor := &cannedProcessor{response: diagmsg.ResponseV10{Version: diagmsg.ResponseVersion10}}
	socket := startDaemon(t, processor)

	err := runCLI(t, "run",
		"--socket", socket,
		"--fake-gpus", "0,1,2",
		"--test", "software",
		"-p", "software.do_test=denylist",
		"-p", "software.require_persistence=false",
		"--timeout", "90",
		"--fail-early",
		"--output", filepath.Join(t.TempDir(), "out.json"),
		"--format", "json")
	require.NoError(t, err)

	seen := processor.seen()
	require.Len(t, seen, 1)

	var req diagmsg.RunRequest
	require.NoError(t, diagmsg.UnmarshalPayload(seen[0].Payload, &req))
	assert.Equal(t, "0,1,2", string(req.FakeGpuList))
	require.Len(t, req.TestNames, 1)
	assert.Equal(t, "software", string(req.TestNames[0]))
	require.Len(t, req.TestParms, 2)
	assert.Equal(t, "software.do_test=denylist", string(req.TestParms[0]))
	assert.Equal(t, uint32(90), req.TimeoutSeconds)
	assert.NotZero(t, req.Flags&diagmsg.RunFlagFailEarly)
	assert.NotZero(t, req.Flags&diagmsg.RunFlagFakeGpus)
}

func TestRunCommandFailOnError(t *testing.T) {
	processor := &cannedProcessor{response: diagmsg.ResponseV10{
		Version: diagmsg.ResponseVersion10,
		Results: []diagmsg.SimpleResult{{GpuID: diagmsg.AllGpus, Result: diagmsg.ResultFail}},
	}}
	socket := startDaemon(t, processor)

	err := runCLI(t, "run",
		"--socket", socket,
		"--fail-on-error",
		"--output", filepath.Join(t.TempDir(), "out.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diagnostic failed")
}

func TestRunCommandInvalidParameter(t *testing.T) {
	err := runCLI(t, "run", "--parameter", "no-test-prefix=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid test parameter")
}

func TestRunCommandInvalidFormat(t *testing.T) {
	err := runCLI(t, "run", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestRunCommandDaemonRefusal(t *testing.T) {
	// A paused daemon refuses runs; the CLI surfaces the daemon's message.
	socket := startDaemon(t, &refusingProcessor{})

	err := runCLI(t, "run", "--socket", socket)
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodePaused))
}

type refusingProcessor struct{}

func (refusingProcessor) ProcessMessage(_ context.Context, cmd *diagmsg.Command) *diagmsg.Reply {
	return &diagmsg.Reply{
		Header:  cmd.Header,
		Status:  diagerrors.ErrCodePaused,
		Message: "the diagnostic module is paused",
	}
}

func TestStopCommand(t *testing.T) {
	processor := &cannedProcessor{}
	socket := startDaemon(t, processor)

	require.NoError(t, runCLI(t, "stop", "--socket", socket))

	seen := processor.seen()
	require.Len(t, seen, 1)
	assert.Equal(t, diagmsg.ModuleIDDiag, seen[0].Header.ModuleID)
	assert.Equal(t, diagmsg.DiagSubCmdStop, seen[0].Header.SubCommand)
}

func TestPauseResumeCommands(t *testing.T) {
	processor := &cannedProcessor{}
	socket := startDaemon(t, processor)

	require.NoError(t, runCLI(t, "pause", "--socket", socket))
	require.NoError(t, runCLI(t, "resume", "--socket", socket))

	seen := processor.seen()
	require.Len(t, seen, 2)
	for _, cmd := range seen {
		assert.Equal(t, diagmsg.ModuleIDCore, cmd.Header.ModuleID)
		assert.Equal(t, diagmsg.CoreSubCmdPauseResume, cmd.Header.SubCommand)
	}

	var pr diagmsg.PauseResume
	require.NoError(t, diagmsg.UnmarshalPayload(seen[0].Payload, &pr))
	assert.True(t, pr.Pause)
	require.NoError(t, diagmsg.UnmarshalPayload(seen[1].Payload, &pr))
	assert.False(t, pr.Pause)
}

func TestVersionCommand(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "version.json")
	require.NoError(t, runCLI(t, "version", "--output", outFile, "--format", "json"))

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)

	var info struct {
		Name      string `json:"name"`
		Version   string `json:"version"`
		GoVersion string `json:"goVersion"`
	}
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, name, info.Name)
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestBuildRunReport(t *testing.T) {
	resp := &diagmsg.ResponseV10{
		DriverVersion: "570.86.15",
		Results: []diagmsg.SimpleResult{
			{GpuID: 3, Result: diagmsg.ResultFail},
			{GpuID: diagmsg.AllGpus, Result: diagmsg.ResultSkip},
		},
		Errors: []diagmsg.ErrorDetail{
			{GpuID: 3, Code: 7, Message: "pending page retirements", NextSteps: "drain and reset the GPU"},
		},
	}

	report := buildRunReport(resp)
	assert.True(t, report.failed)
	require.Len(t, report.Results, 2)
	assert.Equal(t, reportRow{Gpu: "3", Result: "Fail"}, report.Results[0])
	assert.Equal(t, reportRow{Gpu: "All", Result: "Skip"}, report.Results[1])
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "3", report.Errors[0].Gpu)
	assert.Equal(t, uint32(7), report.Errors[0].Code)
}
