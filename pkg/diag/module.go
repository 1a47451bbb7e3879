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
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
	"github.com/NVIDIA/gpu-diagd/pkg/errors"
	"github.com/NVIDIA/gpu-diagd/pkg/logging"
)

// Action is the policy action a caller wants taken alongside a run. The
// daemon carries it through to the manager; no policy engine acts on it yet.
type Action uint32

const (
	ActionNone Action = iota
	ActionGpuReset
)

// Module is the diagnostic command dispatcher. It owns the process-wide
// pause flag; everything per-run lives in the request, the response wrapper
// and the manager.
type Module struct {
	logger  *slog.Logger
	manager Manager
	paused  atomic.Bool
}

// NewModule returns a dispatcher backed by the given manager.
func NewModule(logger *slog.Logger, manager Manager) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{logger: logger, manager: manager}
}

// Paused reports the pause gate state.
func (m *Module) Paused() bool {
	return m.paused.Load()
}

// ProcessMessage routes one decoded command and always produces a reply.
// Malformed input never panics; it comes back as a BadParameter status.
func (m *Module) ProcessMessage(ctx context.Context, cmd *diagmsg.Command) *diagmsg.Reply {
	if cmd == nil {
		err := errors.New(errors.ErrCodeBadParameter, "nil command")
		commandsTotal.WithLabelValues("unknown", "unknown", string(errors.CodeOf(err))).Inc()
		return &diagmsg.Reply{Status: errors.CodeOf(err), Message: err.Error()}
	}

	var (
		payload cbor.RawMessage
		err     error
	)
	switch cmd.Header.ModuleID {
	case diagmsg.ModuleIDCore:
		err = m.processCoreMessage(cmd)
	case diagmsg.ModuleIDDiag:
		payload, err = m.processDiagMessage(ctx, cmd)
	default:
		err = errors.NewWithContext(errors.ErrCodeFunctionNotFound,
			"unknown module", map[string]any{"moduleId": cmd.Header.ModuleID})
	}

	status := errors.CodeOf(err)
	commandsTotal.WithLabelValues(
		fmt.Sprintf("%d", cmd.Header.ModuleID),
		fmt.Sprintf("%d", cmd.Header.SubCommand),
		string(status),
	).Inc()

	reply := &diagmsg.Reply{Header: cmd.Header, Status: status, Payload: payload}
	if err != nil {
		reply.Message = err.Error()
	}
	return reply
}

// processCoreMessage handles the core-control namespace. These commands are
// synchronous process-wide state changes and never touch a run.
func (m *Module) processCoreMessage(cmd *diagmsg.Command) error {
	switch cmd.Header.SubCommand {
	case diagmsg.CoreSubCmdLoggingChanged:
		var lc diagmsg.LoggingChanged
		if err := diagmsg.UnmarshalPayload(cmd.Payload, &lc); err != nil {
			return err
		}
		if err := diagmsg.CheckVersion(&cmd.Header, diagmsg.LoggingChangedVersion1); err != nil {
			return err
		}
		level := logging.ParseLevel(lc.Severity)
		logging.SetLevel(level)
		m.logger.Info("log severity changed", "severity", lc.Severity, "level", level)
		return nil

	case diagmsg.CoreSubCmdPauseResume:
		var pr diagmsg.PauseResume
		if err := diagmsg.UnmarshalPayload(cmd.Payload, &pr); err != nil {
			return err
		}
		if err := diagmsg.CheckVersion(&cmd.Header, diagmsg.PauseResumeVersion1); err != nil {
			return err
		}
		m.paused.Store(pr.Pause)
		m.logger.Info("pause gate changed", "paused", pr.Pause)
		return nil

	default:
		return errors.NewWithContext(errors.ErrCodeFunctionNotFound,
			"unknown core subcommand", map[string]any{"subCommand": cmd.Header.SubCommand})
	}
}

func (m *Module) processDiagMessage(ctx context.Context, cmd *diagmsg.Command) (cbor.RawMessage, error) {
	switch cmd.Header.SubCommand {
	case diagmsg.DiagSubCmdRun:
		return m.processRun(ctx, cmd)

	case diagmsg.DiagSubCmdStop:
		// Stop stays allowed while paused so an in-flight run can still be
		// cancelled.
		return nil, m.manager.StopRunningDiag()

	default:
		return nil, errors.NewWithContext(errors.ErrCodeFunctionNotFound,
			"unknown diagnostic subcommand", map[string]any{"subCommand": cmd.Header.SubCommand})
	}
}

func (m *Module) processRun(ctx context.Context, cmd *diagmsg.Command) (cbor.RawMessage, error) {
	if m.paused.Load() {
		pausedRejections.Inc()
		return nil, errors.New(errors.ErrCodePaused,
			"the diagnostic module is paused, resume it to run diagnostics")
	}

	req, err := diagmsg.UpgradeEnvelope(cmd.Header.Version, cmd.Payload)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeVersionMismatch) {
			versionMismatches.Inc()
			m.logger.Error("unsupported run request version",
				"received", diagmsg.RunVersionName(cmd.Header.Version),
				"latest", diagmsg.RunVersionName(diagmsg.RunVersionLatest))
		}
		return nil, err
	}
	diagmsg.Sanitize(req)

	respVersion, ok := diagmsg.ResponseVersionFor(cmd.Header.Version)
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeVersionMismatch,
			"no response layout for run request version",
			map[string]any{"received": cmd.Header.Version})
	}
	wrapper := NewResponseWrapper()
	if err := wrapper.Bind(respVersion); err != nil {
		return nil, err
	}

	start := time.Now()
	runErr := m.manager.RunDiagAndAction(ctx, req, ActionNone, wrapper, cmd.Header.ConnectionID)
	runDuration.Observe(time.Since(start).Seconds())
	runsTotal.WithLabelValues(string(errors.CodeOf(runErr))).Inc()
	if runErr != nil {
		m.logger.Error("diagnostic run failed",
			"connectionId", cmd.Header.ConnectionID, "error", runErr)
		return nil, runErr
	}

	return diagmsg.MarshalPayload(wrapper.Response())
}
