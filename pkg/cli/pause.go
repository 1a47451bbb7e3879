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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
)

func pauseCmd() *cli.Command {
	return &cli.Command{
		Name:                  "pause",
		EnableShellCompletion: true,
		Usage:                 "Pause the diagnostic module",
		Description: `Pause the daemon's diagnostic module so an external exclusive-access
diagnostic can use the GPUs. New run requests are refused until resume;
stop remains allowed so an in-flight run can still be cancelled.`,
		Flags: []cli.Flag{
			newSocketFlag(),
			newNetworkFlag(),
			newLogLevelFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return togglePause(cmd, true)
		},
	}
}

func resumeCmd() *cli.Command {
	return &cli.Command{
		Name:                  "resume",
		EnableShellCompletion: true,
		Usage:                 "Resume the diagnostic module",
		Description:           `Re-enable diagnostic runs after a pause.`,
		Flags: []cli.Flag{
			newSocketFlag(),
			newNetworkFlag(),
			newLogLevelFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return togglePause(cmd, false)
		},
	}
}

func togglePause(cmd *cli.Command, pause bool) error {
	setupLogging(cmd)

	c, err := dialDaemon(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	payload, err := diagmsg.MarshalPayload(diagmsg.PauseResume{
		Version: diagmsg.PauseResumeVersion1,
		Pause:   pause,
	})
	if err != nil {
		return err
	}
	if _, err := c.do(&diagmsg.Command{
		Header: diagmsg.CommandHeader{
			ModuleID:   diagmsg.ModuleIDCore,
			SubCommand: diagmsg.CoreSubCmdPauseResume,
			Version:    diagmsg.PauseResumeVersion1,
		},
		Payload: payload,
	}); err != nil {
		return err
	}

	slog.Info("pause gate changed", "paused", pause)
	return nil
}
