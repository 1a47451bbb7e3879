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

func stopCmd() *cli.Command {
	return &cli.Command{
		Name:                  "stop",
		EnableShellCompletion: true,
		Usage:                 "Stop the active diagnostic run",
		Description: `Ask the daemon to halt the active run cooperatively. The run stops at the
next check boundary; results gathered so far are still returned to the
original caller. Stopping with no run active is not an error.`,
		Flags: []cli.Flag{
			newSocketFlag(),
			newNetworkFlag(),
			newLogLevelFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			setupLogging(cmd)

			c, err := dialDaemon(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			payload, err := diagmsg.MarshalPayload(diagmsg.StopRequest{Version: diagmsg.StopVersion1})
			if err != nil {
				return err
			}
			if _, err := c.do(&diagmsg.Command{
				Header: diagmsg.CommandHeader{
					ModuleID:   diagmsg.ModuleIDDiag,
					SubCommand: diagmsg.DiagSubCmdStop,
					Version:    diagmsg.StopVersion1,
				},
				Payload: payload,
			}); err != nil {
				return err
			}

			slog.Info("stop requested")
			return nil
		},
	}
}
