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

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gpu-diagd/pkg/api"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:                  "serve",
		EnableShellCompletion: true,
		Usage:                 "Run the GPU diagnostic daemon",
		Description: `Run the diagnostic daemon: open the command socket, discover the GPU
inventory, register the built-in plugins and serve diagnostic commands
until SIGINT/SIGTERM.

Configuration is read from the optional YAML config file, then overridden
by environment variables (LISTEN_NETWORK, LISTEN_ADDRESS, METRICS_ADDRESS,
SHUTDOWN_TIMEOUT_SECONDS, LOG_LEVEL).

# Examples

Serve on the default unix socket:
  gpudiagd serve

Serve with a config file:
  gpudiagd serve --config /etc/gpudiagd.yaml

Serve on TCP for remote clients:
  LISTEN_NETWORK=tcp LISTEN_ADDRESS=0.0.0.0:5555 gpudiagd serve`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "daemon config file (YAML)",
				Sources: cli.EnvVars("GPUDIAGD_CONFIG"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return api.Serve(cmd.String("config"))
		},
	}
}
