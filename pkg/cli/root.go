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
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gpu-diagd/pkg/logging"
	"github.com/NVIDIA/gpu-diagd/pkg/serializer"
	"github.com/NVIDIA/gpu-diagd/pkg/server"
)

const (
	name           = "gpudiagd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Root builds the root command with all subcommands attached.
func Root() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "GPU diagnostic module daemon and client",
		Version: version,
		Commands: []*cli.Command{
			serveCmd(),
			runCmd(),
			stopCmd(),
			pauseCmd(),
			resumeCmd(),
			versionCmd(),
		},
	}
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Root().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the structured logger before a command does any work.
func setupLogging(cmd *cli.Command) {
	logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
}

// Flags shared by the daemon-client commands. Constructors keep flag state
// from leaking between command invocations in tests.

func newSocketFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "socket",
		Aliases: []string{"s"},
		Usage:   "daemon command socket address",
		Sources: cli.EnvVars("GPUDIAGD_SOCKET"),
		Value:   server.DefaultSocketPath,
	}
}

func newNetworkFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "network",
		Usage:   "daemon socket network (unix or tcp)",
		Sources: cli.EnvVars("GPUDIAGD_NETWORK"),
		Value:   "unix",
	}
}

func newOutputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}
}

func newFormatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage: fmt.Sprintf("output format (supported values: %s)",
			strings.Join(serializer.SupportedFormats(), ", ")),
	}
}

func newLogLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "log level (debug, info, warn, error)",
		Sources: cli.EnvVars("LOG_LEVEL"),
		Value:   "info",
	}
}
