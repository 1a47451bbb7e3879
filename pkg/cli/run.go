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
	"log/slog"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
	"github.com/NVIDIA/gpu-diagd/pkg/serializer"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:                  "run",
		EnableShellCompletion: true,
		Usage:                 "Run diagnostics against a live daemon",
		Description: `Submit a diagnostic run request over the command socket and render the
response. Without --test the daemon runs the software deployment checks.

Test parameters use the "test.parameter=value" form, e.g.:
  software.do_test=page_retirement
  software.require_persistence=false

# Examples

Run the software checks on all GPUs:
  gpudiagd run

Run one check on specific GPUs:
  gpudiagd run --gpus 0,1 -p software.do_test=denylist

Exercise the request plumbing without hardware:
  gpudiagd run --fake-gpus 0,1,2

Fail the command if the diagnostic fails (useful for CI/CD):
  gpudiagd run --fail-on-error`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "gpus",
				Aliases: []string{"g"},
				Usage:   "comma-separated GPU ids (default: all discovered GPUs)",
			},
			&cli.StringFlag{
				Name:  "fake-gpus",
				Usage: "comma-separated fake GPU ids for request plumbing tests",
			},
			&cli.StringSliceFlag{
				Name:  "test",
				Usage: "test name to run (can be repeated; default: software)",
			},
			&cli.StringSliceFlag{
				Name:    "parameter",
				Aliases: []string{"p"},
				Usage:   "test parameter (format: test.parameter=value, can be repeated)",
			},
			&cli.UintFlag{
				Name:  "timeout",
				Usage: "per-test timeout in seconds (0 uses the daemon default)",
			},
			&cli.BoolFlag{
				Name:  "fail-early",
				Usage: "enable fail-early checks between test phases",
			},
			&cli.BoolFlag{
				Name:  "fail-on-error",
				Usage: "exit with non-zero status if the overall result is fail",
			},
			newSocketFlag(),
			newNetworkFlag(),
			newOutputFlag(),
			newFormatFlag(),
			newLogLevelFlag(),
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	outFormat := serializer.Format(cmd.String("format"))
	if outFormat.IsUnknown() {
		return fmt.Errorf("unknown output format: %q", outFormat)
	}

	req, err := buildRunRequest(cmd)
	if err != nil {
		return err
	}
	payload, err := diagmsg.MarshalPayload(req)
	if err != nil {
		return err
	}

	c, err := dialDaemon(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	slog.Info("submitting diagnostic run",
		"socket", cmd.String("socket"),
		"gpus", cmd.String("gpus"),
		"tests", cmd.StringSlice("test"))

	reply, err := c.do(&diagmsg.Command{
		Header: diagmsg.CommandHeader{
			ModuleID:   diagmsg.ModuleIDDiag,
			SubCommand: diagmsg.DiagSubCmdRun,
			Version:    diagmsg.RunVersionLatest,
		},
		Payload: payload,
	})
	if err != nil {
		return err
	}

	var resp diagmsg.ResponseV10
	if err := diagmsg.UnmarshalPayload(reply.Payload, &resp); err != nil {
		return err
	}
	report := buildRunReport(&resp)

	writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
	if closer, ok := writer.(serializer.Closer); ok {
		defer closer.Close()
	}
	if err := writer.Serialize(ctx, report); err != nil {
		return err
	}

	if cmd.Bool("fail-on-error") && report.failed {
		return fmt.Errorf("diagnostic failed")
	}
	return nil
}

// buildRunRequest translates command flags into a canonical run request.
func buildRunRequest(cmd *cli.Command) (*diagmsg.RunRequest, error) {
	req := &diagmsg.RunRequest{}
	req.GpuList = []byte(cmd.String("gpus"))

	if fake := cmd.String("fake-gpus"); fake != "" {
		req.FakeGpuList = []byte(fake)
		req.Flags |= diagmsg.RunFlagFakeGpus
	}

	tests := cmd.StringSlice("test")
	if len(tests) > diagmsg.MaxTestNames {
		return nil, fmt.Errorf("at most %d tests per run, got %d", diagmsg.MaxTestNames, len(tests))
	}
	for _, t := range tests {
		req.TestNames = append(req.TestNames, []byte(t))
	}

	params := cmd.StringSlice("parameter")
	if len(params) > diagmsg.MaxTestParms {
		return nil, fmt.Errorf("at most %d test parameters per run, got %d", diagmsg.MaxTestParms, len(params))
	}
	for _, p := range params {
		key, _, ok := strings.Cut(p, "=")
		if !ok || !strings.Contains(key, ".") {
			return nil, fmt.Errorf("invalid test parameter %q (expected test.parameter=value)", p)
		}
		req.TestParms = append(req.TestParms, []byte(p))
	}

	req.TimeoutSeconds = uint32(cmd.Uint("timeout"))
	if cmd.Bool("fail-early") {
		req.Flags |= diagmsg.RunFlagFailEarly
	}
	return req, nil
}

// titleCaser renders wire-level lowercase names for display.
var titleCaser = cases.Title(language.AmericanEnglish)

// runReport is the client-side rendering of a diagnostic response.
type runReport struct {
	DriverVersion string        `json:"driverVersion,omitempty" yaml:"driverVersion,omitempty"`
	Results       []reportRow   `json:"results,omitempty" yaml:"results,omitempty"`
	Errors        []reportError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Info          []string      `json:"info,omitempty" yaml:"info,omitempty"`

	failed bool
}

type reportRow struct {
	Gpu    string `json:"gpu" yaml:"gpu"`
	Result string `json:"result" yaml:"result"`
}

type reportError struct {
	Gpu       string `json:"gpu" yaml:"gpu"`
	Code      uint32 `json:"code" yaml:"code"`
	Message   string `json:"message" yaml:"message"`
	NextSteps string `json:"nextSteps,omitempty" yaml:"nextSteps,omitempty"`
}

func buildRunReport(resp *diagmsg.ResponseV10) *runReport {
	report := &runReport{DriverVersion: resp.DriverVersion, Info: resp.Info}

	for _, r := range resp.Results {
		report.Results = append(report.Results, reportRow{
			Gpu:    gpuLabel(r.GpuID),
			Result: titleCaser.String(r.Result.String()),
		})
		if r.Result == diagmsg.ResultFail {
			report.failed = true
		}
	}
	for _, e := range resp.Errors {
		report.Errors = append(report.Errors, reportError{
			Gpu:       gpuLabel(e.GpuID),
			Code:      e.Code,
			Message:   e.Message,
			NextSteps: e.NextSteps,
		})
	}
	return report
}

func gpuLabel(id int32) string {
	if id == diagmsg.AllGpus {
		return titleCaser.String("all")
	}
	return strconv.FormatInt(int64(id), 10)
}
