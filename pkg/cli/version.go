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
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gpu-diagd/pkg/serializer"
	ver "github.com/NVIDIA/gpu-diagd/pkg/version"
)

// buildInfo is the version command's output shape.
type buildInfo struct {
	Name      string       `json:"name" yaml:"name"`
	Version   string       `json:"version" yaml:"version"`
	Semver    *ver.Version `json:"semver,omitempty" yaml:"semver,omitempty"`
	Commit    string       `json:"commit" yaml:"commit"`
	Date      string       `json:"date" yaml:"date"`
	GoVersion string       `json:"goVersion" yaml:"goVersion"`
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:                  "version",
		EnableShellCompletion: true,
		Usage:                 "Show version information",
		Flags: []cli.Flag{
			newOutputFlag(),
			newFormatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat := serializer.Format(cmd.String("format"))
			if outFormat.IsUnknown() {
				return fmt.Errorf("unknown output format: %q", outFormat)
			}

			info := buildInfo{
				Name:      name,
				Version:   version,
				Commit:    commit,
				Date:      date,
				GoVersion: runtime.Version(),
			}
			// Dev builds are not semver; the structured form is best effort.
			if parsed, err := ver.ParseVersion(version); err == nil {
				info.Semver = &parsed
			}

			writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			if closer, ok := writer.(serializer.Closer); ok {
				defer closer.Close()
			}
			return writer.Serialize(ctx, info)
		},
	}
}
