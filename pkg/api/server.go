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

package api

import (
	"context"
	"log/slog"

	"github.com/NVIDIA/gpu-diagd/pkg/diag"
	"github.com/NVIDIA/gpu-diagd/pkg/logging"
	"github.com/NVIDIA/gpu-diagd/pkg/plugin"
	"github.com/NVIDIA/gpu-diagd/pkg/plugin/software"
	"github.com/NVIDIA/gpu-diagd/pkg/server"
	"github.com/NVIDIA/gpu-diagd/pkg/telemetry"
	ver "github.com/NVIDIA/gpu-diagd/pkg/version"
)

const (
	name           = "gpudiagd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/NVIDIA/gpu-diagd/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Serve starts the diagnostic daemon and blocks until shutdown.
// It loads configuration, discovers the GPU inventory, registers the
// built-in plugins and runs the command socket server. An empty configPath
// uses defaults plus environment overrides.
func Serve(configPath string) error {
	ctx := context.Background()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Name = name
	cfg.Version = version

	logging.SetDefaultStructuredLoggerWithLevel(name, version, cfg.LogLevel)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	gpus, err := discoverGpus(defaultDevDir)
	if err != nil {
		slog.Warn("gpu discovery failed, starting with empty inventory", "error", err)
	}
	driver, err := driverVersion(defaultDriverVersionPath)
	if err != nil {
		slog.Warn("driver version unavailable", "error", err)
	} else if v, perr := ver.ParseVersion(driver); perr == nil && !v.EqualsOrNewer(minDriverVersion) {
		slog.Warn("driver older than supported minimum",
			"driverVersion", driver,
			"minimum", minDriverVersion.String())
	}
	slog.Info("inventory", "gpuCount", len(gpus), "driverVersion", driver)

	registry := plugin.NewRegistry()
	if err := registry.Register(software.New(software.Deps{
		Prober:       software.NewLdPathProber(),
		Persistenced: software.NewSystemdQuerier(),
	})); err != nil {
		slog.Error("plugin registration failed", "error", err)
		return err
	}

	manager := diag.NewManager(diag.ManagerConfig{
		Logger:        slog.Default(),
		Registry:      registry,
		Fields:        telemetry.UnsupportedReader{},
		Gpus:          gpus,
		DriverVersion: driver,
	})

	module := diag.NewModule(slog.Default(), manager)
	manager.SetPauseProbe(module.Paused)

	s := server.New(module,
		server.WithConfig(cfg),
		server.WithLogger(slog.Default()),
	)

	if err := s.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}
