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

package server

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/gpu-diagd/pkg/defaults"
	"github.com/NVIDIA/gpu-diagd/pkg/errors"
)

// DefaultSocketPath is the default unix command socket.
const DefaultSocketPath = "/var/run/gpudiagd.sock"

// Config holds daemon server configuration.
type Config struct {
	// Server identity, set by the composition root rather than the file.
	Name    string `yaml:"-"`
	Version string `yaml:"-"`

	// Command socket listener
	ListenNetwork string `yaml:"listenNetwork"` // "unix" or "tcp"
	ListenAddress string `yaml:"listenAddress"`

	// Observability sidecar (/health, /ready, /metrics)
	MetricsAddress string `yaml:"metricsAddress"`

	// Per-connection command rate limiting
	RateLimit      rate.Limit `yaml:"rateLimit"` // commands per second
	RateLimitBurst int        `yaml:"rateLimitBurst"`

	// Log severity applied at startup; runtime changes arrive as commands.
	LogLevel string `yaml:"logLevel"`

	// Timeouts
	WriteTimeoutSeconds    int `yaml:"writeTimeoutSeconds"`
	ShutdownTimeoutSeconds int `yaml:"shutdownTimeoutSeconds"`
}

// NewConfig returns a new Config with sensible defaults and environment
// overrides applied. Use this when you want to customize config
// programmatically.
func NewConfig() *Config {
	cfg := defaultConfig()
	cfg.applyEnv()
	return cfg
}

// defaultConfig returns sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Name:                   "server",
		Version:                "undefined",
		ListenNetwork:          "unix",
		ListenAddress:          DefaultSocketPath,
		MetricsAddress:         ":9400",
		RateLimit:              20, // 20 commands/s per connection
		RateLimitBurst:         40, // burst of 40
		LogLevel:               "info",
		WriteTimeoutSeconds:    int(defaults.ServerWriteTimeout / time.Second),
		ShutdownTimeoutSeconds: int(defaults.ServerShutdownTimeout / time.Second),
	}
}

// LoadConfig builds a Config from defaults, an optional YAML file, and
// environment overrides, in that order. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeBadParameter, "reading config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeBadParameter, "parsing config file", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from environment variables if set.
func (c *Config) applyEnv() {
	if v := os.Getenv("LISTEN_NETWORK"); v != "" {
		c.ListenNetwork = v
	}
	if v := os.Getenv("LISTEN_ADDRESS"); v != "" {
		c.ListenAddress = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		c.MetricsAddress = v
	}

	// Allow customization of shutdown timeout to match orchestrator
	// eviction grace periods.
	if shutdownStr := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); shutdownStr != "" {
		var seconds int
		if _, err := fmt.Sscanf(shutdownStr, "%d", &seconds); err == nil && seconds > 0 {
			c.ShutdownTimeoutSeconds = seconds
		}
	}
}

// Validate checks the listener settings before any socket is opened.
func (c *Config) Validate() error {
	switch c.ListenNetwork {
	case "unix", "tcp":
	default:
		return errors.NewWithContext(errors.ErrCodeBadParameter,
			"listen network must be unix or tcp",
			map[string]any{"listenNetwork": c.ListenNetwork})
	}
	if c.ListenAddress == "" {
		return errors.New(errors.ErrCodeBadParameter, "listen address is required")
	}
	if c.RateLimit <= 0 || c.RateLimitBurst <= 0 {
		return errors.New(errors.ErrCodeBadParameter, "rate limit and burst must be positive")
	}
	return nil
}

// WriteTimeout returns the per-reply write deadline.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
