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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch metrics
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpudiagd_commands_total",
			Help: "Total number of commands dispatched",
		},
		[]string{"module", "subcommand", "status"},
	)

	versionMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpudiagd_version_mismatches_total",
			Help: "Total number of commands refused for an unsupported wire version",
		},
	)

	pausedRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpudiagd_paused_rejections_total",
			Help: "Total number of run commands refused while the module was paused",
		},
	)

	// Run metrics
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpudiagd_runs_total",
			Help: "Total number of diagnostic runs",
		},
		[]string{"status"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gpudiagd_run_duration_seconds",
			Help:    "Diagnostic run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
	)

	checkResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpudiagd_check_results_total",
			Help: "Total number of per-GPU check outcomes",
		},
		[]string{"test", "result"},
	)
)
