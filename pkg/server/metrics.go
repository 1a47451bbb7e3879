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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	connectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpudiagd_connections_total",
			Help: "Total number of accepted command socket connections",
		},
	)

	connectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpudiagd_connections_open",
			Help: "Current number of open command socket connections",
		},
	)

	// Frame metrics
	framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpudiagd_frames_total",
			Help: "Total number of command frames processed",
		},
		[]string{"direction"},
	)

	frameErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpudiagd_frame_errors_total",
			Help: "Total number of frame decode or write failures",
		},
		[]string{"direction"},
	)

	// Rate limiting metrics
	rateLimitThrottles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpudiagd_rate_limit_throttles_total",
			Help: "Total number of commands delayed by per-connection rate limiting",
		},
	)
)
