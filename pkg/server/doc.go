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

// Package server runs the daemon's command socket and its observability
// sidecar.
//
// The command socket is a unix or tcp listener speaking length-prefixed CBOR
// frames. Each accepted connection gets a server-assigned connection ID and
// its own command rate limiter; commands are decoded and handed to a message
// processor, and every command produces exactly one reply frame.
//
// The sidecar is a small HTTP server exposing /health, /ready and /metrics
// for probes and Prometheus scraping. Both listeners shut down together on
// SIGINT/SIGTERM or context cancellation.
package server
