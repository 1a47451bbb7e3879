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

// Package diagmsg defines the versioned wire protocol of the diagnostic
// module: command headers, run request envelopes (versions 5 through 9),
// response layouts (versions 7 through 10), the envelope upgrader that
// converts any supported request generation into the canonical latest
// representation, and the buffer sanitizer that guarantees every bounded
// field is safe to read downstream.
//
// Each run request generation is a strict prefix-compatible superset of the
// previous one; upgrading is a pure field copy that never transforms or drops
// a field. Fields absent from older generations default to zero/empty in the
// canonical request.
//
// Messages travel as length-prefixed CBOR frames. The header is decoded
// first; its declared version then selects how the payload is interpreted.
// Unknown versions are rejected, never guessed at.
package diagmsg
