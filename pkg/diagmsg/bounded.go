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

package diagmsg

import "bytes"

// Bounded buffer primitives. Every string field in a run request occupies a
// fixed-capacity buffer whose content may have been written by a less
// trusted client generation. These helpers centralize the truncate and
// terminate policy so it is not repeated per field.

// SafeCopy returns a copy of src truncated to at most capacity bytes. It
// never reads past src and never produces more than capacity bytes. A nil
// src yields nil.
func SafeCopy(src []byte, capacity int) []byte {
	if src == nil || capacity <= 0 {
		return nil
	}
	n := len(src)
	if n > capacity {
		n = capacity
	}
	dst := make([]byte, n)
	copy(dst, src[:n])
	return dst
}

// Terminate guarantees buf carries a terminator within capacity. A buffer
// shorter than its capacity has implicit room for one and is returned
// unchanged; a buffer filled to capacity without a NUL gets its last
// permitted byte forced to one. Content beyond capacity is dropped first.
// Missing termination is corrected, not reported: it is a robustness
// invariant, not an application error.
func Terminate(buf []byte, capacity int) []byte {
	if capacity <= 0 {
		return nil
	}
	if len(buf) > capacity {
		buf = buf[:capacity]
	}
	if len(buf) < capacity {
		return buf
	}
	if bytes.IndexByte(buf, 0) < 0 {
		buf[capacity-1] = 0
	}
	return buf
}

// Terminated reports whether buf can be read as a C-style string without
// running past capacity.
func Terminated(buf []byte, capacity int) bool {
	if len(buf) < capacity {
		return true
	}
	return bytes.IndexByte(buf[:capacity], 0) >= 0
}

// CString interprets buf as a C-style string: the bytes before the first
// terminator, or the whole buffer if none is present.
func CString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// SafeCopyStrings copies up to maxElems elements from src, each truncated to
// elemCapacity bytes. Used for the fixed-size test name and test parameter
// arrays.
func SafeCopyStrings(src [][]byte, maxElems, elemCapacity int) [][]byte {
	if src == nil {
		return nil
	}
	n := len(src)
	if n > maxElems {
		n = maxElems
	}
	dst := make([][]byte, n)
	for i := 0; i < n; i++ {
		dst[i] = SafeCopy(src[i], elemCapacity)
	}
	return dst
}
