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

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diagerrors "github.com/NVIDIA/gpu-diagd/pkg/errors"
)

func TestCommandFrameRoundtrip(t *testing.T) {
	payload, err := MarshalPayload(&RunRequestV5{
		GpuList:   []byte("0,1"),
		TestNames: [][]byte{[]byte("software")},
	})
	require.NoError(t, err)

	cmd := &Command{
		Header: CommandHeader{
			ModuleID:     ModuleIDDiag,
			SubCommand:   DiagSubCmdRun,
			Version:      RunVersion5,
			ConnectionID: "6f0e4e4e-8b3e-4c5e-9b0a-2b1b19a10d42",
		},
		Payload: payload,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, cmd))

	got, err := ReadCommand(&buf)
	require.NoError(t, err)
	assert.Equal(t, cmd.Header, got.Header)

	var env RunRequestV5
	require.NoError(t, UnmarshalPayload(got.Payload, &env))
	assert.Equal(t, []byte("0,1"), env.GpuList)
	require.Len(t, env.TestNames, 1)
	assert.Equal(t, "software", CString(env.TestNames[0]))
}

func TestReplyFrameRoundtrip(t *testing.T) {
	payload, err := MarshalPayload(&ResponseV10{
		Version: ResponseVersion10,
		Results: []SimpleResult{{GpuID: 0, Result: ResultPass}},
		Errors:  []ErrorDetail{{GpuID: 3, Code: 12, Message: "row remap failure"}},
		Info:    []string{"persistence mode enabled"},
	})
	require.NoError(t, err)

	reply := &Reply{
		Header: CommandHeader{
			ModuleID:   ModuleIDDiag,
			SubCommand: DiagSubCmdRun,
			Version:    RunVersion9,
		},
		Status:  diagerrors.ErrCodeOK,
		Payload: payload,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, reply))

	got, err := ReadReply(&buf)
	require.NoError(t, err)
	assert.Equal(t, diagerrors.ErrCodeOK, got.Status)

	var resp ResponseV10
	require.NoError(t, UnmarshalPayload(got.Payload, &resp))
	assert.Equal(t, ResponseVersion10, resp.Version)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, ResultPass, resp.Results[0].Result)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, int32(3), resp.Errors[0].GpuID)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], MaxFrameLen+1)
	buf.Write(lengthBuf[:])

	var cmd Command
	err := ReadFrame(&buf, &cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestReadFrameShortBody(t *testing.T) {
	var buf bytes.Buffer
	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], 100)
	buf.Write(lengthBuf[:])
	buf.Write([]byte{0x01, 0x02})

	var cmd Command
	require.Error(t, ReadFrame(&buf, &cmd))
}

func TestCheckVersion(t *testing.T) {
	hdr := &CommandHeader{Version: RunVersion7}
	require.NoError(t, CheckVersion(hdr, RunVersion7))

	err := CheckVersion(hdr, RunVersion9)
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeVersionMismatch))

	err = CheckVersion(nil, RunVersion9)
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeBadParameter))
}

func TestResponseVersionFor(t *testing.T) {
	tests := []struct {
		run  uint32
		want uint32
		ok   bool
	}{
		{RunVersion5, ResponseVersion7, true},
		{RunVersion6, ResponseVersion8, true},
		{RunVersion7, ResponseVersion9, true},
		{RunVersion8, ResponseVersion10, true},
		{RunVersion9, ResponseVersion10, true},
		{4, 0, false},
	}

	for _, tt := range tests {
		got, ok := ResponseVersionFor(tt.run)
		assert.Equal(t, tt.ok, ok, "run version %d", tt.run)
		assert.Equal(t, tt.want, got, "run version %d", tt.run)
	}
}
