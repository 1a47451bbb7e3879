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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
	diagerrors "github.com/NVIDIA/gpu-diagd/pkg/errors"
)

func TestResponseWrapperBindOnce(t *testing.T) {
	w := NewResponseWrapper()
	assert.False(t, w.Bound())

	require.NoError(t, w.Bind(diagmsg.ResponseVersion8))
	assert.True(t, w.Bound())
	assert.Equal(t, diagmsg.ResponseVersion8, w.Version())

	err := w.Bind(diagmsg.ResponseVersion9)
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeBadParameter))
	assert.Equal(t, diagmsg.ResponseVersion8, w.Version())
}

func TestResponseWrapperUnknownVersion(t *testing.T) {
	err := NewResponseWrapper().Bind(11)
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeVersionMismatch))
}

func TestResponseWrapperWritesRequireBind(t *testing.T) {
	w := NewResponseWrapper()
	assert.Error(t, w.SetResult(0, diagmsg.ResultPass))
	assert.Error(t, w.AddError(0, 1, "m", ""))
	assert.Error(t, w.AddInfo("m"))
	assert.Error(t, w.SetDriverVersion("570.1"))
	assert.Nil(t, w.Response())
}

func TestResponseWrapperResultOverwriteLast(t *testing.T) {
	w := NewResponseWrapper()
	require.NoError(t, w.Bind(diagmsg.ResponseVersion10))

	require.NoError(t, w.SetResult(3, diagmsg.ResultPass))
	require.NoError(t, w.SetResult(diagmsg.AllGpus, diagmsg.ResultWarn))
	require.NoError(t, w.SetResult(3, diagmsg.ResultFail))

	resp, ok := w.Response().(*diagmsg.ResponseV10)
	require.True(t, ok)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, diagmsg.SimpleResult{GpuID: 3, Result: diagmsg.ResultFail}, resp.Results[0])
	assert.Equal(t, diagmsg.SimpleResult{GpuID: diagmsg.AllGpus, Result: diagmsg.ResultWarn}, resp.Results[1])
}

func TestResponseWrapperBoundedErrors(t *testing.T) {
	tests := []struct {
		version uint32
		max     int
	}{
		{diagmsg.ResponseVersion7, diagmsg.MaxErrorsLegacy},
		{diagmsg.ResponseVersion9, diagmsg.MaxErrors},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("v%d", tc.version), func(t *testing.T) {
			w := NewResponseWrapper()
			require.NoError(t, w.Bind(tc.version))

			for i := 0; i < tc.max; i++ {
				require.NoError(t, w.AddError(diagmsg.AllGpus, uint32(i), "err", ""))
			}
			err := w.AddError(diagmsg.AllGpus, 999, "one too many", "")
			require.Error(t, err)
			assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeCapacityExceeded))
		})
	}
}

func TestResponseWrapperBoundedInfo(t *testing.T) {
	w := NewResponseWrapper()
	require.NoError(t, w.Bind(diagmsg.ResponseVersion7))

	for i := 0; i < diagmsg.MaxInfoLegacy; i++ {
		require.NoError(t, w.AddInfo("note"))
	}
	err := w.AddInfo("overflow")
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeCapacityExceeded))
}

func TestResponseWrapperDriverVersion(t *testing.T) {
	// Version 7 predates the field; the write is dropped without error.
	w7 := NewResponseWrapper()
	require.NoError(t, w7.Bind(diagmsg.ResponseVersion7))
	require.NoError(t, w7.SetDriverVersion("570.86.15"))

	w8 := NewResponseWrapper()
	require.NoError(t, w8.Bind(diagmsg.ResponseVersion8))
	require.NoError(t, w8.SetDriverVersion("570.86.15"))
	resp, ok := w8.Response().(*diagmsg.ResponseV8)
	require.True(t, ok)
	assert.Equal(t, "570.86.15", resp.DriverVersion)
}

func TestResponseWrapperAuxDataVersionGate(t *testing.T) {
	aux := &diagmsg.AuxData{Type: diagmsg.AuxDataJSON, Data: []byte(`{"k":1}`)}

	w9 := NewResponseWrapper()
	require.NoError(t, w9.Bind(diagmsg.ResponseVersion9))
	err := w9.SetAuxData(aux)
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeBadParameter))

	w10 := NewResponseWrapper()
	require.NoError(t, w10.Bind(diagmsg.ResponseVersion10))
	require.NoError(t, w10.SetAuxData(aux))
	resp, ok := w10.Response().(*diagmsg.ResponseV10)
	require.True(t, ok)
	assert.Equal(t, aux, resp.AuxData)
}
