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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diagerrors "github.com/NVIDIA/gpu-diagd/pkg/errors"
	"github.com/NVIDIA/gpu-diagd/pkg/plugin"
)

func TestDeviceMinor(t *testing.T) {
	tests := []struct {
		name   string
		wantID uint
		wantOK bool
	}{
		{"nvidia0", 0, true},
		{"nvidia1", 1, true},
		{"nvidia15", 15, true},
		{"nvidia", 0, false},
		{"nvidiactl", 0, false},
		{"nvidia-uvm", 0, false},
		{"nvidia-modeset", 0, false},
		{"nvidia0a", 0, false},
		{"sda", 0, false},
	}

	for _, tc := range tests {
		id, ok := deviceMinor(tc.name)
		assert.Equal(t, tc.wantOK, ok, tc.name)
		if tc.wantOK {
			assert.Equal(t, tc.wantID, id, tc.name)
		}
	}
}

func TestDiscoverGpus(t *testing.T) {
	dir := t.TempDir()
	for _, node := range []string{"nvidia2", "nvidia0", "nvidiactl", "nvidia-uvm", "tty0"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, node), nil, 0o600))
	}

	gpus, err := discoverGpus(dir)
	require.NoError(t, err)
	require.Len(t, gpus, 2)
	// Sorted by device minor.
	assert.Equal(t, plugin.GpuInfo{ID: 0, Status: plugin.GpuStatusOK}, gpus[0])
	assert.Equal(t, plugin.GpuInfo{ID: 2, Status: plugin.GpuStatusOK}, gpus[1])
}

func TestDiscoverGpusEmpty(t *testing.T) {
	gpus, err := discoverGpus(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, gpus)
}

func TestDiscoverGpusMissingDir(t *testing.T) {
	_, err := discoverGpus(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeQueryFailure))
}

func TestDriverVersion(t *testing.T) {
	banner := "NVRM version: NVIDIA UNIX x86_64 Kernel Module  570.86.15  Thu Jan 23 22:52:03 UTC 2025\n" +
		"GCC version:  gcc version 12.3.0\n"
	path := filepath.Join(t.TempDir(), "version")
	require.NoError(t, os.WriteFile(path, []byte(banner), 0o600))

	v, err := driverVersion(path)
	require.NoError(t, err)
	assert.Equal(t, "570.86.15", v)
}

func TestDriverVersionTwoComponent(t *testing.T) {
	banner := "NVRM version: NVIDIA UNIX Open Kernel Module for x86_64  535.104  Release Build\n"
	path := filepath.Join(t.TempDir(), "version")
	require.NoError(t, os.WriteFile(path, []byte(banner), 0o600))

	v, err := driverVersion(path)
	require.NoError(t, err)
	assert.Equal(t, "535.104", v)
}

func TestDriverVersionNoToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version")
	require.NoError(t, os.WriteFile(path, []byte("no version here\n"), 0o600))

	_, err := driverVersion(path)
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeNotFound))
}

func TestDriverVersionMissingFile(t *testing.T) {
	_, err := driverVersion(filepath.Join(t.TempDir(), "version"))
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeQueryFailure))
}
