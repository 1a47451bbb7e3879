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

package software

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Shared library sonames probed by the library checks.
const (
	NVMLSoname   = "libnvidia-ml.so.1"
	CudaSoname   = "libcuda.so.1"
	CudartSoname = "libcudart.so.1"
	CublasSoname = "libcublas.so.1"
)

// LibraryProber reports whether a shared library is resolvable and readable.
type LibraryProber interface {
	Probe(soname string) error
}

// ldPathProber resolves sonames the way the dynamic loader does, minus the
// ELF RPATH steps that do not apply to a daemon: LD_LIBRARY_PATH first, then
// the conventional system and CUDA library directories.
type ldPathProber struct {
	lookupEnv func(string) (string, bool)
}

// NewLdPathProber returns the default prober.
func NewLdPathProber() LibraryProber {
	return &ldPathProber{lookupEnv: os.LookupEnv}
}

var defaultLibDirs = []string{
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/lib64",
	"/usr/lib64",
	"/lib",
	"/usr/lib",
	"/usr/local/cuda/lib64",
}

func (p *ldPathProber) Probe(soname string) error {
	var dirs []string
	if v, ok := p.lookupEnv("LD_LIBRARY_PATH"); ok {
		for _, d := range strings.Split(v, ":") {
			if d != "" {
				dirs = append(dirs, d)
			}
		}
	}
	dirs = append(dirs, defaultLibDirs...)

	for _, dir := range dirs {
		path := filepath.Join(dir, soname)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%s exists but is not readable: %w", path, err)
		}
		f.Close() //nolint:errcheck
		return nil
	}
	return fmt.Errorf("%s not found in library search paths", soname)
}
