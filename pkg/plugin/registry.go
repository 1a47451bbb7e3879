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

package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NVIDIA/gpu-diagd/pkg/errors"
	"github.com/NVIDIA/gpu-diagd/pkg/telemetry"
)

// Registry holds the plugins available to the diagnostic manager and routes
// test names to the plugin that implements them.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	infos   map[string]*Info
	byTest  map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		infos:   make(map[string]*Info),
		byTest:  make(map[string]string),
	}
}

// Register validates and admits a plugin. Version negotiation happens here,
// once: a plugin built against any other interface version is refused and
// never invoked again.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return errors.New(errors.ErrCodeBadParameter, "nil plugin")
	}
	if v := p.InterfaceVersion(); v != InterfaceVersion {
		return errors.NewWithContext(
			errors.ErrCodeVersionMismatch,
			"plugin interface version not supported",
			map[string]any{"received": v, "expected": InterfaceVersion},
		)
	}

	info, err := p.Info(InterfaceVersion)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "plugin info query failed", err)
	}
	if info == nil || info.Name == "" {
		return errors.New(errors.ErrCodeBadParameter, "plugin info missing name")
	}
	if len(info.Tests) == 0 || len(info.Tests) > MaxTestsPerPlugin {
		return errors.NewWithContext(
			errors.ErrCodeCapacityExceeded,
			"plugin test count out of range",
			map[string]any{"plugin": info.Name, "tests": len(info.Tests), "max": MaxTestsPerPlugin},
		)
	}
	for _, t := range info.Tests {
		if len(t.Parameters) > MaxParametersPerPlugin {
			return errors.NewWithContext(
				errors.ErrCodeCapacityExceeded,
				"plugin declares too many parameters",
				map[string]any{"plugin": info.Name, "test": t.Name, "max": MaxParametersPerPlugin},
			)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[info.Name]; ok {
		return errors.NewWithContext(errors.ErrCodeBadParameter,
			"plugin already registered", map[string]any{"plugin": info.Name})
	}
	for _, t := range info.Tests {
		if owner, ok := r.byTest[t.Name]; ok {
			return errors.NewWithContext(errors.ErrCodeBadParameter,
				"test name already claimed",
				map[string]any{"test": t.Name, "plugin": owner})
		}
	}

	r.plugins[info.Name] = p
	r.infos[info.Name] = info
	for _, t := range info.Tests {
		r.byTest[t.Name] = info.Name
	}
	return nil
}

// Plugin returns the registered plugin with the given name.
func (r *Registry) Plugin(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound,
			"plugin not registered", map[string]any{"plugin": name})
	}
	return p, nil
}

// PluginForTest resolves a test name to the plugin implementing it.
func (r *Registry) PluginForTest(testName string) (Plugin, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byTest[testName]
	if !ok {
		return nil, "", errors.NewWithContext(errors.ErrCodeNotFound,
			"no plugin implements test", map[string]any{"test": testName})
	}
	return r.plugins[name], name, nil
}

// Describe returns the descriptors of all registered plugins, sorted by
// plugin name for stable output.
func (r *Registry) Describe() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// InitWithTimeout runs p.Init under a hard deadline. A plugin that does not
// come up in time is abandoned and reported as a timeout; its late return
// value, if any, is discarded.
func InitWithTimeout(ctx context.Context, p Plugin, env InitEnv, timeout time.Duration) (Instance, []telemetry.FieldID, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type initResult struct {
		inst   Instance
		fields []telemetry.FieldID
		err    error
	}
	done := make(chan initResult, 1)

	go func() {
		inst, fields, err := p.Init(ctx, env)
		done <- initResult{inst, fields, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInternal, "plugin initialization failed", res.err)
		}
		if res.inst == nil {
			return nil, nil, errors.New(errors.ErrCodeInternal, "plugin returned nil instance")
		}
		if len(res.fields) > MaxStatFieldIDs {
			res.inst.Shutdown() //nolint:errcheck
			return nil, nil, errors.NewWithContext(errors.ErrCodeCapacityExceeded,
				"plugin watches too many fields",
				map[string]any{"fields": len(res.fields), "max": MaxStatFieldIDs})
		}
		return res.inst, res.fields, nil
	case <-ctx.Done():
		return nil, nil, errors.Wrap(errors.ErrCodeTimeout,
			fmt.Sprintf("plugin initialization exceeded %s", timeout), ctx.Err())
	}
}
