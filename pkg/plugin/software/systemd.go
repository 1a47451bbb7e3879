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
	"context"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/NVIDIA/gpu-diagd/pkg/defaults"
)

// PersistencedUnit is the systemd unit that keeps the driver loaded and
// persistence mode enabled across client exits.
const PersistencedUnit = "nvidia-persistenced.service"

// UnitStateQuerier reports whether a systemd unit is active. The persistence
// mode check uses it to tell a disabled mode apart from a stopped daemon.
type UnitStateQuerier interface {
	UnitActive(ctx context.Context, unit string) (bool, error)
}

type systemdQuerier struct{}

// NewSystemdQuerier returns a UnitStateQuerier backed by the system D-Bus.
func NewSystemdQuerier() UnitStateQuerier {
	return systemdQuerier{}
}

func (systemdQuerier) UnitActive(ctx context.Context, unit string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.SystemdQueryTimeout)
	defer cancel()

	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return false, err
	}
	state, _ := props["ActiveState"].(string)
	return state == "active", nil
}
