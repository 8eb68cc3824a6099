/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */


package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/core/device"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/hashicorp/go-multierror"
	"github.com/k0kubun/pp"
	"github.com/sirupsen/logrus"
)

var ErrDeviceNotFound = errors.New("device not found")

// DeviceManager owns the lifecycle machines of all configured devices. Each
// machine serializes its own commands, distinct devices never block each
// other.
type DeviceManager struct {
	mu       sync.RWMutex
	machines map[string]*lifecycle.Machine
}

func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		machines: make(map[string]*lifecycle.Machine),
	}
}

// NewDeviceManagerFromConfig builds one machine per device configuration.
// Machines already built are closed if a later one cannot be.
func NewDeviceManagerFromConfig(configs []device.Config, opts ...lifecycle.Option) (*DeviceManager, error) {
	dm := NewDeviceManager()
	for _, cfg := range configs {
		if logrus.IsLevelEnabled(logrus.TraceLevel) {
			log.WithField("device", cfg.Name).Trace(pp.Sprint(cfg))
		}
		m, err := device.NewMachine(cfg, opts...)
		if err != nil {
			_ = dm.CloseAll()
			return nil, err
		}
		if err = dm.Add(m); err != nil {
			_ = m.Close()
			_ = dm.CloseAll()
			return nil, err
		}
		log.WithField("device", cfg.Name).
			WithField("kind", cfg.Kind).
			WithField(infologger.Level, infologger.IL_Devel).
			Debug("device lifecycle ready")
	}
	return dm, nil
}

func (dm *DeviceManager) Add(m *lifecycle.Machine) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, exists := dm.machines[m.Name()]; exists {
		return fmt.Errorf("device %s defined more than once", m.Name())
	}
	dm.machines[m.Name()] = m
	return nil
}

func (dm *DeviceManager) Machine(name string) (*lifecycle.Machine, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	m, ok := dm.machines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return m, nil
}

// Names returns the device names in lexical order.
func (dm *DeviceManager) Names() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	names := make([]string, 0, len(dm.machines))
	for name := range dm.machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Machines returns the machines ordered by device name.
func (dm *DeviceManager) Machines() []*lifecycle.Machine {
	names := dm.Names()

	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make([]*lifecycle.Machine, 0, len(names))
	for _, name := range names {
		if m, ok := dm.machines[name]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (dm *DeviceManager) Len() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.machines)
}

// CloseAll closes every machine and forgets it.
func (dm *DeviceManager) CloseAll() error {
	dm.mu.Lock()
	machines := dm.machines
	dm.machines = make(map[string]*lifecycle.Machine)
	dm.mu.Unlock()

	var merr *multierror.Error
	for name, m := range machines {
		if err := m.Close(); err != nil && !errors.Is(err, lifecycle.ErrMachineClosed) {
			merr = multierror.Append(merr, fmt.Errorf("device %s: %w", name, err))
		}
	}
	return merr.ErrorOrNil()
}
