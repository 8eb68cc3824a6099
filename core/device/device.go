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

// Package device implements the resources driven by the standard lifecycle:
// a simulated front-end and a front-end controlled through shell commands.
package device

import (
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "device")

type Kind string

const (
	KindDummy   Kind = "dummy"
	KindCommand Kind = "command"
)

// Config describes one device entry of the daemon configuration.
type Config struct {
	Name string `mapstructure:"name" json:"name"`
	Kind Kind   `mapstructure:"kind" json:"kind"`
	// Definition is an optional YAML machine definition replacing the
	// standard lifecycle.
	Definition string `mapstructure:"definition" json:"definition,omitempty"`

	Delay  time.Duration `mapstructure:"delay" json:"delay,omitempty"`
	FailOn []string      `mapstructure:"failOn" json:"failOn,omitempty"`

	Actions map[string]string `mapstructure:"actions" json:"actions,omitempty"`
	WorkDir string            `mapstructure:"workDir" json:"workDir,omitempty"`
	Env     []string          `mapstructure:"env" json:"env,omitempty"`
	Timeout time.Duration     `mapstructure:"timeout" json:"timeout,omitempty"`
}

// WithDefaults fills every unset field of cfg from defaults.
func (cfg Config) WithDefaults(defaults Config) (Config, error) {
	merged := cfg
	if err := mergo.Merge(&merged, defaults); err != nil {
		return cfg, fmt.Errorf("cannot apply device defaults to %s: %w", cfg.Name, err)
	}
	return merged, nil
}

// New builds the device described by cfg.
func New(cfg Config) (lifecycle.Device, error) {
	switch Kind(strings.ToLower(string(cfg.Kind))) {
	case KindDummy, "":
		return NewDummy(cfg.Delay, cfg.FailOn...), nil
	case KindCommand:
		if len(cfg.Actions) == 0 {
			return nil, fmt.Errorf("device %s: command device without actions", cfg.Name)
		}
		return NewShell(cfg), nil
	}
	return nil, fmt.Errorf("device %s: unknown kind %q", cfg.Name, cfg.Kind)
}

// NewMachine builds the device and binds it to its lifecycle: the standard
// one, or the definition file named in cfg.
func NewMachine(cfg Config, opts ...lifecycle.Option) (*lifecycle.Machine, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("device without name")
	}
	dev, err := New(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, lifecycle.WithName(cfg.Name))
	if cfg.Definition == "" {
		return lifecycle.NewStandardMachine(dev, opts...)
	}

	def, err := lifecycle.LoadDefinitionFile(cfg.Definition)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", cfg.Name, err)
	}
	registry, err := def.Build(lifecycle.DeviceActions(dev))
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", cfg.Name, err)
	}
	return lifecycle.NewMachine(registry, opts...)
}
