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

package lifecycle

import (
	"context"
)

// States of the standard front-end lifecycle.
const (
	Initial    State = "Initial"
	Halted     State = "Halted"
	Configured State = "Configured"
	Running    State = "Running"
	Paused     State = "Paused"
	Failed     State = "Failed"

	Initializing State = "Initializing"
	Configuring  State = "Configuring"
	Halting      State = "Halting"
	Starting     State = "Starting"
	Pausing      State = "Pausing"
	Resuming     State = "Resuming"
	Stopping     State = "Stopping"
)

// Commands accepted by the standard front-end lifecycle.
const (
	Initialize Command = "Initialize"
	Configure  Command = "Configure"
	Start      Command = "Start"
	Pause      Command = "Pause"
	Resume     Command = "Resume"
	Stop       Command = "Stop"
	Halt       Command = "Halt"
)

// Action names bound by the standard definition.
const (
	ActionInitialize = "initialize"
	ActionConfigure  = "configure"
	ActionStart      = "start"
	ActionPause      = "pause"
	ActionResume     = "resume"
	ActionStop       = "stop"
	ActionHalt       = "halt"
	ActionFail       = "fail"
)

// Device is implemented by every resource driven by the standard lifecycle.
type Device interface {
	InitializeAction(ctx context.Context, tc TransitionContext) error
	ConfigureAction(ctx context.Context, tc TransitionContext) error
	StartAction(ctx context.Context, tc TransitionContext) error
	PauseAction(ctx context.Context, tc TransitionContext) error
	ResumeAction(ctx context.Context, tc TransitionContext) error
	StopAction(ctx context.Context, tc TransitionContext) error
	HaltAction(ctx context.Context, tc TransitionContext) error
	FailAction(ctx context.Context, tc TransitionContext) error
}

// DeviceActions exposes the device methods under the standard action names.
func DeviceActions(dev Device) ActionSet {
	return ActionSet{
		ActionInitialize: ActionFunc(dev.InitializeAction),
		ActionConfigure:  ActionFunc(dev.ConfigureAction),
		ActionStart:      ActionFunc(dev.StartAction),
		ActionPause:      ActionFunc(dev.PauseAction),
		ActionResume:     ActionFunc(dev.ResumeAction),
		ActionStop:       ActionFunc(dev.StopAction),
		ActionHalt:       ActionFunc(dev.HaltAction),
		ActionFail:       ActionFunc(dev.FailAction),
	}
}

// StandardDefinition describes the front-end lifecycle. The device action of
// a command runs on the automatic transition out of the transient state, so
// observers see e.g. Configuring while the device configures.
func StandardDefinition() *Definition {
	return &Definition{
		Initial:    Initial,
		Failed:     Failed,
		FailAction: ActionFail,
		States: []StateDefinition{
			{Id: Initial},
			{Id: Halted},
			{Id: Configured},
			{Id: Running},
			{Id: Paused},
			{Id: Failed},
			{Id: Initializing, Transient: true, Successor: "Initialized"},
			{Id: Configuring, Transient: true, Successor: "Configured"},
			{Id: Halting, Transient: true, Successor: "Halted"},
			{Id: Starting, Transient: true, Successor: "Running"},
			{Id: Pausing, Transient: true, Successor: "Paused"},
			{Id: Resuming, Transient: true, Successor: "Running"},
			{Id: Stopping, Transient: true, Successor: "Stopped"},
		},
		Transitions: []TransitionDefinition{
			{From: []State{Initial}, To: Halted, Command: Initialize, Action: ActionInitialize},
			{From: []State{Halted, Configured, Running, Paused}, To: Configuring, Command: Configure},
			{From: []State{Configured}, To: Starting, Command: Start},
			{From: []State{Running}, To: Pausing, Command: Pause},
			{From: []State{Paused}, To: Resuming, Command: Resume},
			{From: []State{Configured, Running, Paused}, To: Stopping, Command: Stop},
			{From: []State{Configured, Running, Failed, Halted, Paused}, To: Halting, Command: Halt},

			{From: []State{Initializing}, To: Halted, Command: "Initialized", Action: ActionInitialize},
			{From: []State{Configuring}, To: Configured, Command: "Configured", Action: ActionConfigure},
			{From: []State{Halting}, To: Halted, Command: "Halted", Action: ActionHalt},
			{From: []State{Starting}, To: Running, Command: "Running", Action: ActionStart},
			{From: []State{Pausing}, To: Paused, Command: "Paused", Action: ActionPause},
			{From: []State{Resuming}, To: Running, Command: "Running", Action: ActionResume},
			{From: []State{Stopping}, To: Configured, Command: "Stopped", Action: ActionStop},
		},
	}
}

func NewStandardRegistry(actions ActionSet) (*Registry, error) {
	return StandardDefinition().Build(actions)
}

// NewStandardMachine binds dev to the standard lifecycle and starts it in
// the Initial state.
func NewStandardMachine(dev Device, opts ...Option) (*Machine, error) {
	registry, err := NewStandardRegistry(DeviceActions(dev))
	if err != nil {
		return nil, err
	}
	return NewMachine(registry, opts...)
}
