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

	"github.com/AliceO2Group/fecctl/common/utils/uid"
)

type State string

func (s State) String() string {
	return string(s)
}

type Command string

func (c Command) String() string {
	return string(c)
}

// TransitionContext describes the transition an action is performing.
// For the fail action, Err holds the error that caused the escalation.
type TransitionContext struct {
	MachineId uid.ID
	Machine   string
	Command   Command
	From      State
	To        State
	Err       error
}

// Action performs the resource-affecting work bound to a transition.
// A non-nil error sends the machine to its failed state.
type Action interface {
	Perform(ctx context.Context, tc TransitionContext) error
}

type ActionFunc func(ctx context.Context, tc TransitionContext) error

func (f ActionFunc) Perform(ctx context.Context, tc TransitionContext) error {
	return f(ctx, tc)
}

// ActionSet resolves the action names used by machine definitions.
type ActionSet map[string]Action
