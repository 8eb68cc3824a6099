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
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type stateInfo struct {
	id           State
	name         string
	transient    bool
	successor    Command
	hasSuccessor bool
}

// Transition binds (From, Command) to a destination and an optional action.
type Transition struct {
	From    State
	To      State
	Command Command
	Action  Action
}

type transitionKey struct {
	from    State
	command Command
}

// Registry holds the states and transitions of a lifecycle. It is filled in
// by the Define* calls, checked by Validate and then copied into every
// Machine built from it, so later changes never reach a running machine.
type Registry struct {
	states      map[State]*stateInfo
	stateOrder  []State
	transitions map[transitionKey]Transition
	transOrder  []transitionKey

	initial    State
	failed     State
	failAction Action

	// problems found while defining, surfaced again by Validate
	defineErrors *multierror.Error
}

func NewRegistry() *Registry {
	return &Registry{
		states:      make(map[State]*stateInfo),
		transitions: make(map[transitionKey]Transition),
	}
}

func (r *Registry) DefineState(id State, name string) error {
	return r.defineState(id, name, false)
}

// DefineTransientState registers a state that the machine only passes
// through; it must later be given a successor command.
func (r *Registry) DefineTransientState(id State, name string) error {
	return r.defineState(id, name, true)
}

func (r *Registry) defineState(id State, name string, transient bool) error {
	if _, exists := r.states[id]; exists {
		err := DuplicateStateError{State: id}
		r.defineErrors = multierror.Append(r.defineErrors, err)
		return err
	}
	if name == "" {
		name = string(id)
	}
	r.states[id] = &stateInfo{id: id, name: name, transient: transient}
	r.stateOrder = append(r.stateOrder, id)
	return nil
}

// DefineTransition binds command from state from to state to. action may be
// nil, in which case the transition only changes the state.
func (r *Registry) DefineTransition(from State, to State, command Command, action Action) error {
	key := transitionKey{from: from, command: command}
	if existing, exists := r.transitions[key]; exists {
		err := ConflictingTransitionError{From: from, Command: command, Existing: existing.To, Requested: to}
		r.defineErrors = multierror.Append(r.defineErrors, err)
		return err
	}
	r.transitions[key] = Transition{From: from, To: to, Command: command, Action: action}
	r.transOrder = append(r.transOrder, key)
	return nil
}

// DefineTransientSuccessor records the command fired automatically once the
// machine lands on the transient state.
func (r *Registry) DefineTransientSuccessor(transient State, command Command) error {
	info, ok := r.states[transient]
	var err error
	switch {
	case !ok:
		err = fmt.Errorf("successor %s given for undefined state %s", command, transient)
	case !info.transient:
		err = fmt.Errorf("successor %s given for terminal state %s", command, transient)
	case info.hasSuccessor:
		err = fmt.Errorf("transient state %s already has successor %s", transient, info.successor)
	}
	if err != nil {
		err = IncompleteRegistryError{Err: err}
		r.defineErrors = multierror.Append(r.defineErrors, err)
		return err
	}
	info.successor = command
	info.hasSuccessor = true
	return nil
}

func (r *Registry) SetInitialState(s State) {
	r.initial = s
}

// SetFailedState names the state forced on action failure.
func (r *Registry) SetFailedState(s State) {
	r.failed = s
}

// SetFailAction registers the action invoked when the machine is forced into
// the failed state. Its own errors are reported but change nothing.
func (r *Registry) SetFailAction(a Action) {
	r.failAction = a
}

func (r *Registry) InitialState() State {
	return r.initial
}

func (r *Registry) FailedState() State {
	return r.failed
}

func (r *Registry) checkAnchor(problems *multierror.Error, role string, s State) *multierror.Error {
	if s == "" {
		return multierror.Append(problems, fmt.Errorf("%s state not set", role))
	}
	info, ok := r.states[s]
	if !ok {
		return multierror.Append(problems, fmt.Errorf("%s state %s is not defined", role, s))
	}
	if info.transient {
		return multierror.Append(problems, fmt.Errorf("%s state %s must not be transient", role, s))
	}
	return problems
}

// Validate checks that the registry can drive a machine: anchors defined and
// terminal, transitions between known states, and every transient state
// reaching a terminal one through its successor chain without cycles.
func (r *Registry) Validate() error {
	if r == nil {
		return IncompleteRegistryError{Err: fmt.Errorf("nil registry")}
	}
	problems := &multierror.Error{}
	if r.defineErrors != nil {
		problems.Errors = append(problems.Errors, r.defineErrors.Errors...)
	}
	problems = r.checkAnchor(problems, "initial", r.initial)
	problems = r.checkAnchor(problems, "failed", r.failed)

	for _, key := range r.transOrder {
		t := r.transitions[key]
		if _, ok := r.states[t.From]; !ok {
			problems = multierror.Append(problems,
				fmt.Errorf("transition %s leaves undefined state %s", t.Command, t.From))
		}
		if _, ok := r.states[t.To]; !ok {
			problems = multierror.Append(problems,
				fmt.Errorf("transition %s enters undefined state %s", t.Command, t.To))
		}
	}

	for _, id := range r.stateOrder {
		info := r.states[id]
		if !info.transient {
			continue
		}
		if !info.hasSuccessor {
			problems = multierror.Append(problems,
				fmt.Errorf("transient state %s has no successor command", id))
			continue
		}
		if _, ok := r.transitions[transitionKey{from: id, command: info.successor}]; !ok {
			problems = multierror.Append(problems,
				fmt.Errorf("successor %s of transient state %s has no transition", info.successor, id))
			continue
		}
		if err := r.checkChain(id); err != nil {
			problems = multierror.Append(problems, err)
		}
	}

	if err := problems.ErrorOrNil(); err != nil {
		return IncompleteRegistryError{Err: err}
	}
	return nil
}

// checkChain follows successor transitions from a transient state until a
// terminal one, failing on cycles. Broken links are reported elsewhere.
func (r *Registry) checkChain(start State) error {
	visited := map[State]struct{}{}
	current := start
	for {
		info, ok := r.states[current]
		if !ok || !info.transient {
			return nil
		}
		if _, seen := visited[current]; seen {
			return fmt.Errorf("transient state %s never settles: successor chain loops through %s", start, current)
		}
		visited[current] = struct{}{}
		if !info.hasSuccessor {
			return nil
		}
		t, ok := r.transitions[transitionKey{from: current, command: info.successor}]
		if !ok {
			return nil
		}
		current = t.To
	}
}

// Lookup returns the transition bound to (from, command).
func (r *Registry) Lookup(from State, command Command) (Transition, bool) {
	t, ok := r.transitions[transitionKey{from: from, command: command}]
	return t, ok
}

// Successor returns the command fired automatically from s, if s is transient.
func (r *Registry) Successor(s State) (Command, bool) {
	info, ok := r.states[s]
	if !ok || !info.transient || !info.hasSuccessor {
		return "", false
	}
	return info.successor, true
}

func (r *Registry) IsTransient(s State) bool {
	info, ok := r.states[s]
	return ok && info.transient
}

func (r *Registry) IsDefined(s State) bool {
	_, ok := r.states[s]
	return ok
}

// StateName returns the human-readable name of s, or its id if unknown.
func (r *Registry) StateName(s State) string {
	if info, ok := r.states[s]; ok {
		return info.name
	}
	return string(s)
}

// States lists the states in definition order.
func (r *Registry) States() []State {
	return append([]State{}, r.stateOrder...)
}

// Transitions lists the transitions in definition order.
func (r *Registry) Transitions() []Transition {
	out := make([]Transition, 0, len(r.transOrder))
	for _, key := range r.transOrder {
		out = append(out, r.transitions[key])
	}
	return out
}

// CommandsFrom lists the commands accepted in state s, in definition order.
func (r *Registry) CommandsFrom(s State) []Command {
	out := make([]Command, 0)
	for _, key := range r.transOrder {
		if key.from == s {
			out = append(out, key.command)
		}
	}
	return out
}

func (r *Registry) clone() *Registry {
	c := &Registry{
		states:      make(map[State]*stateInfo, len(r.states)),
		stateOrder:  append([]State{}, r.stateOrder...),
		transitions: make(map[transitionKey]Transition, len(r.transitions)),
		transOrder:  append([]transitionKey{}, r.transOrder...),
		initial:     r.initial,
		failed:      r.failed,
		failAction:  r.failAction,
	}
	for id, info := range r.states {
		copied := *info
		c.states[id] = &copied
	}
	for key, t := range r.transitions {
		c.transitions[key] = t
	}
	return c
}
