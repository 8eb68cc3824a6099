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
	"errors"
	"fmt"
)

var (
	// ErrRegistryConstruction is matched by every error raised while
	// defining or validating a state registry.
	ErrRegistryConstruction = errors.New("invalid state registry")
	ErrMachineClosed        = errors.New("lifecycle machine closed")
)

type DuplicateStateError struct {
	State State
}

func (e DuplicateStateError) Error() string {
	return fmt.Sprintf("state %s already defined", e.State)
}

func (e DuplicateStateError) Is(target error) bool {
	return target == ErrRegistryConstruction
}

type ConflictingTransitionError struct {
	From      State
	Command   Command
	Existing  State
	Requested State
}

func (e ConflictingTransitionError) Error() string {
	return fmt.Sprintf("command %s from state %s already leads to %s, cannot also lead to %s",
		e.Command, e.From, e.Existing, e.Requested)
}

func (e ConflictingTransitionError) Is(target error) bool {
	return target == ErrRegistryConstruction
}

// IncompleteRegistryError aggregates every problem found by Validate.
type IncompleteRegistryError struct {
	Err error
}

func (e IncompleteRegistryError) Error() string {
	return fmt.Sprintf("incomplete state registry: %s", e.Err)
}

func (e IncompleteRegistryError) Unwrap() error {
	return e.Err
}

func (e IncompleteRegistryError) Is(target error) bool {
	return target == ErrRegistryConstruction
}

// InvalidTransitionError means the command has no transition from the state
// the machine was in. The machine stays where it was.
type InvalidTransitionError struct {
	State     State
	StateName string
	Command   Command
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("command %s is not valid in state %s", e.Command, e.StateName)
}

// HandlerFailureError wraps the error returned (or the panic raised) by a
// transition action. The machine is forced into its failed state.
type HandlerFailureError struct {
	State   State
	Command Command
	Err     error
}

func (e HandlerFailureError) Error() string {
	return fmt.Sprintf("action for command %s from state %s failed: %s", e.Command, e.State, e.Err)
}

func (e HandlerFailureError) Unwrap() error {
	return e.Err
}

// NotificationDeliveryError is reported when the observer refuses a
// notification. It never alters the state of the machine.
type NotificationDeliveryError struct {
	State State
	Err   error
}

func (e NotificationDeliveryError) Error() string {
	return fmt.Sprintf("cannot deliver state change notification for %s: %s", e.State, e.Err)
}

func (e NotificationDeliveryError) Unwrap() error {
	return e.Err
}
