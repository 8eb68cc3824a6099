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

type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota
	OutcomeRejected
	OutcomeFailed
)

var _outcomeNames = []string{
	"SUCCEEDED",
	"REJECTED",
	"FAILED",
}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(_outcomeNames) {
		return "UNKNOWN"
	}
	return _outcomeNames[k]
}

// Outcome is the result of handling one command, auto-advance included.
type Outcome struct {
	Kind      OutcomeKind
	Command   Command
	State     State
	StateName string
	// Reason is the diagnostic for OutcomeRejected and OutcomeFailed outcomes.
	Reason string
	Err    error
	// Trail lists the states entered while handling the command.
	Trail []State
}

func (o Outcome) Ok() bool {
	return o.Kind == OutcomeSucceeded
}
