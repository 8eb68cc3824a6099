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
	"fmt"
	"time"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/core/metrics"
)

// rejectInvalid reports a command that has no transition from the current
// state. Nothing else happens: the machine stays where it was.
func (m *Machine) rejectInvalid(from State, command Command, err InvalidTransitionError) Outcome {
	reason := fmt.Sprintf("An invalid state transition has been received: command '%s' is not allowed in state '%s'.",
		command, m.registry.StateName(from))
	m.report(Diagnostic{
		Severity: infologger.Warning,
		Level:    infologger.IL_Support,
		Command:  command,
		State:    from,
		Message:  reason,
		Err:      err,
	})
	metrics.FailureCount.WithLabelValues(m.name, "invalid").Inc()
	return Outcome{
		Kind:   OutcomeRejected,
		State:  from,
		Reason: reason,
		Err:    err,
		Trail:  []State{},
	}
}

// escalateFailure reports the error, forces the failed state, runs the fail
// action and notifies the observer. It cannot itself fail.
func (m *Machine) escalateFailure(ctx context.Context, from State, command Command, cause error) Outcome {
	reason := fmt.Sprintf("Problem executing the '%s' command from state '%s': %s",
		command, m.registry.StateName(from), cause)
	m.report(Diagnostic{
		Severity: infologger.Error,
		Level:    infologger.IL_Ops,
		Command:  command,
		State:    from,
		Message:  reason,
		Err:      cause,
	})
	metrics.FailureCount.WithLabelValues(m.name, "action").Inc()

	failed := m.registry.failed
	m.sm.SetState(string(failed))

	if m.registry.failAction != nil {
		tc := m.transitionContext(command, from, failed, cause)
		if err := m.perform(ctx, m.registry.failAction, tc); err != nil {
			m.report(Diagnostic{
				Severity: infologger.Warning,
				Level:    infologger.IL_Support,
				Command:  command,
				State:    failed,
				Message:  "fail action returned an error",
				Err:      err,
			})
		}
	}

	m.notify(ctx, failed, command, reason)
	return Outcome{
		Kind:   OutcomeFailed,
		State:  failed,
		Reason: reason,
		Err:    cause,
		Trail:  []State{failed},
	}
}

func (m *Machine) notify(ctx context.Context, state State, command Command, message string) {
	n := Notification{
		MachineId: m.id,
		Machine:   m.name,
		State:     state,
		StateName: m.registry.StateName(state),
		Transient: m.registry.IsTransient(state),
		Command:   command,
		Message:   message,
		Timestamp: time.Now(),
	}
	metrics.StateEnteredCount.WithLabelValues(m.name, string(state)).Inc()
	m.log.WithField("state", state).
		WithField("command", command).
		WithField(infologger.Level, infologger.IL_Devel).
		Debug(message)

	if err := m.observer.Notify(ctx, n); err != nil {
		metrics.NotificationErrorCount.WithLabelValues(m.name).Inc()
		m.report(Diagnostic{
			Severity: infologger.Warning,
			Level:    infologger.IL_Devel,
			Command:  command,
			State:    state,
			Message:  "cannot notify state change",
			Err:      NotificationDeliveryError{State: state, Err: err},
		})
	}
}

func (m *Machine) report(r Diagnostic) {
	r.MachineId = m.id
	r.Machine = m.name
	r.Timestamp = time.Now()
	m.reporter.Report(r)
}
