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

// Package notify provides the observers and reporters a device lifecycle
// publishes its state changes and diagnostics to.
package notify

import (
	"github.com/AliceO2Group/fecctl/common/event"
	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "notify")

func stateChangedEvent(n lifecycle.Notification) *event.StateChangedEvent {
	return &event.StateChangedEvent{
		MachineId: n.MachineId.String(),
		Machine:   n.Machine,
		State:     string(n.State),
		StateName: n.StateName,
		Transient: n.Transient,
		Command:   string(n.Command),
		Message:   n.Message,
	}
}

func errorReportedEvent(r lifecycle.Diagnostic) *event.ErrorReportedEvent {
	e := &event.ErrorReportedEvent{
		MachineId: r.MachineId.String(),
		Machine:   r.Machine,
		Severity:  string(r.Severity),
		Level:     r.Level,
		Command:   string(r.Command),
		State:     string(r.State),
		Message:   r.Message,
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}
