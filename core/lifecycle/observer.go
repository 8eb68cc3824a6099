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
	"time"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/common/utils/uid"
	"github.com/sirupsen/logrus"
)

// Notification describes a state the machine has just entered.
type Notification struct {
	MachineId uid.ID
	Machine   string
	State     State
	StateName string
	Transient bool
	Command   Command
	Message   string
	Timestamp time.Time
}

// Observer receives every state change. Delivery is best effort: an error is
// reported and otherwise ignored.
type Observer interface {
	Notify(ctx context.Context, n Notification) error
}

type ObserverFunc func(ctx context.Context, n Notification) error

func (f ObserverFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Diagnostic is emitted by the machine for rejected commands, failed
// actions and undeliverable notifications.
type Diagnostic struct {
	MachineId uid.ID
	Machine   string
	Severity  infologger.Severity
	Level     int
	Command   Command
	State     State
	Message   string
	Err       error
	Timestamp time.Time
}

type DiagnosticReporter interface {
	Report(r Diagnostic)
}

type DiagnosticReporterFunc func(r Diagnostic)

func (f DiagnosticReporterFunc) Report(r Diagnostic) {
	f(r)
}

type nopObserver struct{}

func (nopObserver) Notify(context.Context, Notification) error { return nil }

// logReporter is the default reporter: it writes the report to the machine log.
type logReporter struct {
	log *logrus.Entry
}

func (l *logReporter) Report(r Diagnostic) {
	entry := l.log.WithFields(logrus.Fields{
		infologger.Level: r.Level,
		"command":        r.Command,
		"state":          r.State,
	})
	if r.Err != nil {
		entry = entry.WithError(r.Err)
	}
	entry.Log(r.Severity.LogrusLevel(), r.Message)
}
