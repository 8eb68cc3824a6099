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

package notify

import (
	"context"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/sirupsen/logrus"
)

// LogObserver writes every state change to the log.
type LogObserver struct {
	log *logrus.Entry
}

func NewLogObserver(entry *logrus.Entry) *LogObserver {
	if entry == nil {
		entry = log.WithPrefix("state")
	}
	return &LogObserver{log: entry}
}

func (o *LogObserver) Notify(_ context.Context, n lifecycle.Notification) error {
	entry := o.log.WithFields(logrus.Fields{
		"machine":        n.Machine,
		"state":          n.State,
		"command":        n.Command,
		infologger.Level: infologger.IL_Ops,
	})
	if n.Transient {
		entry.Debugf("%s: %s", n.StateName, n.Message)
		return nil
	}
	entry.Infof("%s: %s", n.StateName, n.Message)
	return nil
}

// LogReporter writes diagnostics to the log at the level matching their severity.
type LogReporter struct {
	log *logrus.Entry
}

func NewLogReporter(entry *logrus.Entry) *LogReporter {
	if entry == nil {
		entry = log.WithPrefix("report")
	}
	return &LogReporter{log: entry}
}

func (r *LogReporter) Report(report lifecycle.Diagnostic) {
	entry := r.log.WithFields(logrus.Fields{
		"machine":        report.Machine,
		"state":          report.State,
		"command":        report.Command,
		infologger.Level: report.Level,
	})
	if report.Err != nil {
		entry = entry.WithError(report.Err)
	}
	entry.Log(report.Severity.LogrusLevel(), report.Message)
}
