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
	"time"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
)

// eventWriter is satisfied by *event.Writer.
type eventWriter interface {
	WriteEventWithTimestamp(ctx context.Context, e interface{}, timestamp time.Time) error
}

// KafkaObserver publishes state changes as StateChangedEvent envelopes.
type KafkaObserver struct {
	writer eventWriter
}

func NewKafkaObserver(writer eventWriter) *KafkaObserver {
	return &KafkaObserver{writer: writer}
}

func (o *KafkaObserver) Notify(ctx context.Context, n lifecycle.Notification) error {
	return o.writer.WriteEventWithTimestamp(ctx, stateChangedEvent(n), n.Timestamp)
}

// KafkaReporter publishes diagnostics as ErrorReportedEvent envelopes. A
// report that cannot be written is logged.
type KafkaReporter struct {
	writer eventWriter
}

func NewKafkaReporter(writer eventWriter) *KafkaReporter {
	return &KafkaReporter{writer: writer}
}

func (r *KafkaReporter) Report(report lifecycle.Diagnostic) {
	err := r.writer.WriteEventWithTimestamp(context.Background(), errorReportedEvent(report), report.Timestamp)
	if err != nil {
		log.WithField("machine", report.Machine).
			WithField(infologger.Level, infologger.IL_Support).
			WithError(err).
			Warn("cannot publish error report")
	}
}
