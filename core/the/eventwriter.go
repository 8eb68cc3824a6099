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


// Package the holds the process-wide Kafka event writers of the daemon, one
// per topic.
package the

import (
	"sync"

	"github.com/AliceO2Group/fecctl/common/event"
	"github.com/AliceO2Group/fecctl/common/event/topic"
	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/sirupsen/logrus"
)

var (
	writers = make(map[topic.Topic]*event.Writer)
	mu      sync.Mutex
	log     = logger.New(logrus.StandardLogger(), "core")
)

func createOrGetWriter(t topic.Topic) *event.Writer {
	mu.Lock()
	defer mu.Unlock()

	if writer, ok := writers[t]; ok {
		return writer
	}

	log.WithField("topic", t).Debug("creating kafka producer")
	writers[t] = event.NewWriterWithTopic(t)
	return writers[t]
}

// StateChangedWriter publishes device state changes.
func StateChangedWriter() *event.Writer {
	return createOrGetWriter(topic.Ev_Device_StateChanged)
}

// ErrorReportedWriter publishes lifecycle diagnostics.
func ErrorReportedWriter() *event.Writer {
	return createOrGetWriter(topic.Ev_Device_ErrorReported)
}

func EventWriterWithTopic(t topic.Topic) *event.Writer {
	return createOrGetWriter(t)
}

// ClearEventWriters closes every producer and forgets it. Writers requested
// afterwards are created anew.
func ClearEventWriters() {
	mu.Lock()
	defer mu.Unlock()

	log.Logf(logrus.InfoLevel, "Clearing %d kafka producers", len(writers))
	for t, writer := range writers {
		if err := writer.Close(); err != nil {
			log.WithField("topic", t).WithError(err).Warn("cannot close kafka producer")
		}
	}
	clear(writers)
}
