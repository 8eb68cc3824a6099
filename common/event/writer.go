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

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AliceO2Group/fecctl/common/event/topic"
	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = logger.New(logrus.StandardLogger(), "event")

type Writer struct {
	*kafka.Writer

	writeFunction func(ctx context.Context, messages ...kafka.Message) error
}

// NewWriterWithTopic builds a writer for the brokers in the kafkaEndpoints
// configuration key.
func NewWriterWithTopic(topic topic.Topic) *Writer {
	return NewWriter(viper.GetStringSlice("kafkaEndpoints"), topic)
}

func NewWriter(endpoints []string, topic topic.Topic) *Writer {
	w := &Writer{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(endpoints...),
			Topic:                  string(topic),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
	w.writeFunction = w.Writer.WriteMessages
	return w
}

// WriteEvent writes the event stamped with the current time, logging any
// failure instead of returning it.
func (w *Writer) WriteEvent(e interface{}) {
	err := w.WriteEventWithTimestamp(context.Background(), e, time.Now())
	if err != nil {
		log.WithField("event", e).
			WithField(infologger.Level, infologger.IL_Support).
			Error(err.Error())
	}
}

func (w *Writer) WriteEventWithTimestamp(ctx context.Context, e interface{}, timestamp time.Time) error {
	envelope := newEnvelope(timestamp)
	switch e := e.(type) {
	case *StateChangedEvent:
		envelope.StateChanged = e
	case *ErrorReportedEvent:
		envelope.ErrorReported = e
	case *MetaEvent:
		envelope.Meta = e
	default:
		return fmt.Errorf("unsupported event type %T", e)
	}
	return w.doWriteEvent(ctx, envelope)
}

func (w *Writer) doWriteEvent(ctx context.Context, e *Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = w.writeFunction(ctx, kafka.Message{
		Key:   []byte(e.Id),
		Value: data,
		Time:  e.Time(),
	})
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
