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
	"errors"
	"time"

	"github.com/AliceO2Group/fecctl/common/utils/uid"
)

var ErrEmptyEnvelope = errors.New("event envelope carries no payload")

// StateChangedEvent is published whenever a device lifecycle enters a state,
// transient or terminal.
type StateChangedEvent struct {
	MachineId string `json:"machineId"`
	Machine   string `json:"machine"`
	State     string `json:"state"`
	StateName string `json:"stateName"`
	Transient bool   `json:"transient,omitempty"`
	Command   string `json:"command,omitempty"`
	Message   string `json:"message"`
}

// ErrorReportedEvent carries a diagnostic raised by a device lifecycle:
// rejected commands, failed actions and undeliverable notifications.
type ErrorReportedEvent struct {
	MachineId string `json:"machineId"`
	Machine   string `json:"machine"`
	Severity  string `json:"severity"`
	Level     int    `json:"level"`
	Command   string `json:"command,omitempty"`
	State     string `json:"state,omitempty"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// MetaEvent is emitted by the daemon itself, e.g. on startup and shutdown.
type MetaEvent struct {
	Message string `json:"message"`
	Devices int    `json:"devices"`
}

// Envelope is the wire format of every event written to Kafka. Exactly one
// of the payload fields is set.
type Envelope struct {
	Id            string              `json:"id"`
	Timestamp     int64               `json:"timestamp"`
	StateChanged  *StateChangedEvent  `json:"stateChanged,omitempty"`
	ErrorReported *ErrorReportedEvent `json:"errorReported,omitempty"`
	Meta          *MetaEvent          `json:"meta,omitempty"`
}

func newEnvelope(timestamp time.Time) *Envelope {
	return &Envelope{
		Id:        uid.New().String(),
		Timestamp: timestamp.UnixMilli(),
	}
}

// Time returns the envelope timestamp as a time.Time.
func (e *Envelope) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Payload returns whichever event the envelope carries.
func (e *Envelope) Payload() (interface{}, error) {
	switch {
	case e.StateChanged != nil:
		return e.StateChanged, nil
	case e.ErrorReported != nil:
		return e.ErrorReported, nil
	case e.Meta != nil:
		return e.Meta, nil
	}
	return nil, ErrEmptyEnvelope
}
