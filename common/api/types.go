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


// Package api holds the JSON documents exchanged between the fecctl daemon
// and its clients.
package api

import "time"

type DeviceInfo struct {
	Name              string   `json:"name"`
	Id                string   `json:"id"`
	State             string   `json:"state"`
	StateName         string   `json:"stateName"`
	Transient         bool     `json:"transient"`
	CurrentTransition string   `json:"currentTransition,omitempty"`
	AvailableCommands []string `json:"availableCommands"`
	QueueLength       int      `json:"queueLength"`
	LastOutcome       *Reply   `json:"lastOutcome,omitempty"`
}

type TransitionInfo struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Command string `json:"command"`
	// Automatic is set on the transitions taken out of transient states.
	Automatic bool `json:"automatic"`
	HasAction bool `json:"hasAction"`
}

// CommandRequest is the body of a device control call.
type CommandRequest struct {
	Command string `json:"command"`
}

// Reply answers a control call with the command name and the state reached.
type Reply struct {
	RequestId string    `json:"requestId,omitempty"`
	Device    string    `json:"device"`
	Command   string    `json:"command"`
	Outcome   string    `json:"outcome"`
	State     string    `json:"state"`
	StateName string    `json:"stateName"`
	Reason    string    `json:"reason,omitempty"`
	Trail     []string  `json:"trail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorReply struct {
	Error string `json:"error"`
}
