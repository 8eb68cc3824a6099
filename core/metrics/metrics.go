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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Subsystem = "fecctl_lifecycle"
)

var (
	CommandCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "command_count",
		Help:      "The number of commands handled, by device, command and outcome.",
	}, []string{"machine", "command", "outcome"})
	CommandLatency = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Subsystem: Subsystem,
		Name:      "command_latency",
		Help:      "Time to handle a command including automatic follow-ups, by device and command.",
	}, []string{"machine", "command"})
	ActionLatency = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Subsystem: Subsystem,
		Name:      "action_latency",
		Help:      "Time spent in device actions, by device and transition command.",
	}, []string{"machine", "command"})
	FailureCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "failure_count",
		Help:      "The number of escalated failures, by device and kind (invalid, action).",
	}, []string{"machine", "kind"})
	NotificationErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "notification_error_count",
		Help:      "The number of state change notifications the observer could not deliver.",
	}, []string{"machine"})
	StateEnteredCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "state_entered_count",
		Help:      "The number of times a device entered a state.",
	}, []string{"machine", "state"})
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: Subsystem,
		Name:      "queue_depth",
		Help:      "Commands waiting for a device lifecycle to become free.",
	}, []string{"machine"})
	HttpRequestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "http_request_count",
		Help:      "The number of requests served by the HTTP command surface, by route and status code.",
	}, []string{"route", "code"})
)

var registerMetrics sync.Once

func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(CommandCount)
		prometheus.MustRegister(CommandLatency)
		prometheus.MustRegister(ActionLatency)
		prometheus.MustRegister(FailureCount)
		prometheus.MustRegister(NotificationErrorCount)
		prometheus.MustRegister(StateEnteredCount)
		prometheus.MustRegister(QueueDepth)
		prometheus.MustRegister(HttpRequestCount)
	})
}
