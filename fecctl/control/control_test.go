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


package control

import (
	"strings"
	"time"

	"github.com/AliceO2Group/fecctl/common/api"
	"github.com/AliceO2Group/fecctl/common/event"
	"github.com/gobwas/glob"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("control helpers", func() {
	Describe("confirmation", func() {
		It("should be required for Stop and Halt in any case style", func() {
			Expect(needsConfirmation("halt")).To(BeTrue())
			Expect(needsConfirmation("Stop")).To(BeTrue())
			Expect(needsConfirmation("configure")).To(BeFalse())
			Expect(needsConfirmation("start")).To(BeFalse())
		})
	})

	Describe("rendering events", func() {
		var ts = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

		It("should render state changes of matching devices", func() {
			e := &event.Envelope{
				Timestamp: ts,
				StateChanged: &event.StateChangedEvent{
					Machine: "tpc-1",
					State:   "Configuring",
					Command: "Configure",
				},
			}
			line, ok := formatEnvelope(e, glob.MustCompile("tpc-*"))
			Expect(ok).To(BeTrue())
			Expect(line).To(ContainSubstring("tpc-1"))
			Expect(line).To(ContainSubstring("Configuring on Configure"))

			_, ok = formatEnvelope(e, glob.MustCompile("its-*"))
			Expect(ok).To(BeFalse())
		})

		It("should render error reports with their severity", func() {
			e := &event.Envelope{
				Timestamp: ts,
				ErrorReported: &event.ErrorReportedEvent{
					Machine:  "tpc-1",
					Severity: "E",
					Message:  "cannot configure",
				},
			}
			line, ok := formatEnvelope(e, nil)
			Expect(ok).To(BeTrue())
			Expect(line).To(ContainSubstring("[E] cannot configure"))
		})

		It("should skip empty envelopes", func() {
			_, ok := formatEnvelope(&event.Envelope{Timestamp: ts}, nil)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("drawing", func() {
		It("should draw one branch per source state", func() {
			var out strings.Builder
			drawTransitions("tpc-1", []api.TransitionInfo{
				{From: "Halted", To: "Configuring", Command: "Configure"},
				{From: "Configuring", To: "Configured", Command: "Configured", Automatic: true, HasAction: true},
				{From: "Configured", To: "Configuring", Command: "Configure"},
			}, &out)

			tree := out.String()
			Expect(tree).To(HavePrefix("tpc-1"))
			Expect(strings.Count(tree, "Configure --> Configuring")).To(Equal(2))
			Expect(tree).To(ContainSubstring("[auto]  Configured --> Configured [action]"))
		})

		It("should list devices in a table", func() {
			var out strings.Builder
			drawTableDevices([]api.DeviceInfo{
				{Name: "tpc-1", State: "Running", AvailableCommands: []string{"Pause", "Stop"}},
				{Name: "tpc-2", State: "Failed", LastOutcome: &api.Reply{Command: "Start", Outcome: "FAILED"}},
			}, &out)

			table := out.String()
			Expect(table).To(ContainSubstring("tpc-1"))
			Expect(table).To(ContainSubstring("Pause, Stop"))
			Expect(table).To(ContainSubstring("Start FAILED"))
		})
	})
})
