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


package fecctl

import (
	"context"
	"errors"
	"net/http/httptest"

	"github.com/AliceO2Group/fecctl/core"
	"github.com/AliceO2Group/fecctl/core/device"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("client", func() {
	var (
		dm     *core.DeviceManager
		server *httptest.Server
		client *Client
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		dm, err = core.NewDeviceManagerFromConfig([]device.Config{
			{Name: "its-1"},
			{Name: "tpc-1"},
			{Name: "tpc-2", FailOn: []string{"configure"}},
		})
		Expect(err).NotTo(HaveOccurred())
		server = httptest.NewServer(core.NewHttpService(dm).Handler)
		client = NewClient(server.URL)
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
		Expect(dm.CloseAll()).To(Succeed())
	})

	It("should accept a bare HOST:PORT endpoint", func() {
		Expect(NewClient("127.0.0.1:47110").Endpoint()).To(Equal("http://127.0.0.1:47110"))
		Expect(NewClient("https://fec.cern.ch/").Endpoint()).To(Equal("https://fec.cern.ch"))
	})

	It("should list and filter devices", func() {
		devices, err := client.ListDevices(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(devices).To(HaveLen(3))

		devices, err = client.ListDevices(ctx, "tpc-*")
		Expect(err).NotTo(HaveOccurred())
		Expect(devices).To(HaveLen(2))
		Expect(devices[0].Name).To(Equal("tpc-1"))
	})

	It("should drive a device through its lifecycle", func() {
		reply, err := client.Control(ctx, "tpc-1", "Initialize")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.State).To(Equal("Halted"))
		Expect(reply.RequestId).NotTo(BeEmpty())

		reply, err = client.Control(ctx, "tpc-1", "Configure")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.State).To(Equal("Configured"))

		d, err := client.GetDevice(ctx, "tpc-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.State).To(Equal("Configured"))
		Expect(d.AvailableCommands).To(ContainElements("Start", "Stop", "Halt"))
	})

	It("should return the reply of a rejected command with a CommandError", func() {
		reply, err := client.Control(ctx, "its-1", "Start")
		var commandErr *CommandError
		Expect(errors.As(err, &commandErr)).To(BeTrue())
		Expect(commandErr.Rejected()).To(BeTrue())
		Expect(reply.State).To(Equal("Initial"))
		Expect(err.Error()).To(ContainSubstring("rejected"))
	})

	It("should return the reply of a failed command with a CommandError", func() {
		_, err := client.Control(ctx, "tpc-2", "Initialize")
		Expect(err).NotTo(HaveOccurred())

		reply, err := client.Control(ctx, "tpc-2", "Configure")
		var commandErr *CommandError
		Expect(errors.As(err, &commandErr)).To(BeTrue())
		Expect(commandErr.Rejected()).To(BeFalse())
		Expect(reply.State).To(Equal("Failed"))
	})

	It("should report unknown devices", func() {
		_, err := client.GetDevice(ctx, "emc-1")
		Expect(err).To(MatchError(ContainSubstring("emc-1")))

		_, err = client.Control(ctx, "emc-1", "Initialize")
		Expect(err).To(HaveOccurred())
		var commandErr *CommandError
		Expect(errors.As(err, &commandErr)).To(BeFalse())
	})

	It("should list transitions", func() {
		transitions, err := client.ListTransitions(ctx, "its-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(transitions).NotTo(BeEmpty())
	})

	It("should fetch the daemon version", func() {
		version, err := client.Version(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(HaveKey("name"))
	})
})
