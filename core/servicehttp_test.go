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


package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/AliceO2Group/fecctl/common/api"
	"github.com/AliceO2Group/fecctl/core/device"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HTTP command surface", func() {

	// The handler is exercised directly, no socket involved.
	var (
		dm       *DeviceManager
		handler  *mux.Router
		recorder *httptest.ResponseRecorder
	)

	serve := func(method string, target string) {
		req, err := http.NewRequest(method, target, nil)
		Expect(err).NotTo(HaveOccurred())
		handler.ServeHTTP(recorder, req)
	}

	decodeReply := func() api.Reply {
		var reply api.Reply
		Expect(json.NewDecoder(recorder.Body).Decode(&reply)).To(Succeed())
		return reply
	}

	BeforeEach(func() {
		var err error
		dm, err = NewDeviceManagerFromConfig([]device.Config{
			{Name: "fee-a"},
			{Name: "fee-b"},
			{Name: "tof-a", FailOn: []string{"start"}},
		})
		Expect(err).NotTo(HaveOccurred())
		handler = newHandlerForHttpService(&HttpService{devices: dm})
		recorder = httptest.NewRecorder()
	})

	AfterEach(func() {
		Expect(dm.CloseAll()).To(Succeed())
	})

	Describe("listing devices", func() {
		It("should return every device in its initial state", func() {
			serve(http.MethodGet, "/devices")
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var devices []api.DeviceInfo
			Expect(json.NewDecoder(recorder.Body).Decode(&devices)).To(Succeed())
			Expect(devices).To(HaveLen(3))
			Expect(devices[0].Name).To(Equal("fee-a"))
			Expect(devices[0].State).To(Equal("Initial"))
			Expect(devices[0].AvailableCommands).To(Equal([]string{"Initialize"}))
			Expect(devices[0].LastOutcome).To(BeNil())
		})

		It("should filter with a glob pattern", func() {
			serve(http.MethodGet, "/devices?match=fee-*")
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var devices []api.DeviceInfo
			Expect(json.NewDecoder(recorder.Body).Decode(&devices)).To(Succeed())
			Expect(devices).To(HaveLen(2))
			Expect(devices[1].Name).To(Equal("fee-b"))
		})

		It("should refuse a malformed pattern", func() {
			serve(http.MethodGet, "/devices?match=%5B")
			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("getting one device", func() {
		It("should answer 404 for an unknown device", func() {
			serve(http.MethodGet, "/devices/nope")
			Expect(recorder.Code).To(Equal(http.StatusNotFound))

			var reply api.ErrorReply
			Expect(json.NewDecoder(recorder.Body).Decode(&reply)).To(Succeed())
			Expect(reply.Error).To(ContainSubstring("nope"))
		})

		It("should show the last outcome", func() {
			m, _ := dm.Machine("fee-b")
			bringTo(m, lifecycle.Initialize)

			serve(http.MethodGet, "/devices/fee-b")
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var info api.DeviceInfo
			Expect(json.NewDecoder(recorder.Body).Decode(&info)).To(Succeed())
			Expect(info.State).To(Equal("Halted"))
			Expect(info.Transient).To(BeFalse())
			Expect(info.LastOutcome).NotTo(BeNil())
			Expect(info.LastOutcome.Command).To(Equal("Initialize"))
			Expect(info.LastOutcome.Outcome).To(Equal("SUCCEEDED"))
		})
	})

	Describe("listing transitions", func() {
		It("should mark the transitions out of transient states as automatic", func() {
			serve(http.MethodGet, "/devices/fee-a/transitions")
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var transitions []api.TransitionInfo
			Expect(json.NewDecoder(recorder.Body).Decode(&transitions)).To(Succeed())
			Expect(transitions).To(ContainElement(api.TransitionInfo{
				From: "Configuring", To: "Configured", Command: "Configured", Automatic: true, HasAction: true,
			}))
			Expect(transitions).To(ContainElement(api.TransitionInfo{
				From: "Halted", To: "Configuring", Command: "Configure", Automatic: false, HasAction: false,
			}))
		})
	})

	Describe("controlling a device", func() {
		It("should apply a valid command and report the state reached", func() {
			serve(http.MethodPost, "/devices/fee-a/commands/initialize")
			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Header().Get(requestIdHeader)).NotTo(BeEmpty())

			reply := decodeReply()
			Expect(reply.Command).To(Equal("Initialize"))
			Expect(reply.State).To(Equal("Halted"))
			Expect(reply.Outcome).To(Equal("SUCCEEDED"))
			Expect(reply.RequestId).To(Equal(recorder.Header().Get(requestIdHeader)))
		})

		It("should report the transient states passed through", func() {
			m, _ := dm.Machine("fee-a")
			bringTo(m, lifecycle.Initialize)

			serve(http.MethodPost, "/devices/fee-a/commands/configure")
			Expect(recorder.Code).To(Equal(http.StatusOK))
			reply := decodeReply()
			Expect(reply.State).To(Equal("Configured"))
			Expect(reply.Trail).To(Equal([]string{"Configuring", "Configured"}))
		})

		It("should keep the request id given by the client", func() {
			req, err := http.NewRequest(http.MethodPost, "/devices/fee-a/commands/initialize", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set(requestIdHeader, "req-42")
			handler.ServeHTTP(recorder, req)

			Expect(recorder.Header().Get(requestIdHeader)).To(Equal("req-42"))
			Expect(decodeReply().RequestId).To(Equal("req-42"))
		})

		It("should answer 400 to a command not allowed in the current state", func() {
			serve(http.MethodPost, "/devices/fee-a/commands/start")
			Expect(recorder.Code).To(Equal(http.StatusBadRequest))

			reply := decodeReply()
			Expect(reply.Outcome).To(Equal("REJECTED"))
			Expect(reply.State).To(Equal("Initial"))
			Expect(reply.Reason).NotTo(BeEmpty())

			m, _ := dm.Machine("fee-a")
			Expect(m.CurrentState()).To(Equal(lifecycle.Initial))
		})

		It("should answer 500 when the device action fails", func() {
			m, _ := dm.Machine("tof-a")
			bringTo(m, lifecycle.Initialize, lifecycle.Configure)

			serve(http.MethodPost, "/devices/tof-a/commands/start")
			Expect(recorder.Code).To(Equal(http.StatusInternalServerError))

			reply := decodeReply()
			Expect(reply.Outcome).To(Equal("FAILED"))
			Expect(reply.State).To(Equal("Failed"))
			Expect(reply.Reason).To(ContainSubstring("simulated start failure"))
		})

		It("should not start a command for a client that went away", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/devices/fee-a/commands/initialize", nil)
			Expect(err).NotTo(HaveOccurred())
			handler.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(statusClientClosedRequest))
			Expect(recorder.Body.Len()).To(BeZero())
			m, _ := dm.Machine("fee-a")
			Expect(m.CurrentState()).To(Equal(lifecycle.Initial))
		})

		It("should answer 503 once the device is closed", func() {
			m, _ := dm.Machine("fee-b")
			Expect(m.Close()).To(Succeed())

			serve(http.MethodPost, "/devices/fee-b/commands/initialize")
			Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))

			var reply api.ErrorReply
			Expect(json.NewDecoder(recorder.Body).Decode(&reply)).To(Succeed())
			Expect(reply.Error).To(ContainSubstring(lifecycle.ErrMachineClosed.Error()))
		})

		It("should answer 404 for an unknown device", func() {
			serve(http.MethodPost, "/devices/nope/commands/initialize")
			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})
	})

	It("should serve the version", func() {
		serve(http.MethodGet, "/version")
		Expect(recorder.Code).To(Equal(http.StatusOK))

		var version map[string]string
		Expect(json.NewDecoder(recorder.Body).Decode(&version)).To(Succeed())
		Expect(version).To(HaveKey("version"))
	})
})
