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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AliceO2Group/fecctl/common/api"
	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/common/product"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/AliceO2Group/fecctl/core/metrics"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/iancoleman/strcase"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

const (
	requestIdHeader = "X-Request-Id"

	// nginx convention, the client closed the connection before an answer
	statusClientClosedRequest = 499
)

type HttpService struct {
	devices *DeviceManager
}

func writeJson(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	out, err := json.MarshalIndent(payload, "", "\t")
	if err != nil {
		log.WithError(err).Warn("Error, could not marshal HTTP response.")
		return
	}
	_, _ = fmt.Fprintln(w, string(out))
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJson(w, code, api.ErrorReply{Error: err.Error()})
}

func replyFromOutcome(device string, o lifecycle.Outcome) *api.Reply {
	trail := make([]string, len(o.Trail))
	for i, s := range o.Trail {
		trail[i] = string(s)
	}
	return &api.Reply{
		Device:    device,
		Command:   string(o.Command),
		Outcome:   o.Kind.String(),
		State:     string(o.State),
		StateName: o.StateName,
		Reason:    o.Reason,
		Trail:     trail,
		Timestamp: time.Now(),
	}
}

func deviceInfo(m *lifecycle.Machine) api.DeviceInfo {
	commands := m.AvailableCommands()
	info := api.DeviceInfo{
		Name:              m.Name(),
		Id:                m.Id().String(),
		State:             string(m.CurrentState()),
		StateName:         m.CurrentStateName(),
		Transient:         m.IsTransient(m.CurrentState()),
		CurrentTransition: string(m.CurrentTransition()),
		AvailableCommands: make([]string, len(commands)),
		QueueLength:       m.QueueLength(),
	}
	for i, c := range commands {
		info.AvailableCommands[i] = string(c)
	}
	if last, ok := m.LastOutcome(); ok {
		info.LastOutcome = replyFromOutcome(m.Name(), last)
	}
	return info
}

// statusForOutcome maps rejections to client faults and failures to server
// faults.
func statusForOutcome(o lifecycle.Outcome) int {
	switch o.Kind {
	case lifecycle.OutcomeSucceeded:
		return http.StatusOK
	case lifecycle.OutcomeRejected:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (httpsvc *HttpService) machineOrError(w http.ResponseWriter, r *http.Request) (*lifecycle.Machine, bool) {
	name := mux.Vars(r)["device"]
	m, err := httpsvc.devices.Machine(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return m, true
}

// ApiListDevices answers GET /devices, optionally filtered with a glob
// pattern in the match query argument.
func (httpsvc *HttpService) ApiListDevices(w http.ResponseWriter, r *http.Request) {
	var matcher glob.Glob
	if pattern := r.URL.Query().Get("match"); pattern != "" {
		var err error
		matcher, err = glob.Compile(pattern)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("bad match pattern: %w", err))
			return
		}
	}

	devices := make([]api.DeviceInfo, 0, httpsvc.devices.Len())
	for _, m := range httpsvc.devices.Machines() {
		if matcher != nil && !matcher.Match(m.Name()) {
			continue
		}
		devices = append(devices, deviceInfo(m))
	}
	writeJson(w, http.StatusOK, devices)
}

func (httpsvc *HttpService) ApiGetDevice(w http.ResponseWriter, r *http.Request) {
	m, ok := httpsvc.machineOrError(w, r)
	if !ok {
		return
	}
	writeJson(w, http.StatusOK, deviceInfo(m))
}

func (httpsvc *HttpService) ApiListTransitions(w http.ResponseWriter, r *http.Request) {
	m, ok := httpsvc.machineOrError(w, r)
	if !ok {
		return
	}
	transitions := m.Transitions()
	out := make([]api.TransitionInfo, len(transitions))
	for i, t := range transitions {
		out[i] = api.TransitionInfo{
			From:      string(t.From),
			To:        string(t.To),
			Command:   string(t.Command),
			Automatic: m.IsTransient(t.From),
			HasAction: t.Action != nil,
		}
	}
	writeJson(w, http.StatusOK, out)
}

// ApiControlDevice answers POST /devices/{device}/commands/{command}. The
// command name is accepted in any case style, e.g. "configure" or "CONFIGURE".
func (httpsvc *HttpService) ApiControlDevice(w http.ResponseWriter, r *http.Request) {
	m, ok := httpsvc.machineOrError(w, r)
	if !ok {
		return
	}
	raw := mux.Vars(r)["command"]
	if raw == "" {
		writeError(w, http.StatusBadRequest, errors.New("command not provided"))
		return
	}
	command := lifecycle.Command(strcase.ToCamel(raw))

	requestId := r.Header.Get(requestIdHeader)
	if requestId == "" {
		requestId = uuid.NewString()
	}
	w.Header().Set(requestIdHeader, requestId)

	clog := log.WithField("device", m.Name()).
		WithField("command", command).
		WithField("requestId", requestId)
	clog.WithField(infologger.Level, infologger.IL_Devel).Debug("command received")

	outcome, err := m.Handle(r.Context(), command)
	switch {
	case err == nil:
	case errors.Is(err, lifecycle.ErrMachineClosed):
		clog.WithError(err).Warn("command not handled")
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case r.Context().Err() != nil:
		// nobody is left to read a body
		clog.WithError(err).
			WithField(infologger.Level, infologger.IL_Devel).
			Debug("client gone before the command started")
		w.WriteHeader(statusClientClosedRequest)
		return
	default:
		clog.WithError(err).Error("command not handled")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	reply := replyFromOutcome(m.Name(), outcome)
	reply.RequestId = requestId
	writeJson(w, statusForOutcome(outcome), reply)
}

func (httpsvc *HttpService) ApiVersion(w http.ResponseWriter, _ *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{
		"name":    product.PRETTY_FULLNAME,
		"version": product.VERSION,
		"build":   product.BUILD,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sr, r)

		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HttpRequestCount.WithLabelValues(route, strconv.Itoa(sr.code)).Inc()
	})
}

func newHandlerForHttpService(httpsvc *HttpService) *mux.Router {
	router := mux.NewRouter()
	router.Use(countRequests)

	apiDevices := router.PathPrefix("/devices").Subrouter()
	// GET /devices
	apiDevices.HandleFunc("", httpsvc.ApiListDevices).Methods(http.MethodGet)
	apiDevices.HandleFunc("/", httpsvc.ApiListDevices).Methods(http.MethodGet)
	// GET /devices/{device}
	apiDevices.HandleFunc("/{device}", httpsvc.ApiGetDevice).Methods(http.MethodGet)
	// GET /devices/{device}/transitions
	apiDevices.HandleFunc("/{device}/transitions", httpsvc.ApiListTransitions).Methods(http.MethodGet)
	// POST /devices/{device}/commands/{command}
	apiDevices.HandleFunc("/{device}/commands/{command}", httpsvc.ApiControlDevice).Methods(http.MethodPost)

	router.HandleFunc("/version", httpsvc.ApiVersion).Methods(http.MethodGet)
	metricsPath := viper.GetString("metrics.path")
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	router.Handle(metricsPath, promhttp.Handler()).Methods(http.MethodGet)
	return router
}

// NewHttpService builds the HTTP command surface. Serve starts it.
func NewHttpService(devices *DeviceManager) (svr *http.Server) {
	httpsvc := &HttpService{
		devices: devices,
	}
	return &http.Server{
		Handler:     newHandlerForHttpService(httpsvc),
		Addr:        ":" + strconv.Itoa(viper.GetInt("httpListenPort")),
		ReadTimeout: 15 * time.Second,
	}
}

// Serve starts svr in the background. The returned channel yields the error
// that stopped it, unless svr was shut down.
func Serve(svr *http.Server) <-chan error {
	errs := make(chan error, 1)
	go func() {
		err := svr.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP service returned error")
			errs <- err
		}
	}()
	return errs
}
