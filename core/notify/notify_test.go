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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/AliceO2Group/fecctl/common/event"
	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/common/utils/uid"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func sampleNotification() lifecycle.Notification {
	return lifecycle.Notification{
		MachineId: uid.ID("cafe"),
		Machine:   "fe-1",
		State:     lifecycle.Configured,
		StateName: "Configured",
		Command:   "Configured",
		Message:   "Normal state change.",
		Timestamp: time.UnixMilli(1700000000000),
	}
}

type fakeWriter struct {
	mu     sync.Mutex
	events []interface{}
	times  []time.Time
	err    error
}

func (w *fakeWriter) WriteEventWithTimestamp(_ context.Context, e interface{}, ts time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, e)
	w.times = append(w.times, ts)
	return w.err
}

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	return redis.NewIntResult(1, p.err)
}

var _ = Describe("Fanout", func() {
	It("delivers to every observer and aggregates failures", func() {
		var delivered []string
		ok := lifecycle.ObserverFunc(func(_ context.Context, n lifecycle.Notification) error {
			delivered = append(delivered, "ok:"+n.StateName)
			return nil
		})
		bad := lifecycle.ObserverFunc(func(context.Context, lifecycle.Notification) error {
			delivered = append(delivered, "bad")
			return errors.New("listener down")
		})

		err := Fanout{bad, nil, ok, bad}.Notify(context.Background(), sampleNotification())
		Expect(delivered).To(Equal([]string{"bad", "ok:Configured", "bad"}))
		Expect(err).To(MatchError(ContainSubstring("2 errors occurred")))

		Expect(Fanout{ok}.Notify(context.Background(), sampleNotification())).To(Succeed())
	})

	It("hands reports to every reporter", func() {
		count := 0
		r := lifecycle.DiagnosticReporterFunc(func(lifecycle.Diagnostic) { count++ })
		MultiReporter{r, nil, r}.Report(lifecycle.Diagnostic{})
		Expect(count).To(Equal(2))
	})
})

var _ = Describe("Log observer and reporter", func() {
	var (
		logger *logrus.Logger
		hook   *test.Hook
	)

	BeforeEach(func() {
		logger, hook = test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
	})

	It("logs terminal states at info and transient ones at debug", func() {
		o := NewLogObserver(logrus.NewEntry(logger))
		Expect(o.Notify(context.Background(), sampleNotification())).To(Succeed())
		Expect(hook.LastEntry().Level).To(Equal(logrus.InfoLevel))
		Expect(hook.LastEntry().Message).To(Equal("Configured: Normal state change."))

		n := sampleNotification()
		n.Transient = true
		Expect(o.Notify(context.Background(), n)).To(Succeed())
		Expect(hook.LastEntry().Level).To(Equal(logrus.DebugLevel))
	})

	It("maps report severities to log levels", func() {
		r := NewLogReporter(logrus.NewEntry(logger))
		r.Report(lifecycle.Diagnostic{
			Machine:  "fe-1",
			Severity: infologger.Error,
			Level:    infologger.IL_Ops,
			Message:  "configure failed",
			Err:      errors.New("boom"),
		})
		entry := hook.LastEntry()
		Expect(entry.Level).To(Equal(logrus.ErrorLevel))
		Expect(entry.Data[infologger.Level]).To(Equal(infologger.IL_Ops))
		Expect(entry.Data[logrus.ErrorKey]).To(MatchError("boom"))
	})
})

var _ = Describe("HTTPObserver", func() {
	var (
		server   *httptest.Server
		received chan *event.StateChangedEvent
		status   int
	)

	BeforeEach(func() {
		received = make(chan *event.StateChangedEvent, 1)
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(r.Header.Get("X-Machine-Id")).To(Equal("cafe"))
			body, err := io.ReadAll(r.Body)
			Expect(err).NotTo(HaveOccurred())
			e := &event.StateChangedEvent{}
			Expect(json.Unmarshal(body, e)).To(Succeed())
			received <- e
			w.WriteHeader(status)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("posts the notification to the state listener", func() {
		o := NewHTTPObserver(server.URL, time.Second)
		Expect(o.Notify(context.Background(), sampleNotification())).To(Succeed())

		var e *event.StateChangedEvent
		Eventually(received).Should(Receive(&e))
		Expect(e.Machine).To(Equal("fe-1"))
		Expect(e.State).To(Equal("Configured"))
		Expect(e.Message).To(Equal("Normal state change."))
	})

	It("fails on a non-2xx reply", func() {
		status = http.StatusServiceUnavailable
		o := NewHTTPObserver(server.URL, 0)
		Expect(o.Notify(context.Background(), sampleNotification())).To(MatchError(ContainSubstring("503")))
	})

	It("fails when the listener is gone", func() {
		url := server.URL
		server.Close()
		o := NewHTTPObserver(url, time.Second)
		Expect(o.Notify(context.Background(), sampleNotification())).To(MatchError(ContainSubstring("unreachable")))
	})
})

var _ = Describe("Kafka observer and reporter", func() {
	It("writes a state changed event with the notification timestamp", func() {
		w := &fakeWriter{}
		Expect(NewKafkaObserver(w).Notify(context.Background(), sampleNotification())).To(Succeed())
		Expect(w.events).To(HaveLen(1))
		e, ok := w.events[0].(*event.StateChangedEvent)
		Expect(ok).To(BeTrue())
		Expect(e.MachineId).To(Equal("cafe"))
		Expect(w.times[0]).To(Equal(time.UnixMilli(1700000000000)))
	})

	It("writes error reports and swallows write failures", func() {
		w := &fakeWriter{err: errors.New("no brokers")}
		NewKafkaReporter(w).Report(lifecycle.Diagnostic{
			Machine:  "fe-1",
			Severity: infologger.Warning,
			Message:  "invalid command",
			Err:      errors.New("bad"),
		})
		Expect(w.events).To(HaveLen(1))
		e := w.events[0].(*event.ErrorReportedEvent)
		Expect(e.Severity).To(Equal("W"))
		Expect(e.Error).To(Equal("bad"))
	})
})

var _ = Describe("RedisObserver", func() {
	It("publishes the notification as JSON", func() {
		p := &fakePublisher{}
		o := NewRedisObserverWithClient(p, "fecctl.state")
		Expect(o.Notify(context.Background(), sampleNotification())).To(Succeed())
		Expect(p.channel).To(Equal("fecctl.state"))

		e := &event.StateChangedEvent{}
		Expect(json.Unmarshal(p.payload, e)).To(Succeed())
		Expect(e.StateName).To(Equal("Configured"))
		Expect(o.Close()).To(Succeed())
	})

	It("returns publish failures", func() {
		p := &fakePublisher{err: errors.New("connection refused")}
		o := NewRedisObserverWithClient(p, "fecctl.state")
		Expect(o.Notify(context.Background(), sampleNotification())).To(MatchError(ContainSubstring("connection refused")))
	})

	It("refuses a non-redis URL", func() {
		_, err := NewRedisObserver(context.Background(), "http://localhost:6379", "c")
		Expect(err).To(HaveOccurred())
	})
})
