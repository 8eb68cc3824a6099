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


// Package core implements fecctld, the daemon that owns the lifecycle
// machines of the configured front-end devices and exposes them over HTTP.
package core

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/AliceO2Group/fecctl/common/event"
	"github.com/AliceO2Group/fecctl/common/event/topic"
	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/common/product"
	"github.com/AliceO2Group/fecctl/common/utils"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/AliceO2Group/fecctl/core/metrics"
	"github.com/AliceO2Group/fecctl/core/notify"
	"github.com/AliceO2Group/fecctl/core/the"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = logger.New(logrus.StandardLogger(), "core")

const (
	fileLimitWant = 65536
	fileLimitMin  = 8192
)

// notifiers collects the observers and reporters enabled by configuration.
type notifiers struct {
	observer notify.Fanout
	reporter notify.MultiReporter
	closers  []func() error
}

func newNotifiers(ctx context.Context) (*notifiers, error) {
	lifecycleLog := log.WithPrefix("lifecycle")
	n := &notifiers{
		observer: notify.Fanout{notify.NewLogObserver(lifecycleLog)},
		reporter: notify.MultiReporter{notify.NewLogReporter(lifecycleLog)},
	}

	if viper.GetBool("kafka.enabled") {
		n.observer = append(n.observer, notify.NewKafkaObserver(the.StateChangedWriter()))
		n.reporter = append(n.reporter, notify.NewKafkaReporter(the.ErrorReportedWriter()))
		log.WithField("brokers", viper.GetStringSlice("kafkaEndpoints")).
			WithField(infologger.Level, infologger.IL_Support).
			Info("publishing lifecycle events to Kafka")
	}

	if url := viper.GetString("stateListener.url"); url != "" {
		n.observer = append(n.observer, notify.NewHTTPObserver(url, viper.GetDuration("stateListener.timeout")))
		log.WithField("url", url).
			WithField(infologger.Level, infologger.IL_Support).
			Info("notifying state listener")
	}

	if address := viper.GetString("redis.address"); address != "" {
		ro, err := notify.NewRedisObserver(ctx, address, viper.GetString("redis.channel"))
		if err != nil {
			return nil, err
		}
		n.observer = append(n.observer, ro)
		n.closers = append(n.closers, ro.Close)
	}
	return n, nil
}

func (n *notifiers) close() {
	for _, closeFunc := range n.closers {
		if err := closeFunc(); err != nil {
			log.WithError(err).Warn("cannot close notifier")
		}
	}
}

// initializeAll sends Initialize to every device still in its initial state.
func initializeAll(ctx context.Context, devices *DeviceManager) {
	for _, m := range devices.Machines() {
		if m.CurrentState() != lifecycle.Initial {
			continue
		}
		outcome, err := m.Handle(ctx, lifecycle.Initialize)
		if err != nil {
			log.WithField("device", m.Name()).WithError(err).Error("cannot initialize device")
			continue
		}
		if !outcome.Ok() {
			log.WithField("device", m.Name()).
				WithField("outcome", outcome.Kind).
				WithField("state", outcome.State).
				Warn(outcome.Reason)
		}
	}
}

// Run is the entry point for the daemon. It returns only if the HTTP
// service cannot run; SIGINT and SIGTERM end the process.
func Run() error {
	if viper.GetBool("veryVerbose") {
		log.WithField("configuration", viper.AllSettings()).Debug("core starting up")
	}
	log.WithField(infologger.Level, infologger.IL_Support).Infof("%s core (%s v%s build %s) starting up", product.PRETTY_FULLNAME, product.PRETTY_SHORTNAME, product.VERSION, product.BUILD)

	metrics.Register()

	// Shell devices spawn a process per action
	if err := setLimits(); err != nil {
		log.WithError(err).Warn("cannot raise the open file limit")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configs, err := deviceConfigs(viper.GetViper())
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		log.WithField(infologger.Level, infologger.IL_Ops).Warn("no devices configured")
	}

	n, err := newNotifiers(ctx)
	if err != nil {
		return err
	}

	buildStart := time.Now()
	devices, err := NewDeviceManagerFromConfig(configs,
		lifecycle.WithObserver(n.observer),
		lifecycle.WithReporter(n.reporter),
	)
	if err != nil {
		n.close()
		return err
	}

	utils.TimeTrack(buildStart, fmt.Sprintf("building %d device lifecycles", devices.Len()), log.WithPrefix("core"))

	svr := NewHttpService(devices)

	// Set up channel to receive Unix Signals
	signals(devices, func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := svr.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP service did not shut down cleanly")
		}
		writeMetaEvent("core stop", devices.Len())
		n.close()
		the.ClearEventWriters()
		cancel()
	})

	writeMetaEvent("core start", devices.Len())

	if viper.GetBool("initializeOnStartup") {
		initializeAll(ctx, devices)
	}

	serveErrs := Serve(svr)
	log.WithField(infologger.Level, infologger.IL_Devel).
		Infof("Everything initiated and listening on HTTP port: %d", viper.GetInt("httpListenPort"))

	err = <-serveErrs
	_ = devices.CloseAll()
	n.close()
	the.ClearEventWriters()
	return fmt.Errorf("HTTP service failed: %w", err)
}

func writeMetaEvent(message string, devices int) {
	if !viper.GetBool("kafka.enabled") {
		return
	}
	the.EventWriterWithTopic(topic.Ev_Meta).WriteEvent(&event.MetaEvent{
		Message: message,
		Devices: devices,
	})
}

func setLimits() error {
	var rLimit syscall.Rlimit

	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return err
	}
	if rLimit.Cur > fileLimitWant {
		return nil
	}
	if rLimit.Max < fileLimitMin {
		return fmt.Errorf("need at least %v file descriptors", fileLimitMin)
	}
	if rLimit.Max < fileLimitWant {
		rLimit.Cur = rLimit.Max
	} else {
		rLimit.Cur = fileLimitWant
	}
	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		// try min value
		rLimit.Cur = fileLimitMin
		return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	}
	return nil
}
