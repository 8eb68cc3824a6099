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
	"os"
	"os/signal"
	"syscall"

	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/spf13/viper"
)

// signals brings the devices down on SIGINT or SIGTERM, runs shutdown and
// exits with 128+signal.
func signals(devices *DeviceManager, shutdown func()) {

	// Create channel to receive unix signals
	signal_chan := make(chan os.Signal, 1)

	//Register channel to receive SIGINT and SIGTERM signals
	signal.Notify(signal_chan,
		syscall.SIGINT,
		syscall.SIGTERM)

	// Goroutine executes a blocking receive for signals
	go func() {
		s := <-signal_chan
		ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("shutdownTimeout"))
		manageKillSignals(ctx, devices)
		cancel()
		shutdown()

		switch s {
		case syscall.SIGINT:
			os.Exit(130) // 128+2
		case syscall.SIGTERM:
			os.Exit(143) // 128+15
		}
	}()
}

// manageKillSignals brings every device down to Halted where the standard
// lifecycle allows it, then closes all machines.
func manageKillSignals(ctx context.Context, devices *DeviceManager) {
	tlog := log.WithPrefix("termination")

	for _, m := range devices.Machines() {
		dlog := tlog.WithField("device", m.Name())

		// This might transition to Configured if needed, or do nothing if we're already there
		if state := m.CurrentState(); state == lifecycle.Running || state == lifecycle.Paused {
			outcome, err := m.Handle(ctx, lifecycle.Stop)
			if err != nil || !outcome.Ok() {
				dlog.WithError(err).
					WithField("reason", outcome.Reason).
					Errorf("cannot transition device from %s to %s", state, lifecycle.Configured)
			}
		}

		// This might transition to Halted if needed, or do nothing if we're already there
		if m.CurrentState() == lifecycle.Configured {
			outcome, err := m.Handle(ctx, lifecycle.Halt)
			if err != nil || !outcome.Ok() {
				dlog.WithError(err).
					WithField("reason", outcome.Reason).
					Errorf("cannot transition device from %s to %s", lifecycle.Configured, lifecycle.Halted)
			}
		}
	}

	if err := devices.CloseAll(); err != nil {
		tlog.WithError(err).Error("cannot close device lifecycles")
	}
}
