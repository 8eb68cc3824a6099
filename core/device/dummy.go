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

package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/sirupsen/logrus"
)

// Dummy simulates a front-end: every action takes delay and succeeds unless
// its name is listed in failOn.
type Dummy struct {
	delay  time.Duration
	failOn map[string]struct{}

	mu        sync.Mutex
	performed []string
}

func NewDummy(delay time.Duration, failOn ...string) *Dummy {
	d := &Dummy{
		delay:  delay,
		failOn: make(map[string]struct{}, len(failOn)),
	}
	for _, action := range failOn {
		d.failOn[strings.ToLower(action)] = struct{}{}
	}
	return d
}

// Performed lists the actions run so far.
func (d *Dummy) Performed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.performed...)
}

func (d *Dummy) act(ctx context.Context, action string, tc lifecycle.TransitionContext) error {
	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	d.mu.Lock()
	d.performed = append(d.performed, action)
	d.mu.Unlock()

	log.WithFields(logrus.Fields{
		"device":         tc.Machine,
		"action":         action,
		"src":            tc.From,
		"dst":            tc.To,
		infologger.Level: infologger.IL_Devel,
	}).Debug("simulated action performed")

	if _, fail := d.failOn[action]; fail {
		return fmt.Errorf("simulated %s failure on %s", action, tc.Machine)
	}
	return nil
}

func (d *Dummy) InitializeAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return d.act(ctx, lifecycle.ActionInitialize, tc)
}

func (d *Dummy) ConfigureAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return d.act(ctx, lifecycle.ActionConfigure, tc)
}

func (d *Dummy) StartAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return d.act(ctx, lifecycle.ActionStart, tc)
}

func (d *Dummy) PauseAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return d.act(ctx, lifecycle.ActionPause, tc)
}

func (d *Dummy) ResumeAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return d.act(ctx, lifecycle.ActionResume, tc)
}

func (d *Dummy) StopAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return d.act(ctx, lifecycle.ActionStop, tc)
}

func (d *Dummy) HaltAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return d.act(ctx, lifecycle.ActionHalt, tc)
}

// FailAction only records the failure.
func (d *Dummy) FailAction(_ context.Context, tc lifecycle.TransitionContext) error {
	d.mu.Lock()
	d.performed = append(d.performed, lifecycle.ActionFail)
	d.mu.Unlock()

	log.WithField("device", tc.Machine).
		WithField(infologger.Level, infologger.IL_Ops).
		WithError(tc.Err).
		Warn("simulated device entered failed state")
	return nil
}
