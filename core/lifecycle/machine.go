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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AliceO2Group/fecctl/common/event"
	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/common/utils/uid"
	"github.com/AliceO2Group/fecctl/core/metrics"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "lifecycle")

const normalStateChangeMessage = "Normal state change."

const (
	requestPending int32 = iota
	requestStarted
	requestAbandoned
)

type request struct {
	ctx     context.Context
	command Command
	status  atomic.Int32
	result  chan Outcome
}

func newRequest(ctx context.Context, command Command) *request {
	return &request{
		ctx:     ctx,
		command: command,
		result:  make(chan Outcome, 1),
	}
}

func (r *request) start() bool {
	return r.status.CompareAndSwap(requestPending, requestStarted)
}

func (r *request) abandon() bool {
	return r.status.CompareAndSwap(requestPending, requestAbandoned)
}

type Option func(m *Machine)

// WithName sets the display name used in logs, notifications and metrics.
func WithName(name string) Option {
	return func(m *Machine) {
		m.name = name
	}
}

func WithId(id uid.ID) Option {
	return func(m *Machine) {
		m.id = id
	}
}

func WithObserver(o Observer) Option {
	return func(m *Machine) {
		if o != nil {
			m.observer = o
		}
	}
}

func WithReporter(r DiagnosticReporter) Option {
	return func(m *Machine) {
		m.reporter = r
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(m *Machine) {
		m.log = l
	}
}

// Machine drives one controlled resource through the lifecycle described by
// its registry. Commands from any goroutine are queued and applied one at a
// time by a single internal loop.
type Machine struct {
	id       uid.ID
	name     string
	registry *Registry
	sm       *fsm.FSM
	observer Observer
	reporter DiagnosticReporter
	log      *logrus.Entry

	queue     *event.FifoBuffer[*request]
	loopDone  chan struct{}
	closeOnce sync.Once

	mu                sync.RWMutex
	currentTransition Command
	lastOutcome       *Outcome
}

// NewMachine validates the registry and starts a machine in its initial state.
func NewMachine(registry *Registry, opts ...Option) (*Machine, error) {
	if err := registry.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		id:       uid.New(),
		registry: registry.clone(),
		observer: nopObserver{},
		queue:    event.NewFifoBuffer[*request](),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.name == "" {
		m.name = m.id.String()
	}
	if m.log == nil {
		m.log = log.WithMachine(m.name)
	}
	if m.reporter == nil {
		m.reporter = &logReporter{log: m.log}
	}

	events := make(fsm.Events, 0, len(m.registry.transOrder))
	for _, t := range m.registry.Transitions() {
		events = append(events, fsm.EventDesc{
			Name: string(t.Command),
			Src:  []string{string(t.From)},
			Dst:  string(t.To),
		})
	}
	m.sm = fsm.NewFSM(
		string(m.registry.initial),
		events,
		fsm.Callbacks{
			"before_event": m.beforeEvent,
			"after_event":  m.afterEvent,
		},
	)

	go m.loop()
	return m, nil
}

// Handle queues command and waits until it, and every automatic follow-up,
// has been applied. A context done before the command starts abandons it;
// once started the command runs to completion.
func (m *Machine) Handle(ctx context.Context, command Command) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	req := newRequest(ctx, command)
	if !m.queue.Push(req) {
		return Outcome{}, ErrMachineClosed
	}
	metrics.QueueDepth.WithLabelValues(m.name).Set(float64(m.queue.Length()))

	select {
	case outcome, ok := <-req.result:
		if !ok {
			return Outcome{}, ErrMachineClosed
		}
		return outcome, nil
	case <-ctx.Done():
		if req.abandon() {
			m.log.WithField("command", command).
				WithField(infologger.Level, infologger.IL_Devel).
				Debug("command abandoned before it started")
			return Outcome{}, ctx.Err()
		}
		outcome, ok := <-req.result
		if !ok {
			return Outcome{}, ErrMachineClosed
		}
		return outcome, nil
	}
}

func (m *Machine) loop() {
	defer close(m.loopDone)
	for {
		req, ok := m.queue.Pop()
		if !ok {
			return
		}
		metrics.QueueDepth.WithLabelValues(m.name).Set(float64(m.queue.Length()))
		if !req.start() {
			continue
		}
		// actions see the caller's values, never its cancellation
		outcome := m.dispatch(context.WithoutCancel(req.ctx), req.command)
		req.result <- outcome
	}
}

// dispatch fires command and keeps firing successor commands while the
// machine rests on a transient state.
func (m *Machine) dispatch(ctx context.Context, command Command) Outcome {
	start := time.Now()
	trail := make([]State, 0, 2)

	outcome := m.fire(ctx, command, false)
	trail = append(trail, outcome.Trail...)
	for outcome.Kind == OutcomeSucceeded {
		next, transient := m.registry.Successor(outcome.State)
		if !transient {
			break
		}
		m.log.WithFields(logrus.Fields{
			"state":           outcome.State,
			"command":         next,
			infologger.Level: infologger.IL_Trace,
		}).Trace("intermediate state, firing successor")
		outcome = m.fire(ctx, next, true)
		trail = append(trail, outcome.Trail...)
	}

	outcome.Command = command
	outcome.StateName = m.registry.StateName(outcome.State)
	outcome.Trail = trail

	m.mu.Lock()
	m.currentTransition = ""
	m.lastOutcome = &outcome
	m.mu.Unlock()

	metrics.CommandCount.WithLabelValues(m.name, string(command), outcome.Kind.String()).Inc()
	metrics.CommandLatency.WithLabelValues(m.name, string(command)).Observe(time.Since(start).Seconds())
	return outcome
}

func (m *Machine) fire(ctx context.Context, command Command, synthesized bool) Outcome {
	from := State(m.sm.Current())
	t, ok := m.registry.Lookup(from, command)
	if !ok {
		err := InvalidTransitionError{State: from, StateName: m.registry.StateName(from), Command: command}
		if synthesized {
			// only reachable with a registry that escaped validation
			return m.escalateFailure(ctx, from, command, err)
		}
		return m.rejectInvalid(from, command, err)
	}

	err := m.sm.Event(ctx, string(command), t)
	if err == nil {
		return Outcome{Kind: OutcomeSucceeded, State: t.To, Trail: []State{t.To}}
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) && noTransition.Err == nil {
		// reflexive transition, the action ran and the state is unchanged
		return Outcome{Kind: OutcomeSucceeded, State: t.To, Trail: []State{t.To}}
	}
	var canceled fsm.CanceledError
	if errors.As(err, &canceled) && canceled.Err != nil {
		err = canceled.Err
	}
	return m.escalateFailure(ctx, from, command, HandlerFailureError{State: from, Command: command, Err: err})
}

func (m *Machine) beforeEvent(ctx context.Context, e *fsm.Event) {
	if len(e.Args) == 0 {
		e.Cancel(errors.New("transition missing in FSM event"))
		return
	}
	t, ok := e.Args[0].(Transition)
	if !ok {
		e.Cancel(errors.New("transition wrapping error"))
		return
	}

	m.mu.Lock()
	m.currentTransition = t.Command
	m.mu.Unlock()

	if t.Action == nil {
		return
	}
	m.log.WithFields(logrus.Fields{
		"command":         t.Command,
		"src":             t.From,
		"dst":             t.To,
		infologger.Level: infologger.IL_Devel,
	}).Debug("starting transition")

	start := time.Now()
	err := m.perform(ctx, t.Action, m.transitionContext(t.Command, t.From, t.To, nil))
	metrics.ActionLatency.WithLabelValues(m.name, string(t.Command)).Observe(time.Since(start).Seconds())
	if err != nil {
		e.Cancel(err)
	}
}

func (m *Machine) afterEvent(ctx context.Context, e *fsm.Event) {
	m.notify(ctx, State(e.Dst), Command(e.Event), normalStateChangeMessage)
}

// perform runs an action, turning a panic into an error.
func (m *Machine) perform(ctx context.Context, action Action, tc TransitionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return action.Perform(ctx, tc)
}

func (m *Machine) transitionContext(command Command, from State, to State, cause error) TransitionContext {
	return TransitionContext{
		MachineId: m.id,
		Machine:   m.name,
		Command:   command,
		From:      from,
		To:        to,
		Err:       cause,
	}
}

// Close stops the machine once the command in flight, if any, has finished.
// Queued commands fail with ErrMachineClosed. Close must not be called from
// an action or observer of the same machine.
func (m *Machine) Close() error {
	m.closeOnce.Do(func() {
		for _, req := range m.queue.Close() {
			if req.abandon() {
				close(req.result)
			}
		}
		metrics.QueueDepth.WithLabelValues(m.name).Set(0)
	})
	<-m.loopDone
	return nil
}

// Accessors

func (m *Machine) Id() uid.ID {
	return m.id
}

func (m *Machine) Name() string {
	return m.name
}

func (m *Machine) CurrentState() State {
	return State(m.sm.Current())
}

func (m *Machine) CurrentStateName() string {
	return m.registry.StateName(m.CurrentState())
}

// CurrentTransition is the command being applied, or empty when idle.
func (m *Machine) CurrentTransition() Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentTransition
}

// LastOutcome returns the outcome of the last handled command, if any.
func (m *Machine) LastOutcome() (Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastOutcome == nil {
		return Outcome{}, false
	}
	return *m.lastOutcome, true
}

// AvailableCommands lists the commands accepted in the current state.
func (m *Machine) AvailableCommands() []Command {
	return m.registry.CommandsFrom(m.CurrentState())
}

// Transitions lists the full transition table of the machine.
func (m *Machine) Transitions() []Transition {
	return m.registry.Transitions()
}

func (m *Machine) IsTransient(s State) bool {
	return m.registry.IsTransient(s)
}

func (m *Machine) QueueLength() int {
	return m.queue.Length()
}
