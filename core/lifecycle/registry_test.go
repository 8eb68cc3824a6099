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
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func minimalRegistry() *Registry {
	r := NewRegistry()
	Expect(r.DefineState("Idle", "Idle")).To(Succeed())
	Expect(r.DefineState("Broken", "Broken")).To(Succeed())
	r.SetInitialState("Idle")
	r.SetFailedState("Broken")
	return r
}

var _ = Describe("Registry", func() {
	When("a state id is reused", func() {
		It("fails with DuplicateStateError", func() {
			r := minimalRegistry()
			err := r.DefineState("Idle", "again")

			var dup DuplicateStateError
			Expect(errors.As(err, &dup)).To(BeTrue())
			Expect(dup.State).To(Equal(State("Idle")))
			Expect(errors.Is(err, ErrRegistryConstruction)).To(BeTrue())

			By("surfacing it again at validation time")
			Expect(errors.Is(r.Validate(), ErrRegistryConstruction)).To(BeTrue())
		})
	})

	When("a (state, command) pair is bound twice", func() {
		It("fails with ConflictingTransitionError", func() {
			r := minimalRegistry()
			Expect(r.DefineTransition("Idle", "Broken", "poke", nil)).To(Succeed())
			err := r.DefineTransition("Idle", "Idle", "poke", nil)

			var conflict ConflictingTransitionError
			Expect(errors.As(err, &conflict)).To(BeTrue())
			Expect(conflict.Existing).To(Equal(State("Broken")))
			Expect(conflict.Requested).To(Equal(State("Idle")))
			Expect(errors.Is(err, ErrRegistryConstruction)).To(BeTrue())
		})
	})

	When("a transient state has no successor", func() {
		It("does not validate", func() {
			r := minimalRegistry()
			Expect(r.DefineTransientState("Warming", "Warming up")).To(Succeed())
			Expect(r.DefineTransition("Idle", "Warming", "warm", nil)).To(Succeed())

			err := r.Validate()
			var incomplete IncompleteRegistryError
			Expect(errors.As(err, &incomplete)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("Warming has no successor"))
			Expect(errors.Is(err, ErrRegistryConstruction)).To(BeTrue())
		})
	})

	When("a transient state is given two successors", func() {
		It("rejects the second one", func() {
			r := minimalRegistry()
			Expect(r.DefineTransientState("Warming", "")).To(Succeed())
			Expect(r.DefineTransientSuccessor("Warming", "warmed")).To(Succeed())
			Expect(errors.Is(r.DefineTransientSuccessor("Warming", "other"), ErrRegistryConstruction)).To(BeTrue())
		})
	})

	When("a successor is given to a terminal state", func() {
		It("rejects it", func() {
			r := minimalRegistry()
			Expect(r.DefineTransientSuccessor("Idle", "x")).To(MatchError(ContainSubstring("terminal state Idle")))
		})
	})

	When("the successor command has no transition", func() {
		It("does not validate", func() {
			r := minimalRegistry()
			Expect(r.DefineTransientState("Warming", "")).To(Succeed())
			Expect(r.DefineTransientSuccessor("Warming", "warmed")).To(Succeed())
			Expect(r.Validate()).To(MatchError(ContainSubstring("successor warmed of transient state Warming has no transition")))
		})
	})

	When("the transient chain loops", func() {
		It("does not validate", func() {
			r := minimalRegistry()
			Expect(r.DefineTransientState("A", "")).To(Succeed())
			Expect(r.DefineTransientState("B", "")).To(Succeed())
			Expect(r.DefineTransientSuccessor("A", "toB")).To(Succeed())
			Expect(r.DefineTransientSuccessor("B", "toA")).To(Succeed())
			Expect(r.DefineTransition("A", "B", "toB", nil)).To(Succeed())
			Expect(r.DefineTransition("B", "A", "toA", nil)).To(Succeed())

			Expect(r.Validate()).To(MatchError(ContainSubstring("never settles")))
		})
	})

	When("anchors or transitions point at unknown states", func() {
		It("aggregates every problem", func() {
			r := NewRegistry()
			Expect(r.DefineTransientState("T", "")).To(Succeed())
			Expect(r.DefineTransientSuccessor("T", "done")).To(Succeed())
			Expect(r.DefineTransition("T", "Nowhere", "done", nil)).To(Succeed())
			r.SetInitialState("T")

			err := r.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("initial state T must not be transient"))
			Expect(err.Error()).To(ContainSubstring("failed state not set"))
			Expect(err.Error()).To(ContainSubstring("enters undefined state Nowhere"))
		})
	})

	When("the registry is the standard one", func() {
		var r *Registry

		BeforeEach(func() {
			var err error
			r, err = NewStandardRegistry(DeviceActions(newFakeDevice()))
			Expect(err).NotTo(HaveOccurred())
		})

		It("validates", func() {
			Expect(r.Validate()).To(Succeed())
			Expect(r.InitialState()).To(Equal(Initial))
			Expect(r.FailedState()).To(Equal(Failed))
		})

		It("lists the commands accepted in each terminal state", func() {
			Expect(r.CommandsFrom(Initial)).To(Equal([]Command{Initialize}))
			Expect(r.CommandsFrom(Configured)).To(Equal([]Command{Configure, Start, Stop, Halt}))
			Expect(r.CommandsFrom(Failed)).To(Equal([]Command{Halt}))
		})

		It("maps every transient state to a settling command", func() {
			successors := map[State]Command{
				Initializing: "Initialized",
				Configuring:  "Configured",
				Halting:      "Halted",
				Starting:     "Running",
				Pausing:      "Paused",
				Resuming:     "Running",
				Stopping:     "Stopped",
			}
			for transient, command := range successors {
				got, ok := r.Successor(transient)
				Expect(ok).To(BeTrue())
				Expect(got).To(Equal(command))

				t, ok := r.Lookup(transient, command)
				Expect(ok).To(BeTrue())
				Expect(r.IsTransient(t.To)).To(BeFalse())
			}
			_, ok := r.Successor(Running)
			Expect(ok).To(BeFalse())
		})
	})
})
