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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AliceO2Group/fecctl/core/lifecycle"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func tempDir() string {
	dir, err := os.MkdirTemp("", "fecctl-device")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	return dir
}

var tc = lifecycle.TransitionContext{
	Machine: "fe-1",
	Command: "Configured",
	From:    lifecycle.Configuring,
	To:      lifecycle.Configured,
}

var _ = Describe("Dummy", func() {
	It("performs actions and fails on request", func() {
		d := NewDummy(0, "Start")
		Expect(d.ConfigureAction(context.Background(), tc)).To(Succeed())
		Expect(d.StartAction(context.Background(), tc)).To(MatchError(ContainSubstring("simulated start failure on fe-1")))
		Expect(d.FailAction(context.Background(), tc)).To(Succeed())
		Expect(d.Performed()).To(Equal([]string{
			lifecycle.ActionConfigure, lifecycle.ActionStart, lifecycle.ActionFail,
		}))
	})

	It("waits for its delay but honours cancellation", func() {
		d := NewDummy(time.Hour)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(d.HaltAction(ctx, tc)).To(MatchError(context.DeadlineExceeded))
		Expect(d.Performed()).To(BeEmpty())
	})

	It("drives the standard lifecycle", func() {
		m, err := NewMachine(Config{Name: "sim", Kind: KindDummy, FailOn: []string{"pause"}})
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		for _, c := range []lifecycle.Command{lifecycle.Initialize, lifecycle.Configure, lifecycle.Start} {
			out, err := m.Handle(context.Background(), c)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Kind).To(Equal(lifecycle.OutcomeSucceeded))
		}
		out, err := m.Handle(context.Background(), lifecycle.Pause)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kind).To(Equal(lifecycle.OutcomeFailed))
		Expect(m.CurrentState()).To(Equal(lifecycle.Failed))
		Expect(m.Name()).To(Equal("sim"))
	})
})

var _ = Describe("Shell", func() {
	It("runs the configured command line with placeholders and environment", func() {
		dir := tempDir()
		s := NewShell(Config{
			WorkDir: dir,
			Env:     []string{"EXTRA=42"},
			Actions: map[string]string{
				"Configure": `echo "{{device}} {{from}}->{{to}} $FEC_ACTION $EXTRA" > out.txt`,
			},
		})
		Expect(s.ConfigureAction(context.Background(), tc)).To(Succeed())

		data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(string(data))).To(Equal("fe-1 Configuring->Configured configure 42"))
	})

	It("succeeds without doing anything for unmapped actions", func() {
		s := NewShell(Config{Actions: map[string]string{"start": "exit 1"}})
		Expect(s.PauseAction(context.Background(), tc)).To(Succeed())
	})

	It("reports failing commands with their last stderr line", func() {
		s := NewShell(Config{Actions: map[string]string{"start": "echo first >&2; echo 'no beam' >&2; exit 3"}})
		err := s.StartAction(context.Background(), tc)
		Expect(err).To(MatchError(ContainSubstring("start action failed")))
		Expect(err.Error()).To(ContainSubstring("exit status 3"))
		Expect(err.Error()).To(HaveSuffix("no beam"))
	})

	It("kills commands exceeding their timeout", func() {
		s := NewShell(Config{
			Timeout: 50 * time.Millisecond,
			Actions: map[string]string{"halt": "sleep 10"},
		})
		start := time.Now()
		Expect(s.HaltAction(context.Background(), tc)).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
	})

	It("passes the escalation cause to the fail action", func() {
		dir := tempDir()
		s := NewShell(Config{WorkDir: dir, Actions: map[string]string{"fail": `printf '%s' "$FEC_ERROR" > cause.txt`}})
		failing := tc
		failing.Err = errors.New("link down")
		Expect(s.FailAction(context.Background(), failing)).To(Succeed())

		data, err := os.ReadFile(filepath.Join(dir, "cause.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("link down"))
	})
})

var _ = Describe("Config", func() {
	It("fills unset fields from the defaults", func() {
		cfg, err := Config{Name: "fe-2", Delay: time.Second}.WithDefaults(Config{
			Kind:    KindCommand,
			Delay:   time.Minute,
			WorkDir: "/tmp",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Name).To(Equal("fe-2"))
		Expect(cfg.Kind).To(Equal(KindCommand))
		Expect(cfg.Delay).To(Equal(time.Second))
		Expect(cfg.WorkDir).To(Equal("/tmp"))
	})

	It("rejects unknown kinds and command devices without actions", func() {
		_, err := New(Config{Name: "x", Kind: "laser"})
		Expect(err).To(MatchError(ContainSubstring(`unknown kind "laser"`)))
		_, err = New(Config{Name: "x", Kind: KindCommand})
		Expect(err).To(MatchError(ContainSubstring("without actions")))
		_, err = NewMachine(Config{Kind: KindDummy})
		Expect(err).To(HaveOccurred())
	})

	It("binds a device to a definition file", func() {
		path := filepath.Join(tempDir(), "short.yaml")
		Expect(os.WriteFile(path, []byte(`
initial: Halted
failed: Failed
failAction: fail
states:
  - id: Halted
  - id: Running
  - id: Failed
transitions:
  - from: [Halted]
    to: Running
    command: Start
    action: start
  - from: [Running, Failed]
    to: Halted
    command: Halt
    action: halt
`), 0644)).To(Succeed())

		m, err := NewMachine(Config{Name: "short", Definition: path})
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()
		Expect(m.CurrentState()).To(Equal(lifecycle.Halted))

		out, err := m.Handle(context.Background(), lifecycle.Start)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.State).To(Equal(lifecycle.Running))
	})

	It("reports an unreadable definition file", func() {
		_, err := NewMachine(Config{Name: "broken", Definition: "/nonexistent/def.yaml"})
		Expect(err).To(MatchError(ContainSubstring("device broken")))
	})
})
