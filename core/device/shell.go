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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/common/utils"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasttemplate"
)

const maxErrorDetail = 256

// Shell controls a front-end through one shell command line per action.
// Command lines may use the {{device}}, {{machineId}}, {{command}}, {{from}}
// and {{to}} placeholders.
type Shell struct {
	actions map[string]string
	workDir string
	env     []string
	timeout time.Duration
}

func NewShell(cfg Config) *Shell {
	actions := make(map[string]string, len(cfg.Actions))
	for name, line := range cfg.Actions {
		actions[strings.ToLower(name)] = line
	}
	return &Shell{
		actions: actions,
		workDir: cfg.WorkDir,
		env:     cfg.Env,
		timeout: cfg.Timeout,
	}
}

func (s *Shell) render(line string, tc lifecycle.TransitionContext) string {
	return fasttemplate.ExecuteString(line, "{{", "}}", map[string]interface{}{
		"device":    tc.Machine,
		"machineId": tc.MachineId.String(),
		"command":   string(tc.Command),
		"from":      string(tc.From),
		"to":        string(tc.To),
	})
}

func (s *Shell) run(ctx context.Context, action string, tc lifecycle.TransitionContext) error {
	line, ok := s.actions[action]
	if !ok || strings.TrimSpace(line) == "" {
		return nil
	}
	rendered := s.render(line, tc)
	defer utils.TimeTrack(time.Now(), action+" action", log.WithField("device", tc.Machine))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", rendered)
	cmd.Dir = s.workDir
	cmd.Env = append(os.Environ(), s.env...)
	cmd.Env = append(cmd.Env,
		"FEC_DEVICE="+tc.Machine,
		"FEC_ACTION="+action,
		"FEC_COMMAND="+string(tc.Command),
		"FEC_FROM="+string(tc.From),
		"FEC_TO="+string(tc.To),
	)
	if tc.Err != nil {
		cmd.Env = append(cmd.Env, "FEC_ERROR="+tc.Err.Error())
	}
	// own process group, so a timeout kills the shell and its children alike
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stderrBuf bytes.Buffer
	stdoutLog := log.WithPrefix("device-stdout").WithField("device", tc.Machine).WriterLevel(logrus.DebugLevel)
	stderrLog := log.WithPrefix("device-stderr").WithField("device", tc.Machine).WriterLevel(logrus.WarnLevel)
	defer stdoutLog.Close()
	defer stderrLog.Close()
	cmd.Stdout = stdoutLog
	cmd.Stderr = io.MultiWriter(stderrLog, &stderrBuf)

	log.WithFields(logrus.Fields{
		"device":         tc.Machine,
		"action":         action,
		"command":        rendered,
		infologger.Level: infologger.IL_Devel,
	}).Debug("running device action")

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderrBuf.String())
		if detail != "" {
			return fmt.Errorf("%s action failed: %w: %s", action, err, utils.TruncateString(lastLine(detail), maxErrorDetail))
		}
		return fmt.Errorf("%s action failed: %w", action, err)
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func (s *Shell) InitializeAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return s.run(ctx, lifecycle.ActionInitialize, tc)
}

func (s *Shell) ConfigureAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return s.run(ctx, lifecycle.ActionConfigure, tc)
}

func (s *Shell) StartAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return s.run(ctx, lifecycle.ActionStart, tc)
}

func (s *Shell) PauseAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return s.run(ctx, lifecycle.ActionPause, tc)
}

func (s *Shell) ResumeAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return s.run(ctx, lifecycle.ActionResume, tc)
}

func (s *Shell) StopAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return s.run(ctx, lifecycle.ActionStop, tc)
}

func (s *Shell) HaltAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return s.run(ctx, lifecycle.ActionHalt, tc)
}

func (s *Shell) FailAction(ctx context.Context, tc lifecycle.TransitionContext) error {
	return s.run(ctx, lifecycle.ActionFail, tc)
}
