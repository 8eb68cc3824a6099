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


// Package control handles the details of control calls to fecctld.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AliceO2Group/fecctl/common/event"
	"github.com/AliceO2Group/fecctl/common/event/topic"
	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/AliceO2Group/fecctl/fecctl"
	"github.com/AliceO2Group/fecctl/fecctl/app"
	"github.com/briandowns/spinner"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	CALL_TIMEOUT = 5 * time.Minute
	SPINNER_TICK = 100 * time.Millisecond
)

var log = logger.New(logrus.StandardLogger(), "fecctl")

type RunFunc func(*cobra.Command, []string)

type ControlCall func(context.Context, *fecctl.Client, *cobra.Command, []string, io.Writer) error

// commands that take a device out of data taking ask for confirmation
var confirmCommands = map[string]struct{}{
	"Stop": {},
	"Halt": {},
}

func WrapCall(call ControlCall) RunFunc {
	return func(cmd *cobra.Command, args []string) {
		endpoint := viper.GetString("endpoint")
		log.WithPrefix(cmd.Use).
			WithField("endpoint", endpoint).
			Debug("initializing HTTP client")

		s := spinner.New(spinner.CharSets[11], SPINNER_TICK)
		s.Color("yellow")
		s.Suffix = " working..."
		s.Start()

		cxt, cancel := context.WithTimeout(context.Background(), CALL_TIMEOUT)
		defer cancel()
		client := fecctl.NewClient(endpoint)

		var out strings.Builder
		err := call(cxt, client, cmd, args, &out)
		s.Stop()
		fmt.Print(out.String())
		if err != nil {
			var fields logrus.Fields
			if logrus.GetLevel() >= logrus.DebugLevel {
				fields = logrus.Fields{"error": err}
			}
			log.WithPrefix(cmd.Use).
				WithFields(fields).
				Error("command finished with error")
			os.Exit(1)
		}
	}
}

// WithConfirmation asks before running call when the command in the second
// argument takes the device out of data taking, unless --yes is set.
func WithConfirmation(run RunFunc) RunFunc {
	return func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")
		if len(args) == 2 && !yes && needsConfirmation(args[1]) {
			confirmed := false
			prompt := &survey.Confirm{
				Message: fmt.Sprintf("Send %s to %s?", normalizeCommand(args[1]), args[0]),
				Default: false,
			}
			if err := survey.AskOne(prompt, &confirmed); err != nil || !confirmed {
				fmt.Println("operation aborted")
				return
			}
		}
		run(cmd, args)
	}
}

func normalizeCommand(command string) string {
	return strcase.ToCamel(command)
}

func needsConfirmation(command string) bool {
	_, ok := confirmCommands[normalizeCommand(command)]
	return ok
}

func GetInfo(cxt context.Context, client *fecctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	version, err := client.Version(cxt)
	if err != nil {
		return
	}
	devices, err := client.ListDevices(cxt, "")
	if err != nil {
		return
	}

	versionStr := version["version"]
	// The version is empty or 0.0.0 if fecctld was built with go build directly instead of make.
	if len(versionStr) == 0 || versionStr == "0.0.0" {
		versionStr = "dev"
	}
	revisionStr := version["build"]
	if len(revisionStr) > 0 {
		revisionStr = fmt.Sprintf("revision %s", green(revisionStr))
	}

	failed := 0
	for _, d := range devices {
		if d.State == "Failed" {
			failed++
		}
	}

	_, _ = fmt.Fprintf(o, "endpoint:           %s\n", green(client.Endpoint()))
	_, _ = fmt.Fprintf(o, "daemon version:     %s %s %s\n", version["name"], green(versionStr), revisionStr)
	_, _ = fmt.Fprintf(o, "devices count:      %s\n", green(len(devices)))
	if failed > 0 {
		_, _ = fmt.Fprintf(o, "failed devices:     %s\n", red(failed))
	}
	return nil
}

func ListDevices(cxt context.Context, client *fecctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	pattern := ""
	if len(args) == 1 {
		pattern = args[0]
	}
	devices, err := client.ListDevices(cxt, pattern)
	if err != nil {
		return
	}

	if len(devices) == 0 {
		_, _ = fmt.Fprintln(o, "no devices found")
		return nil
	}
	drawTableDevices(devices, o)
	return nil
}

func ShowDevice(cxt context.Context, client *fecctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	if len(args) != 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	d, err := client.GetDevice(cxt, args[0])
	if err != nil {
		return
	}

	state := colorState(d.State)
	if d.StateName != "" && d.StateName != d.State {
		state = fmt.Sprintf("%s (%s)", state, d.StateName)
	}

	_, _ = fmt.Fprintf(o, "device name:        %s\n", d.Name)
	_, _ = fmt.Fprintf(o, "machine id:         %s\n", grey(d.Id))
	_, _ = fmt.Fprintf(o, "state:              %s\n", state)
	if d.CurrentTransition != "" {
		_, _ = fmt.Fprintf(o, "in transition:      %s\n", yellow(d.CurrentTransition))
	}
	_, _ = fmt.Fprintf(o, "commands:           %s\n", formatCommands(d.AvailableCommands))
	_, _ = fmt.Fprintf(o, "queued commands:    %d\n", d.QueueLength)
	if last := d.LastOutcome; last != nil {
		_, _ = fmt.Fprintf(o, "last command:       %s %s at %s\n", last.Command, colorOutcome(last.Outcome), formatTimestamp(last.Timestamp))
		if last.Reason != "" {
			_, _ = fmt.Fprintf(o, "last reason:        %s\n", last.Reason)
		}
	}
	return nil
}

func ShowTransitions(cxt context.Context, client *fecctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	if len(args) != 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	transitions, err := client.ListTransitions(cxt, args[0])
	if err != nil {
		return
	}
	drawTransitions(args[0], transitions, o)
	return nil
}

func ControlDevice(cxt context.Context, client *fecctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	if len(args) != 2 {
		return fmt.Errorf("accepts 2 arg(s), received %d", len(args))
	}

	reply, err := client.Control(cxt, args[0], normalizeCommand(args[1]))
	var commandErr *fecctl.CommandError
	if errors.As(err, &commandErr) {
		_, _ = fmt.Fprintf(o, "transition %s\n", colorOutcome(reply.Outcome))
		_, _ = fmt.Fprintf(o, "reason:             %s\n", reply.Reason)
		_, _ = fmt.Fprintf(o, "state:              %s\n", colorState(reply.State))
		return err
	}
	if err != nil {
		return
	}

	_, _ = fmt.Fprintln(o, "transition complete")
	_, _ = fmt.Fprintf(o, "device name:        %s\n", reply.Device)
	_, _ = fmt.Fprintf(o, "state:              %s\n", colorState(reply.State))
	if len(reply.Trail) > 1 {
		trail := make([]string, len(reply.Trail))
		for i, s := range reply.Trail {
			trail[i] = colorState(s)
		}
		_, _ = fmt.Fprintf(o, "passed through:     %s\n", strings.Join(trail, " → "))
	}
	_, _ = fmt.Fprintf(o, "request id:         %s\n", grey(reply.RequestId))
	return nil
}

// formatEnvelope renders one lifecycle event as a single line, or returns
// false when the device does not match.
func formatEnvelope(e *event.Envelope, matcher glob.Glob) (string, bool) {
	ts := e.Time().Local().Format("15:04:05.000")
	switch {
	case e.StateChanged != nil:
		sc := e.StateChanged
		if matcher != nil && !matcher.Match(sc.Machine) {
			return "", false
		}
		line := fmt.Sprintf("%s %-20s %s", grey(ts), sc.Machine, colorState(sc.State))
		if sc.Command != "" {
			line += fmt.Sprintf(" on %s", sc.Command)
		}
		if sc.Message != "" {
			line += grey(" " + sc.Message)
		}
		return line, true
	case e.ErrorReported != nil:
		er := e.ErrorReported
		if matcher != nil && !matcher.Match(er.Machine) {
			return "", false
		}
		return fmt.Sprintf("%s %-20s %s %s", grey(ts), er.Machine, red("["+er.Severity+"]"), er.Message), true
	case e.Meta != nil:
		return fmt.Sprintf("%s %s (%d devices)", grey(ts), blue(e.Meta.Message), e.Meta.Devices), true
	}
	return "", false
}

// Watch follows the lifecycle events fecctld publishes to Kafka until
// interrupted.
func Watch(cmd *cobra.Command, args []string) {
	var matcher glob.Glob
	if len(args) == 1 {
		var err error
		if matcher, err = glob.Compile(args[0]); err != nil {
			log.WithError(err).Fatal("bad device pattern")
		}
	}

	t := topic.Ev_Device_StateChanged
	if errs, _ := cmd.Flags().GetBool("errors"); errs {
		t = topic.Ev_Device_ErrorReported
	}
	brokers := viper.GetStringSlice("kafkaEndpoints")
	reader := event.NewReader(brokers, t, app.NAME+"-watch-"+uuid.NewString())
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithField("topic", t).WithField("brokers", brokers).Debug("watching lifecycle events")
	if last, _ := cmd.Flags().GetBool("last"); last {
		if e, err := reader.Last(ctx); err == nil && e != nil {
			if line, ok := formatEnvelope(e, matcher); ok {
				fmt.Println(line)
			}
		}
	}

	for {
		e, err := reader.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.WithError(err).Warn("cannot read event")
			continue
		}
		if line, ok := formatEnvelope(e, matcher); ok {
			fmt.Println(line)
		}
	}
}
