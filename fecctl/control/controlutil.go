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


package control

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AliceO2Group/fecctl/common/api"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/xlab/treeprint"
)

var (
	blue   = color.New(color.FgHiBlue).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	grey   = color.New(color.FgWhite).SprintFunc()
)

func colorState(st string) string {
	switch st {
	case "Initial", "Halted":
		return blue(st)
	case "Running":
		return green(st)
	case "Configured", "Paused":
		return yellow(st)
	case "Failed":
		return red(st)
	default:
		// transient states
		return grey(st)
	}
}

func colorOutcome(outcome string) string {
	switch outcome {
	case "SUCCEEDED":
		return green(outcome)
	case "REJECTED":
		return yellow(outcome)
	default:
		return red(outcome)
	}
}

func formatCommands(commands []string) string {
	if len(commands) == 0 {
		return grey("none")
	}
	return strings.Join(commands, ", ")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}

func drawTableDevices(devices []api.DeviceInfo, o io.Writer) {
	headers := []string{"name", "state", "commands", "queued", "last command"}
	table := tablewriter.NewWriter(o)
	table.SetHeader(headers)
	table.SetBorder(false)
	fg := tablewriter.Colors{tablewriter.Bold, tablewriter.FgYellowColor}
	fgColSlice := make([]tablewriter.Colors, len(headers))
	for i := 0; i < len(headers); i++ {
		fgColSlice[i] = fg
	}
	table.SetHeaderColor(fgColSlice...)

	data := make([][]string, 0, len(devices))
	for _, d := range devices {
		last := grey("none")
		if d.LastOutcome != nil {
			last = fmt.Sprintf("%s %s", d.LastOutcome.Command, colorOutcome(d.LastOutcome.Outcome))
		}
		data = append(data, []string{
			d.Name,
			colorState(d.State),
			formatCommands(d.AvailableCommands),
			fmt.Sprintf("%d", d.QueueLength),
			last,
		})
	}

	table.AppendBulk(data)
	table.Render()
}

// drawTransitions renders the transition table as a tree rooted at the
// device, one branch per source state. Automatic transitions out of
// transient states are shown under the state they leave.
func drawTransitions(device string, transitions []api.TransitionInfo, o io.Writer) {
	tree := treeprint.New()
	tree.SetValue(device)

	branches := make(map[string]treeprint.Tree)
	for _, t := range transitions {
		branch, ok := branches[t.From]
		if !ok {
			branch = tree.AddBranch(colorState(t.From))
			branches[t.From] = branch
		}
		label := fmt.Sprintf("%s %s %s", t.Command, yellow("-->"), colorState(t.To))
		if t.HasAction {
			label += grey(" [action]")
		}
		meta := "command"
		if t.Automatic {
			meta = "auto"
		}
		branch.AddMetaNode(meta, label)
	}
	_, _ = fmt.Fprint(o, tree.String())
}
