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


package cmd

import (
	"github.com/AliceO2Group/fecctl/fecctl/control"
	"github.com/spf13/cobra"
)

// deviceControlCmd represents the device control command
var deviceControlCmd = &cobra.Command{
	Use:     "control [device name] [command]",
	Aliases: []string{"ctl", "ct", "t"},
	Short:   "control the lifecycle of a device",
	Long: `The device control command sends a command to the lifecycle of a
device and waits until it has been applied. The reached state is returned.

Commands of the standard lifecycle:
  Initialize           Configure            Start
  Pause                Resume               Stop
  Halt

Not all commands are available in all states. Stop and Halt ask for
confirmation unless --yes is given.`,
	Run:  control.WithConfirmation(control.WrapCall(control.ControlDevice)),
	Args: cobra.ExactArgs(2),
}

func init() {
	deviceCmd.AddCommand(deviceControlCmd)

	deviceControlCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}
