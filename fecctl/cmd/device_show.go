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

// deviceShowCmd represents the device show command
var deviceShowCmd = &cobra.Command{
	Use:     "show [device name]",
	Aliases: []string{"s"},
	Short:   "show the state of a device",
	Long:    `The device show command shows the state of a device and the outcome of its last command.`,
	Run:     control.WrapCall(control.ShowDevice),
	Args:    cobra.ExactArgs(1),
}

func init() {
	deviceCmd.AddCommand(deviceShowCmd)
}
