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
	"github.com/spf13/viper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("root command", func() {
	It("should bind the persistent flags to the configuration", func() {
		Expect(viper.GetStringSlice("kafkaEndpoints")).To(Equal([]string{"localhost:9092"}))

		Expect(rootCmd.PersistentFlags().Set("endpoint", "fec-host:47111")).To(Succeed())
		Expect(rootCmd.PersistentFlags().Set("verbose", "true")).To(Succeed())
		DeferCleanup(func() {
			_ = rootCmd.PersistentFlags().Set("endpoint", "127.0.0.1:47110")
			_ = rootCmd.PersistentFlags().Set("verbose", "false")
		})

		Expect(viper.GetString("endpoint")).To(Equal("fec-host:47111"))
		Expect(viper.GetBool("verbose")).To(BeTrue())
	})

	It("should register the device subcommands", func() {
		names := make([]string, 0)
		for _, c := range deviceCmd.Commands() {
			names = append(names, c.Name())
		}
		Expect(names).To(ConsistOf("control", "list", "show", "transitions"))

		found, _, err := rootCmd.Find([]string{"watch"})
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeIdenticalTo(watchCmd))
	})
})
