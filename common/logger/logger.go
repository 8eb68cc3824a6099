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

// Package logger is a convenience wrapper package for using logrus
// in the front-end control daemon and its command line client.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
	prefixed "github.com/teo/logrus-prefixed-formatter"
)

const prefixField = "prefix"

type Log struct {
	logrus.Entry
}

func (logger *Log) WithPrefix(prefix string) *logrus.Entry {
	return logger.WithField(prefixField, prefix)
}

// WithMachine returns an entry tagged with the name of a controlled device.
func (logger *Log) WithMachine(name string) *logrus.Entry {
	return logger.WithField("machine", name)
}

func New(baseLogger *logrus.Logger, defaultPrefix string) *Log {
	logger := new(Log)
	logger.Logger = baseLogger
	logger.Data = make(logrus.Fields, 5)
	logger.Data[prefixField] = defaultPrefix
	return logger
}

// SetupFormatter installs the prefixed text formatter used by all our binaries.
func SetupFormatter(baseLogger *logrus.Logger, out io.Writer) {
	baseLogger.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp: true,
		SpacePadding:  20,
		PrefixPadding: 12,

		// Needed for colored stdout/stderr in GoLand, IntelliJ, etc.
		ForceColors:     true,
		ForceFormatting: true,
	})
	baseLogger.SetOutput(out)
}

// SetVerbosity maps the verbose/veryVerbose switches onto logrus levels.
func SetVerbosity(baseLogger *logrus.Logger, verbose bool, veryVerbose bool) {
	switch {
	case veryVerbose:
		baseLogger.SetLevel(logrus.TraceLevel)
	case verbose:
		baseLogger.SetLevel(logrus.DebugLevel)
	default:
		baseLogger.SetLevel(logrus.InfoLevel)
	}
}
