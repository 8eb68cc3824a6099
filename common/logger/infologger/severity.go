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

// Package infologger carries the InfoLogger severity and level conventions
// used to classify the diagnostics emitted by the lifecycle engine.
package infologger

import "github.com/sirupsen/logrus"

// Level is the logrus field key under which the InfoLogger level is stored.
const Level = "level"

// Severity/priority constants:
// https://github.com/AliceO2Group/InfoLogger/blob/master/include/InfoLogger/InfoLogger.hxx
// operations (1-5) support (6-10) developer (11-20) trace (21-99).
const (
	IL_Ops     = 1
	IL_Support = 6
	IL_Devel   = 11
	IL_Trace   = 21
)

type Severity string

const (
	Fatal   Severity = "F"
	Error   Severity = "E"
	Warning Severity = "W"
	Info    Severity = "I"
	Debug   Severity = "D"
)

func (s Severity) String() string {
	switch s {
	case Fatal:
		return "fatal"
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	}
	return "unknown"
}

// LogrusLevel returns the logrus level a message of this severity is logged at.
// Fatal maps to ErrorLevel: a fatal device report must never terminate the process.
func (s Severity) LogrusLevel() logrus.Level {
	switch s {
	case Fatal, Error:
		return logrus.ErrorLevel
	case Warning:
		return logrus.WarnLevel
	case Info:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// SeverityFromLogrus extracts the InfoLogger severity char from a logrus level.
func SeverityFromLogrus(level logrus.Level) Severity {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return Fatal
	case logrus.ErrorLevel:
		return Error
	case logrus.WarnLevel:
		return Warning
	case logrus.InfoLevel:
		return Info
	default:
		return Debug
	}
}

// LevelFromLogrus extracts the InfoLogger level number from a logrus level.
func LevelFromLogrus(level logrus.Level) int {
	switch level {
	case logrus.TraceLevel:
		return IL_Trace
	case logrus.DebugLevel:
		return IL_Devel
	default:
		return IL_Ops
	}
}
