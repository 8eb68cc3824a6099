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


package utils

import (
	"time"
	"unicode/utf8"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/sirupsen/logrus"
)

// TimeTrack logs how long the operation started at start took. Meant to be
// deferred; it only logs when debug output is enabled.
func TimeTrack(start time.Time, name string, log *logrus.Entry) {
	if log == nil || !log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	elapsed := time.Since(start)
	log.WithField(infologger.Level, infologger.IL_Devel).Debugf("%s took %s", name, elapsed)
}

// TruncateString keeps at most length runes of str.
func TruncateString(str string, length int) string {
	if length <= 0 {
		return ""
	}

	if utf8.RuneCountInString(str) <= length {
		return str
	}

	return string([]rune(str)[:length])
}
