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

// Package uid generates the identifiers attached to device lifecycles and to
// the events they publish. IDs are sortable and reasonably unique per host.
package uid

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/denisbrodbeck/machineid"
	"github.com/osamingo/indigo"
	"github.com/pborman/uuid"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

type ID string

// fallbackMachineId is used when /etc/machine-id cannot be read or parsed.
const fallbackMachineId uint16 = 42

var (
	log     = logger.New(logrus.StandardLogger(), "uid")
	genOnce sync.Once
	uidGen  *indigo.Generator
)

// hostMachineId derives the 16 bit generator seed from the standard machine-id.
// Indigo would otherwise take it from the private IP address, which is not
// always available (containers).
func hostMachineId() uint16 {
	id, err := machineid.ID()
	if err != nil {
		return fallbackMachineId
	}
	parsed := uuid.Parse(id)
	if parsed == nil {
		return fallbackMachineId
	}
	// The NodeID holds the last 6 bytes of the UUID; its first 2 bytes are
	// not clock dependent.
	node := parsed.NodeID()
	if len(node) < 2 {
		return fallbackMachineId
	}
	return binary.BigEndian.Uint16(node[0:2])
}

func generator() *indigo.Generator {
	genOnce.Do(func() {
		machineId := hostMachineId()
		log.WithField(infologger.Level, infologger.IL_Trace).
			Tracef("uid generator seeded with machine ID %d", machineId)
		uidGen = indigo.New(
			nil,
			indigo.StartTime(time.Unix(1257894000, 0)), // Go epoch
			indigo.MachineID(func() (uint16, error) { return machineId, nil }),
		)
	})
	return uidGen
}

func (u ID) String() string {
	return string(u)
}

func (u ID) IsNil() bool {
	return len(u) == 0
}

// FromString validates s as either an indigo or an xid identifier.
func FromString(s string) (ID, error) {
	if _, err := generator().Decompose(s); err == nil {
		return ID(s), nil
	}
	if _, err := xid.FromString(s); err == nil {
		return ID(s), nil
	}
	return NilID(), fmt.Errorf("invalid identifier %q", s)
}

func NilID() ID {
	return ""
}

// New returns a fresh ID, reverting to an xid if indigo cannot produce one.
func New() ID {
	id, err := generator().NextID()
	if err != nil {
		log.WithField(infologger.Level, infologger.IL_Devel).
			WithError(err).
			Debug("indigo ID generation failed, reverting to xid")
		return ID(xid.New().String())
	}
	return ID(id)
}

func (u ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}
