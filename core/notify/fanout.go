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

package notify

import (
	"context"

	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/hashicorp/go-multierror"
)

// Fanout delivers each notification to every observer, aggregating failures.
type Fanout []lifecycle.Observer

func (f Fanout) Notify(ctx context.Context, n lifecycle.Notification) error {
	var err *multierror.Error
	for _, o := range f {
		if o == nil {
			continue
		}
		if e := o.Notify(ctx, n); e != nil {
			err = multierror.Append(err, e)
		}
	}
	return err.ErrorOrNil()
}

// MultiReporter hands each report to every reporter.
type MultiReporter []lifecycle.DiagnosticReporter

func (m MultiReporter) Report(r lifecycle.Diagnostic) {
	for _, reporter := range m {
		if reporter != nil {
			reporter.Report(r)
		}
	}
}
