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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AliceO2Group/fecctl/common/utils"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
)

const defaultListenerTimeout = 5 * time.Second

// HTTPObserver posts every state change as JSON to a run control state
// listener.
type HTTPObserver struct {
	url    string
	client *http.Client
}

func NewHTTPObserver(url string, timeout time.Duration) *HTTPObserver {
	if timeout <= 0 {
		timeout = defaultListenerTimeout
	}
	return &HTTPObserver{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (o *HTTPObserver) Notify(ctx context.Context, n lifecycle.Notification) error {
	body, err := json.Marshal(stateChangedEvent(n))
	if err != nil {
		return fmt.Errorf("cannot marshal state notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Machine-Id", n.MachineId.String())

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("state listener unreachable: %w", err)
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := strings.TrimSpace(string(detail)); msg != "" {
			return fmt.Errorf("state listener %s replied %s: %s", o.url, resp.Status, utils.TruncateString(msg, 200))
		}
		return fmt.Errorf("state listener %s replied %s", o.url, resp.Status)
	}
	return nil
}
