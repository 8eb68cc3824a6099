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


// Package fecctl implements the O² Front-End Control Utility, an HTTP
// client of fecctld.
package fecctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AliceO2Group/fecctl/common/api"
	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "fecctl")

const requestIdHeader = "X-Request-Id"

// CommandError is returned when fecctld handled a command without reaching
// the requested state. Reply carries the state the device is in.
type CommandError struct {
	StatusCode int
	Reply      *api.Reply
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s on %s: %s", strings.ToLower(e.Reply.Outcome), e.Reply.Command, e.Reply.Device, e.Reply.Reason)
}

// Rejected is true when the command was not valid in the device state.
func (e *CommandError) Rejected() bool {
	return e.StatusCode == http.StatusBadRequest
}

type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for the fecctld at endpoint, given as
// HOST:PORT or as an http(s) URL.
func NewClient(endpoint string) *Client {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "http://" + endpoint
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) do(ctx context.Context, method string, path string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	log.WithField("method", method).WithField("url", req.URL.String()).Debug("sending request")
	return c.http.Do(req)
}

func decodeError(resp *http.Response) error {
	var reply api.ErrorReply
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &reply); err != nil || reply.Error == "" {
		return fmt.Errorf("fecctld answered %s", resp.Status)
	}
	return errors.New(reply.Error)
}

func (c *Client) getJson(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListDevices returns the devices whose name matches the glob pattern, or
// all of them if the pattern is empty.
func (c *Client) ListDevices(ctx context.Context, pattern string) (devices []api.DeviceInfo, err error) {
	path := "/devices"
	if pattern != "" {
		path += "?match=" + url.QueryEscape(pattern)
	}
	err = c.getJson(ctx, path, &devices)
	return
}

func (c *Client) GetDevice(ctx context.Context, name string) (device *api.DeviceInfo, err error) {
	device = &api.DeviceInfo{}
	err = c.getJson(ctx, "/devices/"+url.PathEscape(name), device)
	if err != nil {
		return nil, err
	}
	return
}

func (c *Client) ListTransitions(ctx context.Context, name string) (transitions []api.TransitionInfo, err error) {
	err = c.getJson(ctx, "/devices/"+url.PathEscape(name)+"/transitions", &transitions)
	return
}

func (c *Client) Version(ctx context.Context) (version map[string]string, err error) {
	err = c.getJson(ctx, "/version", &version)
	return
}

// Control sends command to the device and waits for it to be applied. When
// fecctld answers with a rejection or a failure, the reply is returned
// along with a *CommandError.
func (c *Client) Control(ctx context.Context, name string, command string) (*api.Reply, error) {
	header := http.Header{}
	header.Set(requestIdHeader, uuid.NewString())

	resp, err := c.do(ctx, http.MethodPost, "/devices/"+url.PathEscape(name)+"/commands/"+url.PathEscape(command), header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest, http.StatusInternalServerError:
	default:
		return nil, decodeError(resp)
	}

	reply := &api.Reply{}
	if err = json.NewDecoder(resp.Body).Decode(reply); err != nil {
		return nil, fmt.Errorf("cannot decode reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return reply, &CommandError{StatusCode: resp.StatusCode, Reply: reply}
	}
	return reply, nil
}
