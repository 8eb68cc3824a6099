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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AliceO2Group/fecctl/common/logger/infologger"
	"github.com/AliceO2Group/fecctl/core/lifecycle"
	"github.com/redis/go-redis/v9"
)

// publisher is satisfied by every go-redis client.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisObserver publishes state changes as JSON on a Redis pub/sub channel.
type RedisObserver struct {
	client  publisher
	closer  func() error
	channel string
}

// NewRedisObserver connects to address, given either as host:port or as a
// redis:// URL. An unreachable server is logged, not fatal: go-redis
// reconnects on the next publish.
func NewRedisObserver(ctx context.Context, address string, channel string) (*RedisObserver, error) {
	opts := &redis.Options{Addr: address}
	if strings.Contains(address, "://") {
		var err error
		opts, err = redis.ParseURL(address)
		if err != nil {
			return nil, fmt.Errorf("invalid redis address %s: %w", address, err)
		}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithField("address", address).
			WithField(infologger.Level, infologger.IL_Support).
			WithError(err).
			Warn("redis not reachable yet, state changes will be published once it is")
	}

	o := NewRedisObserverWithClient(client, channel)
	o.closer = client.Close
	return o, nil
}

func NewRedisObserverWithClient(client publisher, channel string) *RedisObserver {
	return &RedisObserver{client: client, channel: channel}
}

func (o *RedisObserver) Notify(ctx context.Context, n lifecycle.Notification) error {
	payload, err := json.Marshal(stateChangedEvent(n))
	if err != nil {
		return fmt.Errorf("cannot marshal state notification: %w", err)
	}
	if err := o.client.Publish(ctx, o.channel, payload).Err(); err != nil {
		return fmt.Errorf("cannot publish to redis channel %s: %w", o.channel, err)
	}
	return nil
}

func (o *RedisObserver) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer()
}
