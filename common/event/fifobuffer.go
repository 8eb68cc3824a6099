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

package event

import (
	"sync"
)

// FifoBuffer is a threadsafe FIFO with builtin waiting for new data in its
// Pop and PopMultiple functions. Once closed it refuses new values and wakes
// every waiting consumer.
type FifoBuffer[T any] struct {
	lock sync.Mutex
	cond *sync.Cond

	buffer []T
	closed bool
}

func NewFifoBuffer[T any]() *FifoBuffer[T] {
	result := &FifoBuffer[T]{}
	result.cond = sync.NewCond(&result.lock)
	return result
}

// Push appends a value, returning false if the buffer was already closed.
func (this *FifoBuffer[T]) Push(value T) bool {
	this.lock.Lock()
	defer this.lock.Unlock()

	if this.closed {
		return false
	}
	this.buffer = append(this.buffer, value)
	this.cond.Signal()
	return true
}

// Pop blocks until a value is available. ok is false once the buffer is
// closed and drained.
func (this *FifoBuffer[T]) Pop() (value T, ok bool) {
	this.lock.Lock()
	defer this.lock.Unlock()

	for len(this.buffer) == 0 {
		if this.closed {
			return
		}
		this.cond.Wait()
	}

	value = this.buffer[0]
	var zero T
	this.buffer[0] = zero
	this.buffer = this.buffer[1:]
	return value, true
}

// PopMultiple blocks until it has some value in the internal buffer, then
// returns at most numberToPop of them. It returns an empty result if the
// buffer gets closed while waiting.
func (this *FifoBuffer[T]) PopMultiple(numberToPop uint) (result []T) {
	this.lock.Lock()
	defer this.lock.Unlock()

	for len(this.buffer) == 0 {
		if this.closed {
			return
		}
		this.cond.Wait()
	}

	count := len(this.buffer)
	if int(numberToPop) < count {
		count = int(numberToPop)
	}
	result = make([]T, count)
	copy(result, this.buffer[0:count])
	this.buffer = this.buffer[count:]

	return
}

func (this *FifoBuffer[T]) Length() int {
	this.lock.Lock()
	defer this.lock.Unlock()
	return len(this.buffer)
}

// Close marks the buffer closed, wakes all waiting goroutines and hands back
// whatever was still queued. Closing twice returns nil the second time.
func (this *FifoBuffer[T]) Close() (remaining []T) {
	this.lock.Lock()
	defer this.lock.Unlock()

	if this.closed {
		return nil
	}
	this.closed = true
	remaining = this.buffer
	this.buffer = nil
	this.cond.Broadcast()
	return
}
