// Copyright 2025 Osprey DCS Contributors. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package queue is the bounded FIFO between producers (callers or the
// network) and the stream multiplex: the intake/outtake queue, with
// its three back-pressure modes.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/osprey-dcs/dp-jal-sub012/internal/telemetry/metrics"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
)

// Mode selects how Submit behaves when the queue is at capacity.
type Mode int

const (
	// ModeDisabled never blocks; the queue is unbounded.
	ModeDisabled Mode = iota
	// ModeCapacity blocks Submit until room is available or the queue
	// is closed or the caller's context is canceled.
	ModeCapacity
	// ModeTimeout blocks Submit for at most the queue's configured
	// timeout, returning TimedOut if no room opened up in time.
	ModeTimeout
)

// Queue is a bounded FIFO of T. The zero value is not usable; build
// one with New.
type Queue[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []T
	name     string
	mode     Mode
	capacity int
	timeout  time.Duration
	closed   bool
}

// New builds a Queue. name labels its depth/rejection metrics.
// capacity and timeout are ignored in ModeDisabled.
func New[T any](name string, mode Mode, capacity int, timeout time.Duration) *Queue[T] {
	q := &Queue[T]{name: name, mode: mode, capacity: capacity, timeout: timeout}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Len reports the queue's current depth.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes every blocked Submit and Dequeue call; each observes
// Interrupted (Submit) or an empty-and-closed Dequeue from then on.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// watchCancellation broadcasts on the queue's condition variable when
// ctx is canceled or deadlineC fires, so a goroutine blocked in
// cond.Wait re-checks its loop condition instead of waiting forever.
// deadlineC may be nil (it is simply never selected).
func (q *Queue[T]) watchCancellation(ctx context.Context, deadlineC <-chan time.Time, stop <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-deadlineC:
	case <-stop:
		return
	}
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Submit enqueues item, applying the queue's configured back-pressure
// mode. It returns nil on acceptance, dperr.KindInterrupted if ctx was
// canceled or the queue closed while waiting, or dperr.KindTimedOut if
// ModeTimeout's deadline elapsed first.
func (q *Queue[T]) Submit(ctx context.Context, item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.mode == ModeDisabled {
		if q.closed {
			return dperr.Sentinel(dperr.KindInterrupted)
		}
		q.items = append(q.items, item)
		q.cond.Broadcast()
		metrics.SetQueueDepth(q.name, len(q.items))
		return nil
	}

	var deadline time.Time
	var deadlineC <-chan time.Time
	if q.mode == ModeTimeout {
		deadline = time.Now().Add(q.timeout)
		timer := time.NewTimer(q.timeout)
		defer timer.Stop()
		deadlineC = timer.C
	}

	stop := make(chan struct{})
	defer close(stop)
	go q.watchCancellation(ctx, deadlineC, stop)

	for len(q.items) >= q.capacity && !q.closed {
		select {
		case <-ctx.Done():
			metrics.ObserveQueueRejected(q.name, "Interrupted")
			return dperr.Wrap(dperr.KindInterrupted, "submit canceled while waiting for queue room", ctx.Err())
		default:
		}
		if q.mode == ModeTimeout && !time.Now().Before(deadline) {
			metrics.ObserveQueueRejected(q.name, "TimedOut")
			return dperr.Sentinel(dperr.KindTimedOut)
		}
		q.cond.Wait()
	}
	if q.closed {
		metrics.ObserveQueueRejected(q.name, "Interrupted")
		return dperr.Sentinel(dperr.KindInterrupted)
	}
	q.items = append(q.items, item)
	q.cond.Broadcast()
	metrics.SetQueueDepth(q.name, len(q.items))
	return nil
}

// DrainAll empties the queue immediately and returns whatever it held,
// oldest first. It never blocks; callers use it to collect the items a
// hard shutdown discards without sending them through a worker.
func (q *Queue[T]) DrainAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	metrics.SetQueueDepth(q.name, 0)
	return items
}

// Dequeue removes and returns the oldest item, blocking until one is
// available, the queue closes with nothing left, or ctx is canceled.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go q.watchCancellation(ctx, nil, stop)

	for len(q.items) == 0 && !q.closed {
		select {
		case <-ctx.Done():
			var zero T
			return zero, dperr.Wrap(dperr.KindInterrupted, "dequeue canceled while waiting for an item", ctx.Err())
		default:
		}
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, dperr.Sentinel(dperr.KindInterrupted)
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.cond.Broadcast()
	metrics.SetQueueDepth(q.name, len(q.items))
	return item, nil
}
