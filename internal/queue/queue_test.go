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

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
)

func TestDisabledModeNeverBlocks(t *testing.T) {
	q := New[int]("intake", ModeDisabled, 0, 0)
	for i := 0; i < 1000; i++ {
		if err := q.Submit(context.Background(), i); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if q.Len() != 1000 {
		t.Fatalf("Len() = %d, want 1000", q.Len())
	}
}

// With capacity 2 and no consumer, a third submit with a 50ms
// timeout returns TimedOut.
func TestTimeoutModeRejectsThirdSubmit(t *testing.T) {
	q := New[int]("intake", ModeTimeout, 2, 50*time.Millisecond)
	if err := q.Submit(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := q.Submit(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	err := q.Submit(context.Background(), 3)
	elapsed := time.Since(start)
	if dperr.KindOf(err) != dperr.KindTimedOut {
		t.Fatalf("expected KindTimedOut, got %v", err)
	}
	if elapsed < 40*time.Millisecond {
		t.Fatalf("submit returned too quickly: %v", elapsed)
	}
}

func TestCapacityModeUnblocksOnDequeue(t *testing.T) {
	q := New[int]("intake", ModeCapacity, 1, 0)
	if err := q.Submit(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() {
		done <- q.Submit(context.Background(), 2)
	}()

	select {
	case err := <-done:
		t.Fatalf("submit returned before room was made: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := q.Dequeue(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("submit should have succeeded after dequeue: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("submit never unblocked after dequeue")
	}
}

func TestSubmitInterruptedByContextCancel(t *testing.T) {
	q := New[int]("intake", ModeCapacity, 1, 0)
	if err := q.Submit(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- q.Submit(ctx, 2)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if dperr.KindOf(err) != dperr.KindInterrupted {
			t.Fatalf("expected KindInterrupted, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("submit never observed cancellation")
	}
}

func TestCloseInterruptsBlockedDequeue(t *testing.T) {
	q := New[int]("intake", ModeCapacity, 4, 0)
	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-done:
		if dperr.KindOf(err) != dperr.KindInterrupted {
			t.Fatalf("expected KindInterrupted, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("dequeue never observed close")
	}
}

func TestDequeuePreservesFIFOOrder(t *testing.T) {
	q := New[int]("intake", ModeDisabled, 0, 0)
	for i := 0; i < 10; i++ {
		if err := q.Submit(context.Background(), i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 10; i++ {
		got, err := q.Dequeue(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got != i {
			t.Fatalf("Dequeue() = %d, want %d", got, i)
		}
	}
}
