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

package dprequest

import (
	"sync"
	"testing"
)

func TestMinterNeverRepeatsUnderConcurrency(t *testing.T) {
	m := NewMinter("sess-1")
	const n = 500
	ids := make(chan ClientRequestId, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- m.Mint()
		}()
	}
	wg.Wait()
	close(ids)
	seen := make(map[ClientRequestId]struct{}, n)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ClientRequestId minted: %s", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != n {
		t.Fatalf("minted %d ids, want %d", len(seen), n)
	}
}

func TestIngestionResponseKindPredicates(t *testing.T) {
	ack := NewAck("r1")
	if !ack.IsAck() || ack.IsExceptional() || ack.IsInterrupted() {
		t.Fatalf("Ack predicates wrong: %+v", ack)
	}
	exc := NewExceptional("r2", 13, "backend unavailable")
	if !exc.IsExceptional() || exc.IsAck() || exc.IsInterrupted() {
		t.Fatalf("Exceptional predicates wrong: %+v", exc)
	}
	interrupted := NewInterrupted("r3")
	if !interrupted.IsInterrupted() || interrupted.IsAck() || interrupted.IsExceptional() {
		t.Fatalf("Interrupted predicates wrong: %+v", interrupted)
	}
}
