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

package correlate

import (
	"testing"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/clock"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
)

func clockSpec(t *testing.T, start, period int64, count int) frame.TimestampSpec {
	t.Helper()
	c, err := clock.New(start, period, count)
	if err != nil {
		t.Fatalf("clock.New: %v", err)
	}
	ts, err := frame.NewClockTimestamps(c)
	if err != nil {
		t.Fatalf("NewClockTimestamps: %v", err)
	}
	return ts
}

func floats(n int, fill float64) []any {
	vs := make([]any, n)
	for i := range vs {
		vs[i] = fill
	}
	return vs
}

func TestAddRejectsDuplicateSourceWithinSameInterval(t *testing.T) {
	c := New()
	interval := clockSpec(t, 0, int64(1e9), 5)
	if err := c.Add(DataBucket{SourceName: "A", Interval: interval, Column: frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 1)}}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := c.Add(DataBucket{SourceName: "A", Interval: interval, Column: frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 2)}})
	if dperr.KindOf(err) != dperr.KindDuplicateSource {
		t.Fatalf("err = %v, want DuplicateSource", err)
	}
}

func TestAddRejectsEmptyColumn(t *testing.T) {
	c := New()
	interval := clockSpec(t, 0, int64(1e9), 5)
	err := c.Add(DataBucket{SourceName: "A", Interval: interval, Column: frame.Column{Name: "A", Type: frame.TypeFloat64, Values: nil}})
	if dperr.KindOf(err) != dperr.KindMissingData {
		t.Fatalf("err = %v, want MissingData", err)
	}
}

func TestAddRejectsLengthMismatchWithInterval(t *testing.T) {
	c := New()
	interval := clockSpec(t, 0, int64(1e9), 5)
	err := c.Add(DataBucket{SourceName: "A", Interval: interval, Column: frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(3, 1)}})
	if dperr.KindOf(err) != dperr.KindInconsistentLength {
		t.Fatalf("err = %v, want InconsistentLength", err)
	}
}

func TestAddRejectsUnsupportedColumnType(t *testing.T) {
	c := New()
	interval := clockSpec(t, 0, int64(1e9), 5)
	err := c.Add(DataBucket{SourceName: "A", Interval: interval, Column: frame.Column{Name: "A", Type: frame.TypeUnsupported, Values: floats(5, 1)}})
	if dperr.KindOf(err) != dperr.KindUnsupportedType {
		t.Fatalf("err = %v, want UnsupportedType", err)
	}
}

func TestAddRejectsValueTypeMismatch(t *testing.T) {
	c := New()
	interval := clockSpec(t, 0, int64(1e9), 2)
	err := c.Add(DataBucket{SourceName: "A", Interval: interval, Column: frame.Column{Name: "A", Type: frame.TypeInt64, Values: []any{"not an int", int64(2)}}})
	if dperr.KindOf(err) != dperr.KindUnsupportedType {
		t.Fatalf("err = %v, want UnsupportedType", err)
	}
}

func TestBlocksEmitsInAscendingKeyOrder(t *testing.T) {
	c := New()
	late := clockSpec(t, int64(5e9), int64(1e9), 5)
	early := clockSpec(t, 0, int64(1e9), 5)
	if err := c.Add(DataBucket{SourceName: "A", Interval: late, Column: frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 1)}}); err != nil {
		t.Fatalf("add late: %v", err)
	}
	if err := c.Add(DataBucket{SourceName: "A", Interval: early, Column: frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 2)}}); err != nil {
		t.Fatalf("add early: %v", err)
	}
	blocks, err := c.Blocks()
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	if blocks[0].Start() != 0 || blocks[1].Start() != int64(5e9) {
		t.Fatalf("blocks not in ascending key order: starts = [%d, %d]", blocks[0].Start(), blocks[1].Start())
	}
}

func TestBlocksGroupsMultipleSourcesInSameInterval(t *testing.T) {
	c := New()
	interval := clockSpec(t, 0, int64(1e9), 4)
	if err := c.Add(DataBucket{SourceName: "A", Interval: interval, Column: frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(4, 1)}}); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if err := c.Add(DataBucket{SourceName: "B", Interval: interval, Column: frame.Column{Name: "B", Type: frame.TypeFloat64, Values: floats(4, 2)}}); err != nil {
		t.Fatalf("add B: %v", err)
	}
	blocks, err := c.Blocks()
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(blocks))
	}
	names := blocks[0].SourceNames()
	if len(names) != 2 {
		t.Fatalf("SourceNames() = %v, want 2 sources", names)
	}
}
