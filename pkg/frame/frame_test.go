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

package frame

import (
	"testing"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/clock"
)

func mustClockFrame(t *testing.T, n int) *IngestionFrame {
	t.Helper()
	c, err := clock.New(0, int64(1e9), n)
	if err != nil {
		t.Fatal(err)
	}
	spec, err := NewClockTimestamps(c)
	if err != nil {
		t.Fatal(err)
	}
	f := New()
	if err := f.SetTimestamps(spec); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestAddColumnRejectsLengthMismatch(t *testing.T) {
	f := mustClockFrame(t, 3)
	err := f.AddColumn(Column{Name: "a", Type: TypeInt64, Values: []any{int64(1), int64(2)}})
	if err == nil {
		t.Fatalf("expected length-mismatch error")
	}
}

func TestAddColumnRejectsDuplicateName(t *testing.T) {
	f := mustClockFrame(t, 2)
	col := Column{Name: "a", Type: TypeInt64, Values: []any{int64(1), int64(2)}}
	if err := f.AddColumn(col); err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumn(col); err == nil {
		t.Fatalf("expected duplicate-name error")
	}
}

func TestAddColumnRejectsWrongType(t *testing.T) {
	f := mustClockFrame(t, 2)
	err := f.AddColumn(Column{Name: "a", Type: TypeInt64, Values: []any{"not an int", int64(2)}})
	if err == nil {
		t.Fatalf("expected type-mismatch error")
	}
}

func TestSerializedSizeMonotonic(t *testing.T) {
	f := mustClockFrame(t, 4)
	base, err := f.SerializedSize()
	if err != nil {
		t.Fatal(err)
	}
	if base != 0 {
		t.Fatalf("empty frame should have zero size, got %d", base)
	}
	if err := f.AddColumn(Column{Name: "a", Type: TypeInt64, Values: []any{int64(1), int64(2), int64(3), int64(4)}}); err != nil {
		t.Fatal(err)
	}
	afterOne, err := f.SerializedSize()
	if err != nil {
		t.Fatal(err)
	}
	if afterOne != 32 {
		t.Fatalf("SerializedSize = %d, want 32", afterOne)
	}
	if err := f.AddColumn(Column{Name: "b", Type: TypeString, Values: []any{"x", "yy", "zzz", "w"}}); err != nil {
		t.Fatal(err)
	}
	afterTwo, err := f.SerializedSize()
	if err != nil {
		t.Fatal(err)
	}
	if afterTwo <= afterOne {
		t.Fatalf("SerializedSize should grow monotonically: %d -> %d", afterOne, afterTwo)
	}
}

func TestSliceProducesDisjointRowRangesWithAdjustedClock(t *testing.T) {
	f := mustClockFrame(t, 10)
	vals := make([]any, 10)
	for i := range vals {
		vals[i] = int64(i)
	}
	if err := f.AddColumn(Column{Name: "v", Type: TypeInt64, Values: vals}); err != nil {
		t.Fatal(err)
	}
	first, err := f.Slice(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.Slice(4, 6)
	if err != nil {
		t.Fatal(err)
	}
	if first.RowCount() != 4 || second.RowCount() != 6 {
		t.Fatalf("unexpected row counts: %d, %d", first.RowCount(), second.RowCount())
	}
	fc, _ := first.Timestamps().Clock()
	sc, _ := second.Timestamps().Clock()
	if fc.StartNanos != 0 || sc.StartNanos != 4_000_000_000 {
		t.Fatalf("expected adjusted start instants, got %d and %d", fc.StartNanos, sc.StartNanos)
	}
	col1, _ := first.Column("v")
	col2, _ := second.Column("v")
	union := append(append([]any{}, col1.Values...), col2.Values...)
	for i, v := range union {
		if v.(int64) != int64(i) {
			t.Fatalf("row union mismatch at %d: %v", i, v)
		}
	}
}

func TestVectorTimestampsRejectUnsorted(t *testing.T) {
	if _, err := NewVectorTimestamps([]int64{5, 3, 7}); err == nil {
		t.Fatalf("expected error for non-ascending vector")
	}
}

func TestValidateCatchesMissingTimestamps(t *testing.T) {
	f := New()
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error: no timestamp spec set")
	}
}
