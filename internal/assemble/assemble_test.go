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

package assemble

import (
	"testing"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/clock"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/sampling"
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

func block(t *testing.T, interval frame.TimestampSpec, cols ...frame.Column) *sampling.CorrelatedBlock {
	t.Helper()
	b, err := sampling.NewCorrelatedBlock(interval, cols)
	if err != nil {
		t.Fatalf("NewCorrelatedBlock: %v", err)
	}
	return b
}

func TestAssembleRejectsOverlappingIntervals(t *testing.T) {
	a := block(t, clockSpec(t, 0, int64(1e9), 5), frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 1)})
	b := block(t, clockSpec(t, int64(3e9), int64(1e9), 5), frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 2)})

	_, err := Assemble([]*sampling.CorrelatedBlock{a, b}, []string{"A"})
	if dperr.KindOf(err) != dperr.KindDomainOverlap {
		t.Fatalf("err = %v, want DomainOverlap", err)
	}
}

func TestAssembleRejectsTypeConflictAcrossBlocks(t *testing.T) {
	a := block(t, clockSpec(t, 0, int64(1e9), 5), frame.Column{Name: "A", Type: frame.TypeInt64, Values: []any{int64(1), int64(2), int64(3), int64(4), int64(5)}})
	b := block(t, clockSpec(t, int64(5e9), int64(1e9), 5), frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 1)})

	_, err := Assemble([]*sampling.CorrelatedBlock{a, b}, []string{"A"})
	if dperr.KindOf(err) != dperr.KindTypeConflict {
		t.Fatalf("err = %v, want TypeConflict", err)
	}
}

func TestAssembleRejectsSourceNeverPresent(t *testing.T) {
	a := block(t, clockSpec(t, 0, int64(1e9), 5), frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 1)})

	_, err := Assemble([]*sampling.CorrelatedBlock{a}, []string{"A", "B"})
	if dperr.KindOf(err) != dperr.KindSourceMissing {
		t.Fatalf("err = %v, want SourceMissing", err)
	}
}

func TestAssembleInsertsNullColumnForAbsentSource(t *testing.T) {
	a := block(t, clockSpec(t, 0, int64(1e9), 3),
		frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(3, 1)},
		frame.Column{Name: "B", Type: frame.TypeFloat64, Values: floats(3, 2)})
	b := block(t, clockSpec(t, int64(3e9), int64(1e9), 3),
		frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(3, 3)})

	process, err := Assemble([]*sampling.CorrelatedBlock{a, b}, []string{"A", "B"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	series, ok := process.TimeSeries("B")
	if !ok {
		t.Fatalf("TimeSeries(B) not found")
	}
	if series.Len() != 6 {
		t.Fatalf("len(B) = %d, want 6", series.Len())
	}
	for i := 3; i < 6; i++ {
		if series.Values[i] != nil {
			t.Fatalf("B[%d] = %v, want explicit-null", i, series.Values[i])
		}
	}
}

func TestAssembleOrdersBlocksByIntervalKeyRegardlessOfInputOrder(t *testing.T) {
	early := block(t, clockSpec(t, 0, int64(1e9), 5), frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 1)})
	late := block(t, clockSpec(t, int64(5e9), int64(1e9), 5), frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(5, 2)})

	process, err := Assemble([]*sampling.CorrelatedBlock{late, early}, []string{"A"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if process.Blocks()[0].Start() != 0 || process.Blocks()[1].Start() != int64(5e9) {
		t.Fatalf("blocks not sorted: starts = [%d, %d]", process.Blocks()[0].Start(), process.Blocks()[1].Start())
	}
	if process.SampleCount() != 10 {
		t.Fatalf("SampleCount() = %d, want 10", process.SampleCount())
	}
	start, end := process.TimeDomain()
	if start != 0 || end != int64(10e9) {
		t.Fatalf("TimeDomain() = [%d,%d), want [0,%d)", start, end, int64(10e9))
	}
}

func TestAssembleDropsColumnsForUnrequestedSources(t *testing.T) {
	a := block(t, clockSpec(t, 0, int64(1e9), 2),
		frame.Column{Name: "A", Type: frame.TypeFloat64, Values: floats(2, 1)},
		frame.Column{Name: "Extra", Type: frame.TypeFloat64, Values: floats(2, 9)})

	process, err := Assemble([]*sampling.CorrelatedBlock{a}, []string{"A"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, ok := process.SourceType("Extra"); ok {
		t.Fatalf("SourceType(Extra) found, want the unrequested column dropped")
	}
}
