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
	"fmt"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/clock"
)

// TimestampKind discriminates the two constructors of TimestampSpec.
type TimestampKind int

const (
	// TimestampUnset means the frame has not yet been given a
	// timestamp spec; no data columns may be added in this state.
	TimestampUnset TimestampKind = iota
	TimestampClockKind
	TimestampVectorKind
)

// TimestampSpec is the tagged variant every IngestionFrame carries:
// either a uniform SamplingClock or an explicit, ascending vector of
// instants. Exactly one constructor is ever used for a given value;
// every consumer dispatches on Kind().
type TimestampSpec struct {
	kind   TimestampKind
	clock  clock.SamplingClock
	vector []int64
}

// NewClockTimestamps builds a TimestampSpec backed by a uniform clock.
func NewClockTimestamps(c clock.SamplingClock) (TimestampSpec, error) {
	if err := c.Validate(); err != nil {
		return TimestampSpec{}, fmt.Errorf("invalid clock: %w", err)
	}
	return TimestampSpec{kind: TimestampClockKind, clock: c}, nil
}

// NewVectorTimestamps builds a TimestampSpec backed by an explicit,
// strictly ascending vector of instants.
func NewVectorTimestamps(instants []int64) (TimestampSpec, error) {
	for i := 1; i < len(instants); i++ {
		if instants[i] <= instants[i-1] {
			return TimestampSpec{}, fmt.Errorf("timestamp vector must be strictly ascending at index %d", i)
		}
	}
	cp := make([]int64, len(instants))
	copy(cp, instants)
	return TimestampSpec{kind: TimestampVectorKind, vector: cp}, nil
}

// Kind reports which constructor built this spec.
func (t TimestampSpec) Kind() TimestampKind { return t.kind }

// Count returns the number of instants (and therefore the required
// row count for every data column).
func (t TimestampSpec) Count() int {
	switch t.kind {
	case TimestampClockKind:
		return t.clock.Count
	case TimestampVectorKind:
		return len(t.vector)
	default:
		return 0
	}
}

// Clock returns the backing clock and true if Kind() == TimestampClockKind.
func (t TimestampSpec) Clock() (clock.SamplingClock, bool) {
	return t.clock, t.kind == TimestampClockKind
}

// Vector returns the backing instant vector and true if
// Kind() == TimestampVectorKind.
func (t TimestampSpec) Vector() ([]int64, bool) {
	return t.vector, t.kind == TimestampVectorKind
}

// InstantAt returns the i-th instant regardless of which variant backs
// this spec.
func (t TimestampSpec) InstantAt(i int) int64 {
	switch t.kind {
	case TimestampClockKind:
		return t.clock.InstantAt(i)
	case TimestampVectorKind:
		return t.vector[i]
	default:
		return 0
	}
}

// Sub returns the TimestampSpec describing the contiguous sub-range
// [start, start+count) of this spec's instants, preserving Kind.
func (t TimestampSpec) Sub(start, count int) TimestampSpec {
	switch t.kind {
	case TimestampClockKind:
		return TimestampSpec{kind: TimestampClockKind, clock: t.clock.Sub(start, count)}
	case TimestampVectorKind:
		v := make([]int64, count)
		copy(v, t.vector[start:start+count])
		return TimestampSpec{kind: TimestampVectorKind, vector: v}
	default:
		return TimestampSpec{}
	}
}
