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

// Package clock provides SamplingClock, the uniform-grid timestamp
// representation shared by the ingestion frame model and the query
// sampling-block model. It has no dependencies on either side of the
// pipeline so both can depend on it.
package clock

import "fmt"

// SamplingClock specifies a uniform grid of instants: StartNanos,
// StartNanos+PeriodNanos, StartNanos+2*PeriodNanos, ... for Count
// samples.
type SamplingClock struct {
	StartNanos  int64
	PeriodNanos int64
	Count       int
}

// New constructs a SamplingClock, returning an error if the fields
// can't describe a valid grid (negative period, negative count).
func New(startNanos, periodNanos int64, count int) (SamplingClock, error) {
	c := SamplingClock{StartNanos: startNanos, PeriodNanos: periodNanos, Count: count}
	return c, c.Validate()
}

// Validate reports whether the clock describes a coherent grid.
func (c SamplingClock) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("sample count must be >= 0, got %d", c.Count)
	}
	if c.Count > 1 && c.PeriodNanos <= 0 {
		return fmt.Errorf("period must be > 0 for more than one sample, got %d", c.PeriodNanos)
	}
	if c.PeriodNanos < 0 {
		return fmt.Errorf("period must be >= 0, got %d", c.PeriodNanos)
	}
	return nil
}

// InstantAt returns the i-th instant in the grid (0-indexed).
func (c SamplingClock) InstantAt(i int) int64 {
	return c.StartNanos + int64(i)*c.PeriodNanos
}

// Instants materializes the full ordered sequence of instants. Callers
// processing large clocks should prefer InstantAt in a loop.
func (c SamplingClock) Instants() []int64 {
	out := make([]int64, c.Count)
	for i := range out {
		out[i] = c.InstantAt(i)
	}
	return out
}

// End returns the exclusive end instant of the grid: the instant one
// period past the last sample. For Count == 0 it equals StartNanos.
func (c SamplingClock) End() int64 {
	if c.Count == 0 {
		return c.StartNanos
	}
	return c.StartNanos + int64(c.Count)*c.PeriodNanos
}

// Sub returns the clock describing the contiguous sub-range
// [startRow, startRow+count) of this clock's samples.
func (c SamplingClock) Sub(startRow, count int) SamplingClock {
	return SamplingClock{
		StartNanos:  c.StartNanos + int64(startRow)*c.PeriodNanos,
		PeriodNanos: c.PeriodNanos,
		Count:       count,
	}
}

// Key returns the canonical interval key used by the correlator to
// group buckets sharing this clock: (start, period, count).
func (c SamplingClock) Key() (int64, int64, int) { return c.StartNanos, c.PeriodNanos, c.Count }

// Less orders clocks by (start, period, count), the tiebreak order
// required for CorrelatedBlock ordering.
func (c SamplingClock) Less(other SamplingClock) bool {
	if c.StartNanos != other.StartNanos {
		return c.StartNanos < other.StartNanos
	}
	if c.PeriodNanos != other.PeriodNanos {
		return c.PeriodNanos < other.PeriodNanos
	}
	return c.Count < other.Count
}
