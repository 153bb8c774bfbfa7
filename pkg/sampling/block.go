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

package sampling

import (
	"fmt"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
)

// CorrelatedBlock is one sampling interval as seen by the correlator:
// a single timestamp spec (clock or explicit vector) plus one data
// column per source that reported a sample in that interval. It makes
// no claim about the full set of sources a query spans; that is
// SamplingBlock's job, one layer up.
type CorrelatedBlock struct {
	interval frame.TimestampSpec
	key      IntervalKey
	columns  []frame.Column
	index    map[string]int
}

// NewCorrelatedBlock builds a block from an interval and its per-source
// columns. Column names (source names) must be unique and every
// column's length must equal the interval's sample count.
func NewCorrelatedBlock(interval frame.TimestampSpec, columns []frame.Column) (*CorrelatedBlock, error) {
	n := interval.Count()
	index := make(map[string]int, len(columns))
	cols := make([]frame.Column, len(columns))
	for i, col := range columns {
		if _, dup := index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate source %q in correlated block", col.Name)
		}
		if len(col.Values) != n {
			return nil, fmt.Errorf("source %q has %d samples, want %d", col.Name, len(col.Values), n)
		}
		if err := col.Validate(); err != nil {
			return nil, fmt.Errorf("source %q: %w", col.Name, err)
		}
		index[col.Name] = i
		cols[i] = col
	}
	return &CorrelatedBlock{interval: interval, key: KeyOf(interval), columns: cols, index: index}, nil
}

// Key returns the block's canonical interval key.
func (b *CorrelatedBlock) Key() IntervalKey { return b.key }

// Interval returns the block's timestamp spec.
func (b *CorrelatedBlock) Interval() frame.TimestampSpec { return b.interval }

// SampleCount returns the number of samples in the block's interval.
func (b *CorrelatedBlock) SampleCount() int { return b.interval.Count() }

// SourceNames returns the block's source names in the order columns
// were supplied at construction.
func (b *CorrelatedBlock) SourceNames() []string {
	names := make([]string, len(b.columns))
	for i, col := range b.columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a source's column by name.
func (b *CorrelatedBlock) Column(name string) (frame.Column, bool) {
	i, ok := b.index[name]
	if !ok {
		return frame.Column{}, false
	}
	return b.columns[i], true
}

// Start returns the first instant in the block's interval, or 0 for an
// empty interval.
func (b *CorrelatedBlock) Start() int64 {
	if b.interval.Count() == 0 {
		return 0
	}
	return b.interval.InstantAt(0)
}

// End returns the first instant past the block's interval: for a
// clock-backed interval this is clock.End(); for a vector-backed one
// it is the last instant plus one nanosecond, so the two kinds share
// an exclusive-end convention and pairwise-disjoint ordering can
// compare End(prev) <= Start(next) uniformly.
func (b *CorrelatedBlock) End() int64 {
	if c, ok := b.interval.Clock(); ok {
		return c.End()
	}
	if b.interval.Count() == 0 {
		return 0
	}
	return b.interval.InstantAt(b.interval.Count()-1) + 1
}

// SamplingBlock is a CorrelatedBlock widened to the full source set of
// an enclosing SamplingProcess: every process-level source is
// represented, with an explicit-null column standing in for sources
// that reported nothing in this interval (assembler null
// insertion rule). internal/assemble is responsible for enforcing
// "every process source present"; this type only enforces internal
// consistency of whatever columns it is given.
type SamplingBlock struct {
	interval frame.TimestampSpec
	key      IntervalKey
	columns  []frame.Column
	index    map[string]int
}

// NewSamplingBlock builds a sampling block from an interval and its
// (possibly null-padded) columns.
func NewSamplingBlock(interval frame.TimestampSpec, columns []frame.Column) (*SamplingBlock, error) {
	cb, err := NewCorrelatedBlock(interval, columns)
	if err != nil {
		return nil, err
	}
	return &SamplingBlock{interval: cb.interval, key: cb.key, columns: cb.columns, index: cb.index}, nil
}

func (b *SamplingBlock) Key() IntervalKey                { return b.key }
func (b *SamplingBlock) Interval() frame.TimestampSpec   { return b.interval }
func (b *SamplingBlock) SampleCount() int                { return b.interval.Count() }
func (b *SamplingBlock) Start() int64 {
	if b.interval.Count() == 0 {
		return 0
	}
	return b.interval.InstantAt(0)
}

func (b *SamplingBlock) End() int64 {
	if c, ok := b.interval.Clock(); ok {
		return c.End()
	}
	if b.interval.Count() == 0 {
		return 0
	}
	return b.interval.InstantAt(b.interval.Count()-1) + 1
}

// SourceNames returns the block's source names in column order.
func (b *SamplingBlock) SourceNames() []string {
	names := make([]string, len(b.columns))
	for i, col := range b.columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a source's column by name.
func (b *SamplingBlock) Column(name string) (frame.Column, bool) {
	i, ok := b.index[name]
	if !ok {
		return frame.Column{}, false
	}
	return b.columns[i], true
}

// TimeSeries returns the named source's typed value view.
func (b *SamplingBlock) TimeSeries(name string) (TimeSeries, bool) {
	col, ok := b.Column(name)
	if !ok {
		return TimeSeries{}, false
	}
	return TimeSeries{Type: col.Type, Values: col.Values}, true
}

// TimeSeries is a typed, named source's values over some span of
// samples, with no timestamp attached of its own: it is always viewed
// relative to an enclosing block or process's interval.
type TimeSeries struct {
	Type   frame.ColumnType
	Values []any
}

// Len returns the number of samples in the series.
func (ts TimeSeries) Len() int { return len(ts.Values) }
