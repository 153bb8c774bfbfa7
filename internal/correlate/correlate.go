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

// Package correlate groups a stream of per-source data buckets into
// sorted CorrelatedBlocks, keyed by canonical sampling interval. It
// sits between the query-side multiplex (which produces buckets as
// responses arrive, in no particular order) and the assembler (which
// needs blocks already grouped, deduplicated per source, and sorted).
package correlate

import (
	"fmt"
	"sort"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/sampling"
)

// DataBucket is one source's contribution to one sampling interval, as
// the query response stream delivers it.
type DataBucket struct {
	SourceName string
	Interval   frame.TimestampSpec
	Column     frame.Column
}

type group struct {
	interval frame.TimestampSpec
	order    []string
	columns  map[string]frame.Column
}

// Correlator accumulates DataBuckets by canonical interval key. The
// zero value is not usable; build one with New.
type Correlator struct {
	groups map[sampling.IntervalKey]*group
}

// New returns an empty Correlator.
func New() *Correlator {
	return &Correlator{groups: make(map[sampling.IntervalKey]*group)}
}

// Add accumulates one bucket. It returns UnsupportedType for a column
// of unsupported or value-inconsistent type, MissingData for an empty
// column, InconsistentLength when the column's length disagrees with
// its interval's sample count, and DuplicateSource when SourceName
// already has a column in this bucket's interval.
func (c *Correlator) Add(bucket DataBucket) error {
	if bucket.Column.Type == frame.TypeUnsupported {
		return dperr.New(dperr.KindUnsupportedType, fmt.Sprintf("source %q: unsupported column type", bucket.SourceName))
	}
	if len(bucket.Column.Values) == 0 {
		return dperr.New(dperr.KindMissingData, fmt.Sprintf("source %q: empty column", bucket.SourceName))
	}
	if len(bucket.Column.Values) != bucket.Interval.Count() {
		return dperr.New(dperr.KindInconsistentLength, fmt.Sprintf(
			"source %q: column has %d values, interval has %d samples",
			bucket.SourceName, len(bucket.Column.Values), bucket.Interval.Count()))
	}
	if err := bucket.Column.Validate(); err != nil {
		return dperr.Wrap(dperr.KindUnsupportedType, fmt.Sprintf("source %q: value type mismatch", bucket.SourceName), err)
	}

	key := sampling.KeyOf(bucket.Interval)
	g, ok := c.groups[key]
	if !ok {
		g = &group{interval: bucket.Interval, columns: make(map[string]frame.Column)}
		c.groups[key] = g
	}
	if _, dup := g.columns[bucket.SourceName]; dup {
		return dperr.New(dperr.KindDuplicateSource, fmt.Sprintf(
			"source %q already has a column for this sampling interval", bucket.SourceName))
	}
	g.columns[bucket.SourceName] = bucket.Column
	g.order = append(g.order, bucket.SourceName)
	return nil
}

// Blocks emits every accumulated group as a CorrelatedBlock, in
// ascending IntervalKey order. Call it once the input stream has
// completed; Add after Blocks produces blocks Blocks already returned.
func (c *Correlator) Blocks() ([]*sampling.CorrelatedBlock, error) {
	keys := make([]sampling.IntervalKey, 0, len(c.groups))
	for k := range c.groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	blocks := make([]*sampling.CorrelatedBlock, 0, len(keys))
	for _, key := range keys {
		g := c.groups[key]
		cols := make([]frame.Column, len(g.order))
		for i, name := range g.order {
			cols[i] = g.columns[name]
		}
		block, err := sampling.NewCorrelatedBlock(g.interval, cols)
		if err != nil {
			return nil, dperr.Wrap(dperr.KindInconsistentLength, "building correlated block", err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
