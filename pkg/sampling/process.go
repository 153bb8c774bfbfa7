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
	"sort"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
)

// SamplingProcess is the query-side result for one source set: an
// ordered sequence of SamplingBlocks whose intervals are pairwise
// disjoint and increasing, each carrying a column for every source in
// the process (internal/assemble builds these; this constructor only
// re-checks the structural invariants a caller must already have
// satisfied).
type SamplingProcess struct {
	blocks      []*SamplingBlock
	sourceNames []string
	sourceTypes map[string]frame.ColumnType
}

// NewSamplingProcess builds a process from blocks already ordered by
// start instant. It fails if the blocks are not strictly ordered and
// disjoint, or if they disagree on the source set or a source's type.
func NewSamplingProcess(blocks []*SamplingBlock) (*SamplingProcess, error) {
	if len(blocks) == 0 {
		return &SamplingProcess{sourceTypes: map[string]frame.ColumnType{}}, nil
	}
	names := blocks[0].SourceNames()
	sort.Strings(names)
	types := make(map[string]frame.ColumnType, len(names))
	for _, n := range names {
		col, _ := blocks[0].Column(n)
		types[n] = col.Type
	}
	for i, b := range blocks {
		bn := append([]string(nil), b.SourceNames()...)
		sort.Strings(bn)
		if !equalStrings(names, bn) {
			return nil, fmt.Errorf("block %d source set disagrees with block 0", i)
		}
		for _, n := range names {
			col, _ := b.Column(n)
			if col.Type != types[n] {
				return nil, fmt.Errorf("block %d: source %q has type %s, want %s", i, n, col.Type, types[n])
			}
		}
		if i > 0 {
			prev := blocks[i-1]
			if prev.End() > b.Start() {
				return nil, fmt.Errorf("block %d overlaps preceding block: prev end %d > start %d", i, prev.End(), b.Start())
			}
			if !prev.Key().Less(b.Key()) {
				return nil, fmt.Errorf("blocks are not strictly ordered at index %d", i)
			}
		}
	}
	return &SamplingProcess{blocks: blocks, sourceNames: names, sourceTypes: types}, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Blocks returns the process's blocks in order.
func (p *SamplingProcess) Blocks() []*SamplingBlock { return p.blocks }

// SampleCount returns the total number of samples across all blocks.
func (p *SamplingProcess) SampleCount() int {
	var n int
	for _, b := range p.blocks {
		n += b.SampleCount()
	}
	return n
}

// TimeDomain returns the process's overall [start, end) span, or
// (0, 0) if the process has no blocks.
func (p *SamplingProcess) TimeDomain() (start, end int64) {
	if len(p.blocks) == 0 {
		return 0, 0
	}
	return p.blocks[0].Start(), p.blocks[len(p.blocks)-1].End()
}

// SourceNames returns the process's source names, sorted.
func (p *SamplingProcess) SourceNames() []string { return p.sourceNames }

// SourceType returns a source's declared column type.
func (p *SamplingProcess) SourceType(name string) (frame.ColumnType, bool) {
	t, ok := p.sourceTypes[name]
	return t, ok
}

// TimeSeries concatenates a source's values across every block, in
// block order, into a single typed view over the whole process.
func (p *SamplingProcess) TimeSeries(name string) (TimeSeries, bool) {
	t, ok := p.sourceTypes[name]
	if !ok {
		return TimeSeries{}, false
	}
	var values []any
	for _, b := range p.blocks {
		ts, ok := b.TimeSeries(name)
		if !ok {
			return TimeSeries{}, false
		}
		values = append(values, ts.Values...)
	}
	return TimeSeries{Type: t, Values: values}, true
}
