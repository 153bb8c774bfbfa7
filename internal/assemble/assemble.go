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

// Package assemble widens the correlator's per-source CorrelatedBlocks
// into a query's full source set and builds the resulting
// SamplingProcess: one column per requested source in every block,
// explicit-null where a source reported nothing in that interval, in
// pairwise-disjoint, strictly increasing interval order.
package assemble

import (
	"fmt"
	"sort"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/sampling"
)

// Assemble orders blocks by interval key, widens each to carry every
// name in sourceNames (inserting a null column, typed from the first
// block that carries that source, where one is absent), and builds the
// resulting SamplingProcess.
//
// It returns DomainOverlap if two blocks' intervals are not pairwise
// disjoint, TypeConflict if a source's declared type disagrees across
// blocks, and SourceMissing if a requested source never appears in any
// block. A block column for a source not in sourceNames is dropped;
// the assembled process only ever carries the request's own sources.
func Assemble(blocks []*sampling.CorrelatedBlock, sourceNames []string) (*sampling.SamplingProcess, error) {
	sorted := append([]*sampling.CorrelatedBlock(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key().Less(sorted[j].Key()) })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.End() > cur.Start() {
			return nil, dperr.New(dperr.KindDomainOverlap, fmt.Sprintf(
				"block [%d,%d) overlaps block starting at %d",
				prev.Start(), prev.End(), cur.Start()))
		}
	}

	types := make(map[string]frame.ColumnType, len(sourceNames))
	present := make(map[string]bool, len(sourceNames))
	for _, b := range sorted {
		for _, name := range b.SourceNames() {
			col, _ := b.Column(name)
			if t, ok := types[name]; ok {
				if t != col.Type {
					return nil, dperr.New(dperr.KindTypeConflict, fmt.Sprintf(
						"source %q has type %s in one block, %s in another", name, col.Type, t))
				}
			} else {
				types[name] = col.Type
			}
			present[name] = true
		}
	}

	for _, name := range sourceNames {
		if !present[name] {
			return nil, dperr.New(dperr.KindSourceMissing, fmt.Sprintf(
				"source %q never appears in any block", name))
		}
	}

	widened := make([]*sampling.SamplingBlock, len(sorted))
	for i, b := range sorted {
		cols := make([]frame.Column, 0, len(sourceNames))
		for _, name := range sourceNames {
			if col, ok := b.Column(name); ok {
				cols = append(cols, col)
			} else {
				cols = append(cols, frame.NullColumn(name, types[name], b.SampleCount()))
			}
		}
		sb, err := sampling.NewSamplingBlock(b.Interval(), cols)
		if err != nil {
			return nil, dperr.Wrap(dperr.KindTypeConflict, "widening block to the request's source set", err)
		}
		widened[i] = sb
	}

	process, err := sampling.NewSamplingProcess(widened)
	if err != nil {
		return nil, dperr.Wrap(dperr.KindDomainOverlap, "assembling sampling process", err)
	}
	return process, nil
}
