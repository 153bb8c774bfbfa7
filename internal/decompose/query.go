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

package decompose

import (
	"fmt"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
)

// QueryStrategy names how to split a QueryRequest into independent
// sub-requests; the fields beyond Kind that matter depend on Kind.
type QueryStrategy struct {
	Kind         config.DecompositionKind
	HorizontalN  int
	VerticalN    int
	GridH, GridV int
}

// DecomposeQuery splits req according to strategy. Every returned
// sub-request is independently valid: non-empty Sources and a
// positive-duration Interval. The output is deterministic for a given
// (req, strategy) pair.
func DecomposeQuery(req querypb.QueryRequest, strategy QueryStrategy) ([]querypb.QueryRequest, error) {
	switch strategy.Kind {
	case config.DecompositionNone, "":
		return []querypb.QueryRequest{req}, nil
	case config.DecompositionHorizontal:
		intervals, err := splitInterval(req.Interval, strategy.HorizontalN)
		if err != nil {
			return nil, err
		}
		out := make([]querypb.QueryRequest, len(intervals))
		for i, iv := range intervals {
			out[i] = querypb.QueryRequest{Sources: req.Sources, Interval: iv}
		}
		return out, nil
	case config.DecompositionVertical:
		groups, err := splitSources(req.Sources, strategy.VerticalN)
		if err != nil {
			return nil, err
		}
		out := make([]querypb.QueryRequest, len(groups))
		for i, g := range groups {
			out[i] = querypb.QueryRequest{Sources: g, Interval: req.Interval}
		}
		return out, nil
	case config.DecompositionGrid:
		intervals, err := splitInterval(req.Interval, strategy.GridH)
		if err != nil {
			return nil, err
		}
		groups, err := splitSources(req.Sources, strategy.GridV)
		if err != nil {
			return nil, err
		}
		out := make([]querypb.QueryRequest, 0, len(intervals)*len(groups))
		for _, iv := range intervals {
			for _, g := range groups {
				out = append(out, querypb.QueryRequest{Sources: g, Interval: iv})
			}
		}
		return out, nil
	default:
		return nil, dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("unrecognized decomposition strategy %q", strategy.Kind))
	}
}

// splitInterval partitions iv into n contiguous, half-open,
// equal-duration sub-intervals; the last absorbs any remainder.
func splitInterval(iv querypb.TimeInterval, n int) ([]querypb.TimeInterval, error) {
	if n <= 0 {
		return nil, dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("horizontal split count must be positive, got %d", n))
	}
	duration := iv.EndNanos - iv.StartNanos
	if duration <= 0 {
		return nil, dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("time_interval must have positive duration, got [%d,%d)", iv.StartNanos, iv.EndNanos))
	}
	if int64(n) > duration {
		return nil, dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("cannot split a %dns interval into %d positive-duration pieces", duration, n))
	}
	step := duration / int64(n)
	out := make([]querypb.TimeInterval, n)
	start := iv.StartNanos
	for i := 0; i < n; i++ {
		end := start + step
		if i == n-1 {
			end = iv.EndNanos
		}
		out[i] = querypb.TimeInterval{StartNanos: start, EndNanos: end}
		start = end
	}
	return out, nil
}

// splitSources partitions names into n groups of near-equal size
// (sizes differ by at most one), preserving input order within and
// across groups.
func splitSources(names []string, n int) ([][]string, error) {
	if n <= 0 {
		return nil, dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("vertical split count must be positive, got %d", n))
	}
	if n > len(names) {
		return nil, dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("cannot split %d sources into %d non-empty groups", len(names), n))
	}
	base := len(names) / n
	rem := len(names) % n
	out := make([][]string, n)
	idx := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		group := make([]string, size)
		copy(group, names[idx:idx+size])
		out[i] = group
		idx += size
	}
	return out, nil
}
