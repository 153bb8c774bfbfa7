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

// Package sampling is the query-side frame model: CorrelatedBlock,
// SamplingBlock, SamplingProcess, and the canonical interval key the
// correlator groups buckets by. It shares frame.TimestampSpec and
// frame.Column with the ingestion side so both halves of the pipeline
// agree on the timestamp union and typed-column representation.
package sampling

import (
	"hash/fnv"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
)

// IntervalKey is the canonical grouping key assigned to a
// sampling interval: (start, period, count) for a uniform clock, or
// (hash_of_vector, first_instant, length) for an explicit timestamp
// vector. Both shapes are folded into one comparable struct so the
// correlator can key a map by it directly.
type IntervalKey struct {
	StartNanos  int64
	PeriodNanos int64 // 0 for a vector-backed interval
	Count       int
	VectorHash  uint64 // 0 for a clock-backed interval
}

// KeyOf computes the canonical key for a timestamp spec.
func KeyOf(ts frame.TimestampSpec) IntervalKey {
	if c, ok := ts.Clock(); ok {
		return IntervalKey{StartNanos: c.StartNanos, PeriodNanos: c.PeriodNanos, Count: c.Count}
	}
	v, _ := ts.Vector()
	var start int64
	if len(v) > 0 {
		start = v[0]
	}
	return IntervalKey{StartNanos: start, Count: len(v), VectorHash: hashVector(v)}
}

func hashVector(v []int64) uint64 {
	h := fnv.New64a()
	buf := make([]byte, 8)
	for _, x := range v {
		u := uint64(x)
		for i := 0; i < 8; i++ {
			buf[i] = byte(u >> (8 * i))
		}
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

// Less orders keys by (start, period, count), tiebreaking on
// VectorHash only to make the order total for two explicit-vector
// blocks that otherwise collide (the CorrelatedBlock ordering rule,
// extended minimally so Less is a strict weak order).
func (k IntervalKey) Less(other IntervalKey) bool {
	if k.StartNanos != other.StartNanos {
		return k.StartNanos < other.StartNanos
	}
	if k.PeriodNanos != other.PeriodNanos {
		return k.PeriodNanos < other.PeriodNanos
	}
	if k.Count != other.Count {
		return k.Count < other.Count
	}
	return k.VectorHash < other.VectorHash
}
