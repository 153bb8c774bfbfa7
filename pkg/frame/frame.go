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

import "fmt"

// IngestionFrame is a correlated, rectangular table of time-series
// samples: a timestamp spec (set exactly once, before any data column
// is added) plus an ordered vector of equal-length typed columns.
//
// An IngestionFrame is created and mutated by the caller. Once handed
// to the ingestion facade it is treated as owned by the pipeline;
// decomposition (internal/decompose) produces derived frames sharing
// the same timestamp kind with disjoint row ranges.
type IngestionFrame struct {
	timestamps    TimestampSpec
	timestampsSet bool
	columns       []Column
	colIndex      map[string]int
	attributes    map[string]string
}

// New returns an empty frame with no timestamp spec set.
func New() *IngestionFrame {
	return &IngestionFrame{
		colIndex:   make(map[string]int),
		attributes: make(map[string]string),
	}
}

// SetTimestamps installs the frame's timestamp spec. It may be called
// at most once, and only before any column has been added.
func (f *IngestionFrame) SetTimestamps(spec TimestampSpec) error {
	if f.timestampsSet {
		return fmt.Errorf("timestamp spec already set")
	}
	if len(f.columns) > 0 {
		return fmt.Errorf("timestamp spec must be set before adding columns")
	}
	f.timestamps = spec
	f.timestampsSet = true
	return nil
}

// Timestamps returns the frame's timestamp spec. Callers should check
// HasTimestamps first if the frame may still be under construction.
func (f *IngestionFrame) Timestamps() TimestampSpec { return f.timestamps }

// HasTimestamps reports whether SetTimestamps has been called.
func (f *IngestionFrame) HasTimestamps() bool { return f.timestampsSet }

// AddColumn appends a new column. The column name must be unique
// within the frame and its length must equal the timestamp count.
func (f *IngestionFrame) AddColumn(col Column) error {
	if !f.timestampsSet {
		return fmt.Errorf("cannot add column %q: no timestamp spec set", col.Name)
	}
	if _, exists := f.colIndex[col.Name]; exists {
		return fmt.Errorf("duplicate column name %q", col.Name)
	}
	if len(col.Values) != f.timestamps.Count() {
		return fmt.Errorf("column %q has %d rows, want %d", col.Name, len(col.Values), f.timestamps.Count())
	}
	if err := col.Validate(); err != nil {
		return err
	}
	f.colIndex[col.Name] = len(f.columns)
	f.columns = append(f.columns, col)
	return nil
}

// Columns returns the frame's columns in insertion order. The
// returned slice must not be mutated by the caller.
func (f *IngestionFrame) Columns() []Column { return f.columns }

// Column looks up a column by name.
func (f *IngestionFrame) Column(name string) (Column, bool) {
	i, ok := f.colIndex[name]
	if !ok {
		return Column{}, false
	}
	return f.columns[i], true
}

// RowCount returns the frame's row count (equivalently, the timestamp
// count), or 0 if no timestamp spec has been set.
func (f *IngestionFrame) RowCount() int {
	if !f.timestampsSet {
		return 0
	}
	return f.timestamps.Count()
}

// SetAttribute records a piece of caller metadata. Attributes do not
// participate in any invariant.
func (f *IngestionFrame) SetAttribute(key, value string) { f.attributes[key] = value }

// Attributes returns the frame's metadata map. The returned map must
// not be mutated by the caller.
func (f *IngestionFrame) Attributes() map[string]string { return f.attributes }

// Validate performs the full consistency check required before
// a frame may be submitted for ingestion: a timestamp spec is set,
// column names are unique, every column's length matches the
// timestamp count, and every value is assignable to its column's
// declared type.
func (f *IngestionFrame) Validate() error {
	if !f.timestampsSet {
		return fmt.Errorf("frame has no timestamp spec")
	}
	n := f.timestamps.Count()
	seen := make(map[string]struct{}, len(f.columns))
	for _, col := range f.columns {
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = struct{}{}
		if len(col.Values) != n {
			return fmt.Errorf("column %q has %d rows, want %d", col.Name, len(col.Values), n)
		}
		if err := col.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the frame's total serialized size: the sum of
// every column's SerializedSize. It is monotonic in column and row
// additions.
func (f *IngestionFrame) SerializedSize() (int64, error) {
	var total int64
	for _, col := range f.columns {
		sz, err := col.SerializedSize()
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

// RowSize returns the serialized size contribution of row i across all
// columns: the per-row budget the decomposer's stride math divides by.
func (f *IngestionFrame) RowSize(i int) (int64, error) {
	var total int64
	for _, col := range f.columns {
		sz, err := col.RowSize(i)
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

// Slice returns a derived frame covering the contiguous row range
// [start, start+count), sharing the same timestamp kind (with an
// adjusted start instant and count) and cloned attributes, per
// the decomposition lifecycle rule: slicing never mutates the source.
func (f *IngestionFrame) Slice(start, count int) (*IngestionFrame, error) {
	if !f.timestampsSet {
		return nil, fmt.Errorf("cannot slice a frame with no timestamp spec")
	}
	n := f.timestamps.Count()
	if start < 0 || count < 0 || start+count > n {
		return nil, fmt.Errorf("slice [%d,%d) out of range [0,%d)", start, start+count, n)
	}
	out := New()
	for k, v := range f.attributes {
		out.attributes[k] = v
	}
	if err := out.SetTimestamps(f.timestamps.Sub(start, count)); err != nil {
		return nil, err
	}
	for _, col := range f.columns {
		if err := out.AddColumn(col.Slice(start, count)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
