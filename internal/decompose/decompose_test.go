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
	"testing"
	"testing/quick"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/clock"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
)

func eightByteRowFrame(t *testing.T, rows int) *frame.IngestionFrame {
	t.Helper()
	c, err := clock.New(0, int64(1e9), rows)
	if err != nil {
		t.Fatal(err)
	}
	spec, err := frame.NewClockTimestamps(c)
	if err != nil {
		t.Fatal(err)
	}
	f := frame.New()
	if err := f.SetTimestamps(spec); err != nil {
		t.Fatal(err)
	}
	vals := make([]any, rows)
	for i := range vals {
		vals[i] = int64(i)
	}
	if err := f.AddColumn(frame.Column{Name: "sensorA", Type: frame.TypeInt64, Values: vals}); err != nil {
		t.Fatal(err)
	}
	return f
}

// 1000 uniform 8-byte rows under a 2048-byte budget split into row
// counts [256,256,256,232].
func TestBinSplitsUniformRowsAtBudgetBoundary(t *testing.T) {
	f := eightByteRowFrame(t, 1000)
	pieces, err := Bin(f, 2048)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{256, 256, 256, 232}
	if len(pieces) != len(want) {
		t.Fatalf("got %d pieces, want %d", len(pieces), len(want))
	}
	var totalRows int
	for i, p := range pieces {
		if p.RowCount() != want[i] {
			t.Fatalf("piece %d has %d rows, want %d", i, p.RowCount(), want[i])
		}
		size, err := p.SerializedSize()
		if err != nil {
			t.Fatal(err)
		}
		if size > 2048 {
			t.Fatalf("piece %d serialized size %d exceeds budget", i, size)
		}
		totalRows += p.RowCount()
	}
	if totalRows != 1000 {
		t.Fatalf("total rows across pieces = %d, want 1000", totalRows)
	}
}

func TestBinFailsFrameTooLargeForOversizedRow(t *testing.T) {
	f := frame.New()
	c, err := clock.New(0, int64(1e9), 1)
	if err != nil {
		t.Fatal(err)
	}
	spec, err := frame.NewClockTimestamps(c)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetTimestamps(spec); err != nil {
		t.Fatal(err)
	}
	big := make([]byte, 100)
	if err := f.AddColumn(frame.Column{Name: "blob", Type: frame.TypeBytes, Values: []any{big}}); err != nil {
		t.Fatal(err)
	}
	_, err = Bin(f, 10)
	if dperr.KindOf(err) != dperr.KindFrameTooLarge {
		t.Fatalf("expected KindFrameTooLarge, got %v", err)
	}
}

func TestBinRejectsNonPositiveBudget(t *testing.T) {
	f := eightByteRowFrame(t, 10)
	if _, err := Bin(f, 0); dperr.KindOf(err) != dperr.KindConfigInvalid {
		t.Fatalf("expected KindConfigInvalid for zero budget")
	}
}

// TestBinRowUnionIsLossless: for any row
// count and budget large enough to hold at least one row, the row
// counts of the emitted pieces sum to the input's row count, and every
// piece's serialized size stays within budget.
func TestBinRowUnionIsLossless(t *testing.T) {
	prop := func(rowsSeed, budgetSeed uint16) bool {
		rows := int(rowsSeed%2000) + 1
		budget := int64(budgetSeed%4000) + 8 // at least one 8-byte row fits
		f := eightByteRowFrame(t, rows)
		pieces, err := Bin(f, budget)
		if err != nil {
			// FrameTooLarge is the required outcome for an oversized row; any
			// other error on a well-formed frame is not.
			return dperr.KindOf(err) == dperr.KindFrameTooLarge
		}
		var total int
		for _, p := range pieces {
			size, err := p.SerializedSize()
			if err != nil || size > budget {
				return false
			}
			total += p.RowCount()
		}
		return total == rows
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

// Sources {A,B} over [1e9,11e9) split Horizontal(2) into sub-requests
// covering [1e9,6e9) and [6e9,11e9).
func TestDecomposeQueryHorizontalSplitsInterval(t *testing.T) {
	req := querypb.QueryRequest{
		Sources:  []string{"A", "B"},
		Interval: querypb.TimeInterval{StartNanos: 1_000_000_000, EndNanos: 11_000_000_000},
	}
	out, err := DecomposeQuery(req, QueryStrategy{Kind: config.DecompositionHorizontal, HorizontalN: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d sub-requests, want 2", len(out))
	}
	if out[0].Interval != (querypb.TimeInterval{StartNanos: 1_000_000_000, EndNanos: 6_000_000_000}) {
		t.Fatalf("first sub-interval = %+v", out[0].Interval)
	}
	if out[1].Interval != (querypb.TimeInterval{StartNanos: 6_000_000_000, EndNanos: 11_000_000_000}) {
		t.Fatalf("second sub-interval = %+v", out[1].Interval)
	}
	for i, sub := range out {
		if len(sub.Sources) != 2 {
			t.Fatalf("sub-request %d sources = %v, want 2 sources", i, sub.Sources)
		}
	}
}

func TestDecomposeQueryVerticalSplitsNearlyEqually(t *testing.T) {
	req := querypb.QueryRequest{Sources: []string{"A", "B", "C", "D", "E"}}
	out, err := DecomposeQuery(req, QueryStrategy{Kind: config.DecompositionVertical, VerticalN: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d groups, want 2", len(out))
	}
	sizes := []int{len(out[0].Sources), len(out[1].Sources)}
	if (sizes[0] != 3 || sizes[1] != 2) && (sizes[0] != 2 || sizes[1] != 3) {
		t.Fatalf("group sizes = %v, want sizes differing by at most one summing to 5", sizes)
	}
}

func TestDecomposeQueryGridIsCartesianProduct(t *testing.T) {
	req := querypb.QueryRequest{
		Sources:  []string{"A", "B", "C", "D"},
		Interval: querypb.TimeInterval{StartNanos: 0, EndNanos: 100},
	}
	out, err := DecomposeQuery(req, QueryStrategy{Kind: config.DecompositionGrid, GridH: 2, GridV: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 4 {
		t.Fatalf("got %d sub-requests, want 4 (2x2 grid)", len(out))
	}
}

func TestDecomposeQueryNoneIsPassThrough(t *testing.T) {
	req := querypb.QueryRequest{Sources: []string{"A"}, Interval: querypb.TimeInterval{StartNanos: 0, EndNanos: 5}}
	out, err := DecomposeQuery(req, QueryStrategy{Kind: config.DecompositionNone})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Interval != req.Interval {
		t.Fatalf("expected pass-through, got %+v", out)
	}
}

func TestDecomposeQueryRejectsTooManyPieces(t *testing.T) {
	req := querypb.QueryRequest{Sources: []string{"A", "B"}}
	if _, err := DecomposeQuery(req, QueryStrategy{Kind: config.DecompositionVertical, VerticalN: 5}); err == nil {
		t.Fatalf("expected error splitting 2 sources into 5 non-empty groups")
	}
}
