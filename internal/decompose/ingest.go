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

// Package decompose splits an ingestion frame into size-bounded pieces
// and a query request into parallel sub-requests, the two decomposer
// halves of the client's request-shaping layer.
package decompose

import (
	"fmt"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
)

// Bin splits f into a sequence of frames whose row-union equals f's
// rows, each with serialized size at most maxBytes. It accumulates
// rows greedily by their actual per-row size, so a frame with
// variable-size values (strings, bytes) bins correctly alongside one
// with uniform fixed-size rows; for that case it produces exactly the
// row-stride split a fixed-size scheme would.
func Bin(f *frame.IngestionFrame, maxBytes int64) ([]*frame.IngestionFrame, error) {
	if maxBytes <= 0 {
		return nil, dperr.New(dperr.KindConfigInvalid, "binning max_bytes must be positive")
	}
	if err := f.Validate(); err != nil {
		return nil, dperr.Wrap(dperr.KindFrameInvalid, "frame failed consistency check", err)
	}
	n := f.RowCount()
	if n == 0 {
		return []*frame.IngestionFrame{f}, nil
	}

	var out []*frame.IngestionFrame
	start := 0
	for start < n {
		count := 0
		var size int64
		for start+count < n {
			rowSize, err := f.RowSize(start + count)
			if err != nil {
				return nil, err
			}
			if count == 0 && rowSize > maxBytes {
				return nil, dperr.New(dperr.KindFrameTooLarge, fmt.Sprintf("row %d alone is %d bytes, exceeds budget %d", start+count, rowSize, maxBytes))
			}
			if size+rowSize > maxBytes {
				break
			}
			size += rowSize
			count++
		}
		piece, err := f.Slice(start, count)
		if err != nil {
			return nil, err
		}
		out = append(out, piece)
		start += count
	}
	return out, nil
}
