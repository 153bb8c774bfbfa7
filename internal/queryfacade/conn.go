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

package queryfacade

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"context"

	"github.com/osprey-dcs/dp-jal-sub012/internal/correlate"
	"github.com/osprey-dcs/dp-jal-sub012/internal/multiplex"
	"github.com/osprey-dcs/dp-jal-sub012/internal/transport"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/clock"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dprequest"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
)

// wireBucket is the gob-encodable shape one correlate.DataBucket is
// flattened to for querypb.DataBucket.Payload, the same stand-in
// convention internal/ingestfacade uses for the outbound side.
type wireBucket struct {
	SourceName              string
	ClockStart, ClockPeriod int64
	ClockCount              int
	Vector                  []int64
	ColumnType              frame.ColumnType
	Values                  []any
}

func encodeBucket(b correlate.DataBucket) ([]byte, error) {
	wb := wireBucket{SourceName: b.SourceName, ColumnType: b.Column.Type, Values: b.Column.Values}
	if c, ok := b.Interval.Clock(); ok {
		wb.ClockStart, wb.ClockPeriod, wb.ClockCount = c.StartNanos, c.PeriodNanos, c.Count
	} else if v, ok := b.Interval.Vector(); ok {
		wb.Vector = v
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wb); err != nil {
		return nil, fmt.Errorf("gob-encode data bucket: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeBucket(payload []byte) (correlate.DataBucket, error) {
	var wb wireBucket
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&wb); err != nil {
		return correlate.DataBucket{}, fmt.Errorf("gob-decode data bucket: %w", err)
	}
	var (
		ts  frame.TimestampSpec
		err error
	)
	if wb.Vector != nil {
		ts, err = frame.NewVectorTimestamps(wb.Vector)
	} else {
		ts, err = frame.NewClockTimestamps(clock.SamplingClock{
			StartNanos: wb.ClockStart, PeriodNanos: wb.ClockPeriod, Count: wb.ClockCount,
		})
	}
	if err != nil {
		return correlate.DataBucket{}, err
	}
	return correlate.DataBucket{
		SourceName: wb.SourceName,
		Interval:   ts,
		Column:     frame.Column{Name: wb.SourceName, Type: wb.ColumnType, Values: wb.Values},
	}, nil
}

// subResult is the In type the query multiplex correlates: one
// decomposed sub-request's outcome, either the buckets it returned or
// an exceptional status from the remote service. The multiplex itself
// tracks which ClientRequestId this belongs to; subResult carries no
// id of its own.
type subResult struct {
	Buckets     []correlate.DataBucket
	Exceptional bool
	StatusCode  int32
	Message     string
}

func decodeResponse(resp *querypb.QueryDataResponse) (subResult, error) {
	if resp.Kind == querypb.ResponseKindExceptional {
		return subResult{Exceptional: true, StatusCode: resp.StatusCode, Message: resp.Message}, nil
	}
	buckets := make([]correlate.DataBucket, 0, len(resp.Buckets))
	for _, wireBkt := range resp.Buckets {
		b, err := decodeBucket(wireBkt.Payload)
		if err != nil {
			return subResult{}, dperr.Wrap(dperr.KindUnsupportedType, "decoding data bucket", err)
		}
		buckets = append(buckets, b)
	}
	return subResult{Buckets: buckets}, nil
}

func queryOnFailure(_ dprequest.ClientRequestId, cause error) subResult {
	return subResult{Exceptional: true, Message: fmt.Sprintf("transport error: %v", cause)}
}

func queryOnInterrupted(_ dprequest.ClientRequestId, _ error) subResult {
	return subResult{Exceptional: true, Message: "session shut down before a response arrived"}
}

// bidiConn wraps a Bidirectional query stream: every Send gets its
// sub-request's matched response immediately.
type bidiConn struct {
	stream querypb.QueryService_BidiStreamClient
}

func (c *bidiConn) Send(_ context.Context, item *querypb.QueryRequest) (subResult, bool, error) {
	if err := c.stream.Send(item); err != nil {
		return subResult{}, false, err
	}
	resp, err := c.stream.Recv()
	if err != nil {
		return subResult{}, false, err
	}
	result, err := decodeResponse(resp)
	if err != nil {
		return subResult{}, false, err
	}
	return result, true, nil
}

func (c *bidiConn) Close(context.Context) (subResult, bool, error) {
	_ = c.stream.CloseSend()
	return subResult{}, false, nil
}

// backwardConn wraps a Backward query stream: cardinality is the
// reverse of the ingestion service's Backward kind here (one request,
// many responses), so unlike ingestion's backwardConn every Send opens
// its own fresh stream and drains it to completion rather than sharing
// one stream across the worker's whole lifetime.
type backwardConn struct {
	sess *transport.QuerySession
}

func (c *backwardConn) Send(ctx context.Context, item *querypb.QueryRequest) (subResult, bool, error) {
	stream, err := c.sess.OpenBackward(ctx, item)
	if err != nil {
		return subResult{}, false, err
	}
	var buckets []correlate.DataBucket
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return subResult{}, false, err
		}
		if resp.Kind == querypb.ResponseKindExceptional {
			return subResult{Exceptional: true, StatusCode: resp.StatusCode, Message: resp.Message}, true, nil
		}
		for _, wireBkt := range resp.Buckets {
			b, err := decodeBucket(wireBkt.Payload)
			if err != nil {
				return subResult{}, false, dperr.Wrap(dperr.KindUnsupportedType, "decoding data bucket", err)
			}
			buckets = append(buckets, b)
		}
	}
	return subResult{Buckets: buckets}, true, nil
}

func (c *backwardConn) Close(context.Context) (subResult, bool, error) {
	return subResult{}, false, nil
}

func queryConnFactory(sess *transport.QuerySession) multiplex.Factory[*querypb.QueryRequest, subResult] {
	return func(ctx context.Context) (multiplex.WorkerConn[*querypb.QueryRequest, subResult], error) {
		if sess.Kind() == "Backward" {
			return &backwardConn{sess: sess}, nil
		}
		stream, err := sess.OpenBidi(ctx)
		if err != nil {
			return nil, err
		}
		return &bidiConn{stream: stream}, nil
	}
}
