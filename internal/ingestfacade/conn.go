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

package ingestfacade

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/osprey-dcs/dp-jal-sub012/internal/multiplex"
	"github.com/osprey-dcs/dp-jal-sub012/internal/transport"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dprequest"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/ingestpb"
)

// wireFrame is the gob-encodable shape a *frame.IngestionFrame is
// flattened to for the Payload bytes of an IngestDataRequest. The real
// wire codec belongs to the transport layer; this stands in for it exactly
// as ingestpb itself stands in for generated protobuf code.
type wireFrame struct {
	ClockStart, ClockPeriod int64
	ClockCount              int
	Vector                  []int64
	Columns                 []wireColumn
	Attributes              map[string]string
}

type wireColumn struct {
	Name   string
	Type   frame.ColumnType
	Values []any
}

func buildIngestRequest(f *frame.IngestionFrame, providerUID ProviderUID) (*ingestpb.IngestDataRequest, error) {
	payload, err := serializeFrame(f)
	if err != nil {
		return nil, dperr.Wrap(dperr.KindFrameInvalid, "serializing frame for ingestion", err)
	}
	return &ingestpb.IngestDataRequest{ProviderId: string(providerUID), Payload: payload}, nil
}

func serializeFrame(f *frame.IngestionFrame) ([]byte, error) {
	var wf wireFrame
	ts := f.Timestamps()
	if c, ok := ts.Clock(); ok {
		wf.ClockStart, wf.ClockPeriod, wf.ClockCount = c.StartNanos, c.PeriodNanos, c.Count
	} else if v, ok := ts.Vector(); ok {
		wf.Vector = v
	}
	wf.Attributes = f.Attributes()
	for _, col := range f.Columns() {
		wf.Columns = append(wf.Columns, wireColumn{Name: col.Name, Type: col.Type, Values: col.Values})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wf); err != nil {
		return nil, fmt.Errorf("gob-encode ingestion frame: %w", err)
	}
	return buf.Bytes(), nil
}

func toIngestionResponse(req *ingestpb.IngestDataRequest, resp *ingestpb.IngestDataResponse) dprequest.IngestionResponse {
	id := dprequest.ClientRequestId(req.RequestId)
	switch resp.Kind {
	case ingestpb.ResponseKindExceptional:
		return dprequest.NewExceptional(id, resp.StatusCode, resp.Message)
	default:
		return dprequest.NewAck(id)
	}
}

func ingestionOnFailure(id dprequest.ClientRequestId, cause error) dprequest.IngestionResponse {
	return dprequest.NewExceptional(id, 0, fmt.Sprintf("transport error: %v", cause))
}

func ingestionOnInterrupted(id dprequest.ClientRequestId, _ error) dprequest.IngestionResponse {
	return dprequest.NewInterrupted(id)
}

// bidiConn wraps a Bidirectional ingestion stream: every Send gets an
// immediate matched response.
type bidiConn struct {
	stream ingestpb.IngestionService_BidiStreamClient
}

func (c *bidiConn) Send(_ context.Context, item *ingestpb.IngestDataRequest) (dprequest.IngestionResponse, bool, error) {
	if err := c.stream.Send(item); err != nil {
		return dprequest.IngestionResponse{}, false, err
	}
	resp, err := c.stream.Recv()
	if err != nil {
		return dprequest.IngestionResponse{}, false, err
	}
	return toIngestionResponse(item, resp), true, nil
}

func (c *bidiConn) Close(context.Context) (dprequest.IngestionResponse, bool, error) {
	_ = c.stream.CloseSend()
	return dprequest.IngestionResponse{}, false, nil
}

// backwardConn wraps a Backward (client-streaming) ingestion stream:
// every Send defers its response to the stream's single terminal
// receive at Close. The multiplex applies that one terminal response
// to every request still pending on this worker, so RequestID here is
// a placeholder; ingestfacade.collectResults re-stamps it to the
// correct id per submission once the session closes.
type backwardConn struct {
	stream ingestpb.IngestionService_BackwardStreamClient
}

func (c *backwardConn) Send(_ context.Context, item *ingestpb.IngestDataRequest) (dprequest.IngestionResponse, bool, error) {
	if err := c.stream.Send(item); err != nil {
		return dprequest.IngestionResponse{}, false, err
	}
	return dprequest.IngestionResponse{}, false, nil
}

func (c *backwardConn) Close(context.Context) (dprequest.IngestionResponse, bool, error) {
	resp, err := c.stream.CloseAndRecv()
	if err != nil {
		return dprequest.IngestionResponse{}, false, err
	}
	return toIngestionResponse(&ingestpb.IngestDataRequest{}, resp), true, nil
}

func ingestionConnFactory(sess *transport.IngestionSession) multiplex.Factory[*ingestpb.IngestDataRequest, dprequest.IngestionResponse] {
	return func(ctx context.Context) (multiplex.WorkerConn[*ingestpb.IngestDataRequest, dprequest.IngestionResponse], error) {
		if sess.Kind() == "Backward" {
			stream, err := sess.OpenBackward(ctx)
			if err != nil {
				return nil, err
			}
			return &backwardConn{stream: stream}, nil
		}
		stream, err := sess.OpenBidi(ctx)
		if err != nil {
			return nil, err
		}
		return &bidiConn{stream: stream}, nil
	}
}
