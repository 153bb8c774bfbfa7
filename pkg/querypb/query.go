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

// Package querypb holds the wire message shapes for the query
// service's recovery stream: QueryRequest and QueryDataResponse,
// plus the client stubs for its two stream kinds. As with ingestpb,
// these are hand-authored in the shape protoc-gen-go-grpc would
// produce, standing in for generated code.
package querypb

import (
	"context"

	"google.golang.org/grpc"
)

// ResponseKind mirrors QueryDataResponse's oneof.
type ResponseKind int32

const (
	ResponseKindUnspecified ResponseKind = iota
	ResponseKindData
	ResponseKindExceptional
)

// TimeInterval is a half-open nanosecond-resolution interval.
type TimeInterval struct {
	StartNanos int64
	EndNanos   int64
}

// DataBucket is one correlated bucket of samples for a single source
// set, opaque at this layer: internal/correlate decodes Payload.
type DataBucket struct {
	Payload []byte
}

// QueryRequest asks for every source in Sources over Interval.
type QueryRequest struct {
	Sources  []string
	Interval TimeInterval
}

func (r *QueryRequest) GetSources() []string     { return r.Sources }
func (r *QueryRequest) GetInterval() TimeInterval { return r.Interval }

// QueryDataResponse is one message in the response stream: either a
// batch of data buckets or a terminal exceptional outcome.
type QueryDataResponse struct {
	Kind       ResponseKind
	Buckets    []DataBucket
	StatusCode int32
	Message    string
}

func (r *QueryDataResponse) GetKind() ResponseKind    { return r.Kind }
func (r *QueryDataResponse) GetBuckets() []DataBucket { return r.Buckets }
func (r *QueryDataResponse) GetStatusCode() int32     { return r.StatusCode }
func (r *QueryDataResponse) GetMessage() string       { return r.Message }

// QueryServiceClient is the thin grpc client surface
// internal/transport wraps. BidiStream interleaves independent
// queries and their responses on one stream; BackwardStream sends a
// single QueryRequest and receives the resulting response stream
// (the reverse cardinality from the ingestion service's Backward
// kind, where many requests collapse to one response).
type QueryServiceClient interface {
	BidiStream(ctx context.Context, opts ...grpc.CallOption) (QueryService_BidiStreamClient, error)
	BackwardStream(ctx context.Context, req *QueryRequest, opts ...grpc.CallOption) (QueryService_BackwardStreamClient, error)
}

// QueryService_BidiStreamClient is the client side of the
// Bidirectional stream kind.
type QueryService_BidiStreamClient interface {
	Send(*QueryRequest) error
	Recv() (*QueryDataResponse, error)
	CloseSend() error
}

// QueryService_BackwardStreamClient is the client side of the
// Backward stream kind: one request, many responses.
type QueryService_BackwardStreamClient interface {
	Recv() (*QueryDataResponse, error)
}

type queryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewQueryServiceClient adapts a grpc connection to QueryServiceClient.
func NewQueryServiceClient(cc grpc.ClientConnInterface) QueryServiceClient {
	return &queryServiceClient{cc: cc}
}

func (c *queryServiceClient) BidiStream(ctx context.Context, opts ...grpc.CallOption) (QueryService_BidiStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "BidiStream", ServerStreams: true, ClientStreams: true}, "/dp.query.v1.QueryService/BidiStream", opts...)
	if err != nil {
		return nil, err
	}
	return &bidiStreamClient{stream}, nil
}

func (c *queryServiceClient) BackwardStream(ctx context.Context, req *QueryRequest, opts ...grpc.CallOption) (QueryService_BackwardStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "BackwardStream", ServerStreams: true}, "/dp.query.v1.QueryService/BackwardStream", opts...)
	if err != nil {
		return nil, err
	}
	x := &backwardStreamClient{stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type bidiStreamClient struct{ grpc.ClientStream }

func (x *bidiStreamClient) Send(m *QueryRequest) error { return x.ClientStream.SendMsg(m) }
func (x *bidiStreamClient) Recv() (*QueryDataResponse, error) {
	m := new(QueryDataResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type backwardStreamClient struct{ grpc.ClientStream }

func (x *backwardStreamClient) Recv() (*QueryDataResponse, error) {
	m := new(QueryDataResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
