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

// Package ingestpb holds the wire message shapes treated as
// opaque: IngestDataRequest/IngestDataResponse and the grpc client
// stubs for the two stream kinds the ingestion service exposes
// (Bidirectional, Backward). This is a hand-authored stand-in for
// generated protobuf/grpc code: field names and method shapes follow
// the conventions protoc-gen-go-grpc would produce, without a .proto
// source to regenerate from.
package ingestpb

import (
	"context"

	"google.golang.org/grpc"
)

// ResponseKind mirrors the oneof a real IngestDataResponse message
// would carry.
type ResponseKind int32

const (
	ResponseKindUnspecified ResponseKind = iota
	ResponseKindAck
	ResponseKindExceptional
)

// IngestDataRequest is one outbound ingestion message.
type IngestDataRequest struct {
	RequestId  string
	ProviderId string
	Payload    []byte
}

func (r *IngestDataRequest) GetRequestId() string  { return r.RequestId }
func (r *IngestDataRequest) GetProviderId() string { return r.ProviderId }
func (r *IngestDataRequest) GetPayload() []byte    { return r.Payload }

// IngestDataResponse is the remote service's outcome for one request.
type IngestDataResponse struct {
	RequestId  string
	Kind       ResponseKind
	StatusCode int32
	Message    string
}

func (r *IngestDataResponse) GetRequestId() string  { return r.RequestId }
func (r *IngestDataResponse) GetKind() ResponseKind { return r.Kind }
func (r *IngestDataResponse) GetStatusCode() int32  { return r.StatusCode }
func (r *IngestDataResponse) GetMessage() string    { return r.Message }

// IngestionServiceClient is the thin grpc client surface
// internal/transport wraps. BidiStream opens a full-duplex stream
// where every request gets a matched response; BackwardStream opens a
// client-streaming call where the server replies once, at stream
// close, with the last response it produced.
type IngestionServiceClient interface {
	BidiStream(ctx context.Context, opts ...grpc.CallOption) (IngestionService_BidiStreamClient, error)
	BackwardStream(ctx context.Context, opts ...grpc.CallOption) (IngestionService_BackwardStreamClient, error)
}

// IngestionService_BidiStreamClient is the client side of the
// Bidirectional stream kind.
type IngestionService_BidiStreamClient interface {
	Send(*IngestDataRequest) error
	Recv() (*IngestDataResponse, error)
	CloseSend() error
}

// IngestionService_BackwardStreamClient is the client side of the
// Backward stream kind: many sends, one terminal receive.
type IngestionService_BackwardStreamClient interface {
	Send(*IngestDataRequest) error
	CloseAndRecv() (*IngestDataResponse, error)
}

type ingestionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewIngestionServiceClient adapts a grpc connection to
// IngestionServiceClient.
func NewIngestionServiceClient(cc grpc.ClientConnInterface) IngestionServiceClient {
	return &ingestionServiceClient{cc: cc}
}

func (c *ingestionServiceClient) BidiStream(ctx context.Context, opts ...grpc.CallOption) (IngestionService_BidiStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "BidiStream", ServerStreams: true, ClientStreams: true}, "/dp.ingestion.v1.IngestionService/BidiStream", opts...)
	if err != nil {
		return nil, err
	}
	return &bidiStreamClient{stream}, nil
}

func (c *ingestionServiceClient) BackwardStream(ctx context.Context, opts ...grpc.CallOption) (IngestionService_BackwardStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "BackwardStream", ClientStreams: true}, "/dp.ingestion.v1.IngestionService/BackwardStream", opts...)
	if err != nil {
		return nil, err
	}
	return &backwardStreamClient{stream}, nil
}

type bidiStreamClient struct{ grpc.ClientStream }

func (x *bidiStreamClient) Send(m *IngestDataRequest) error { return x.ClientStream.SendMsg(m) }
func (x *bidiStreamClient) Recv() (*IngestDataResponse, error) {
	m := new(IngestDataResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type backwardStreamClient struct{ grpc.ClientStream }

func (x *backwardStreamClient) Send(m *IngestDataRequest) error { return x.ClientStream.SendMsg(m) }
func (x *backwardStreamClient) CloseAndRecv() (*IngestDataResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(IngestDataResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
