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

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/ingestpb"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
)

type fakeBidiStream struct{ ingestpb.IngestionService_BidiStreamClient }

type flakyIngestionClient struct {
	failuresLeft int
}

func (c *flakyIngestionClient) BidiStream(ctx context.Context, opts ...grpc.CallOption) (ingestpb.IngestionService_BidiStreamClient, error) {
	if c.failuresLeft > 0 {
		c.failuresLeft--
		return nil, errors.New("transient dial failure")
	}
	return fakeBidiStream{}, nil
}

func (c *flakyIngestionClient) BackwardStream(ctx context.Context, opts ...grpc.CallOption) (ingestpb.IngestionService_BackwardStreamClient, error) {
	return nil, errors.New("not used in this test")
}

func fastBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 5 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

func TestIngestionSessionRetriesUntilSuccess(t *testing.T) {
	client := &flakyIngestionClient{failuresLeft: 3}
	s := NewIngestionSession(client, config.StreamBidirectional)
	s.newBackoff = fastBackoff

	stream, err := s.OpenBidi(context.Background())
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if stream == nil {
		t.Fatalf("expected a non-nil stream")
	}
	if client.failuresLeft != 0 {
		t.Fatalf("expected all failures consumed, %d left", client.failuresLeft)
	}
}

func TestIngestionSessionStopsRetryingOnCancel(t *testing.T) {
	client := &flakyIngestionClient{failuresLeft: 1_000_000}
	s := NewIngestionSession(client, config.StreamBidirectional)
	s.newBackoff = fastBackoff

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.OpenBidi(ctx)
	if err == nil {
		t.Fatalf("expected an error once the context expired")
	}
}

type fakeQueryClient struct{}

func (fakeQueryClient) BidiStream(ctx context.Context, opts ...grpc.CallOption) (querypb.QueryService_BidiStreamClient, error) {
	return nil, errors.New("not used in this test")
}

func (fakeQueryClient) BackwardStream(ctx context.Context, req *querypb.QueryRequest, opts ...grpc.CallOption) (querypb.QueryService_BackwardStreamClient, error) {
	return nil, nil
}

func TestQuerySessionOpenBackwardSucceeds(t *testing.T) {
	s := NewQuerySession(fakeQueryClient{}, config.StreamBackward)
	s.newBackoff = fastBackoff
	req := &querypb.QueryRequest{Sources: []string{"A"}}
	if _, err := s.OpenBackward(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
