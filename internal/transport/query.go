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

	"github.com/cenkalti/backoff/v4"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
)

// QuerySession opens query recovery streams of the session's
// configured kind, reconnecting with backoff on transport failure.
type QuerySession struct {
	client     querypb.QueryServiceClient
	kind       config.StreamKind
	newBackoff func() backoff.BackOff
}

// NewQuerySession builds a session bound to client and kind.
func NewQuerySession(client querypb.QueryServiceClient, kind config.StreamKind) *QuerySession {
	return &QuerySession{client: client, kind: kind, newBackoff: NewBackoff}
}

// Kind returns the session's configured stream kind.
func (s *QuerySession) Kind() config.StreamKind { return s.kind }

// OpenBidi opens a Bidirectional stream, retrying with backoff until
// ctx is canceled.
func (s *QuerySession) OpenBidi(ctx context.Context) (querypb.QueryService_BidiStreamClient, error) {
	return openWithBackoff(ctx, s.newBackoff(), func() (querypb.QueryService_BidiStreamClient, error) {
		return s.client.BidiStream(ctx)
	})
}

// OpenBackward sends req on a fresh Backward stream, retrying with
// backoff until ctx is canceled.
func (s *QuerySession) OpenBackward(ctx context.Context, req *querypb.QueryRequest) (querypb.QueryService_BackwardStreamClient, error) {
	return openWithBackoff(ctx, s.newBackoff(), func() (querypb.QueryService_BackwardStreamClient, error) {
		return s.client.BackwardStream(ctx, req)
	})
}
