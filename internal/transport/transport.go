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

// Package transport re-establishes a stream worker's underlying grpc
// stream after a transport failure. Channel lifecycle, TLS, and the
// wire codec are the caller's concern; this package only retries
// opening a new stream on an existing connection, backing off between
// attempts.
package transport

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// NewBackoff returns the default reconnect policy: exponential backoff
// with no retry-count ceiling. The caller's context is the real bound
// — cancellation ends the session, not something the backoff policy
// itself decides.
func NewBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoff.DefaultInitialInterval
	b.MaxInterval = backoff.DefaultMaxInterval
	b.MaxElapsedTime = 0
	return b
}

// openWithBackoff retries open until it succeeds or ctx is canceled,
// applying b between attempts.
func openWithBackoff[T any](ctx context.Context, b backoff.BackOff, open func() (T, error)) (T, error) {
	var result T
	op := func() error {
		var err error
		result, err = open()
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
