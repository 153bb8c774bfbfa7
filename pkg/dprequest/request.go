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

// Package dprequest holds the session-scoped identifiers that flow
// between the stream multiplex and its callers: ClientRequestId and
// IngestionResponse. Both are plain values; nothing here talks to the
// network.
package dprequest

import (
	"fmt"
	"sync/atomic"
)

// ClientRequestId is a stable identifier minted by the pipeline for
// one outbound data message, unique within one open-stream session.
// Binning a single caller submission into several request messages
// mints one ID per message.
type ClientRequestId string

// Minter mints unique ClientRequestIds for one open-stream session.
// Every open session owns exactly one Minter; IDs from different
// sessions may collide and must not be compared across sessions.
type Minter struct {
	sessionTag string
	counter    uint64
}

// NewMinter returns a Minter scoped to sessionTag, typically the
// provider UID string assigned when the session opened.
func NewMinter(sessionTag string) *Minter {
	return &Minter{sessionTag: sessionTag}
}

// Mint returns the next ClientRequestId for this session. Safe for
// concurrent use by multiple stream workers.
func (m *Minter) Mint() ClientRequestId {
	n := atomic.AddUint64(&m.counter, 1)
	return ClientRequestId(fmt.Sprintf("%s-%d", m.sessionTag, n))
}

// ResponseKind discriminates the three ways a ClientRequestId's
// outcome is recorded: an Ack or Exceptional response actually
// received from the remote service, or Interrupted when the session
// shut down before a response arrived.
type ResponseKind int

const (
	KindUnset ResponseKind = iota
	KindAck
	KindExceptional
	KindInterrupted
)

func (k ResponseKind) String() string {
	switch k {
	case KindAck:
		return "Ack"
	case KindExceptional:
		return "Exceptional"
	case KindInterrupted:
		return "Interrupted"
	default:
		return "Unset"
	}
}

// IngestionResponse is the per-request outcome record: an Ack
// (record-only), an Exceptional response (must be surfaced to the
// caller), or an Interrupted record manufactured by the session on
// shutdown for requests that never got a reply.
type IngestionResponse struct {
	RequestID  ClientRequestId
	Kind       ResponseKind
	StatusCode int32
	Message    string
}

// NewAck builds an Ack outcome.
func NewAck(id ClientRequestId) IngestionResponse {
	return IngestionResponse{RequestID: id, Kind: KindAck}
}

// NewExceptional builds an Exceptional outcome carrying the remote
// service's status code and message.
func NewExceptional(id ClientRequestId, statusCode int32, message string) IngestionResponse {
	return IngestionResponse{RequestID: id, Kind: KindExceptional, StatusCode: statusCode, Message: message}
}

// NewInterrupted builds the outcome recorded for a request abandoned
// by shutdown before any response arrived.
func NewInterrupted(id ClientRequestId) IngestionResponse {
	return IngestionResponse{RequestID: id, Kind: KindInterrupted, Message: "session shut down before a response arrived"}
}

func (r IngestionResponse) IsAck() bool         { return r.Kind == KindAck }
func (r IngestionResponse) IsExceptional() bool { return r.Kind == KindExceptional }
func (r IngestionResponse) IsInterrupted() bool { return r.Kind == KindInterrupted }
