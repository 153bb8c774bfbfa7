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

// Package dperr defines the closed error taxonomy shared by every layer
// of the data-plane client: decomposition, queueing, multiplexing,
// correlation, assembly, and the public facade. Callers are expected to
// use errors.As against *dperr.Error and switch on Kind rather than
// matching on message text.
package dperr

import (
	"errors"
	"fmt"
)

// Kind enumerates every error category in the ingestion/query data
// plane. It is a closed set: new categories require a new constant
// here, never an ad hoc error string.
type Kind int

const (
	// KindUnknown is the zero value and should never be returned.
	KindUnknown Kind = iota

	// Configuration.
	KindConfigInvalid

	// Facade state machine.
	KindNotOpen
	KindIllegalState

	// Ingestion frame validation / binning.
	KindFrameInvalid
	KindFrameTooLarge

	// Bounded queue / cancellation.
	KindBackPressureFull
	KindTimedOut
	KindInterrupted

	// Transport.
	KindTransportError
	KindRequestRejected

	// Correlator.
	KindDuplicateSource
	KindMissingData
	KindInconsistentLength
	KindUnsupportedType

	// Assembler.
	KindDomainOverlap
	KindSourceMissing
	KindTypeConflict

	// Shutdown.
	KindShutdownFailed
)

// String implements fmt.Stringer for readable log lines and test
// failure messages.
func (k Kind) String() string {
	switch k {
	case KindConfigInvalid:
		return "ConfigInvalid"
	case KindNotOpen:
		return "NotOpen"
	case KindIllegalState:
		return "IllegalState"
	case KindFrameInvalid:
		return "FrameInvalid"
	case KindFrameTooLarge:
		return "FrameTooLarge"
	case KindBackPressureFull:
		return "BackPressureFull"
	case KindTimedOut:
		return "TimedOut"
	case KindInterrupted:
		return "Interrupted"
	case KindTransportError:
		return "TransportError"
	case KindRequestRejected:
		return "RequestRejected"
	case KindDuplicateSource:
		return "DuplicateSource"
	case KindMissingData:
		return "MissingData"
	case KindInconsistentLength:
		return "InconsistentLength"
	case KindUnsupportedType:
		return "UnsupportedType"
	case KindDomainOverlap:
		return "DomainOverlap"
	case KindSourceMissing:
		return "SourceMissing"
	case KindTypeConflict:
		return "TypeConflict"
	case KindShutdownFailed:
		return "ShutdownFailed"
	default:
		return "Unknown"
	}
}

// Error is the single concrete error type for the whole data plane.
// Exit codes in cmd/dpctl map 1:1 from Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, dperr.New(KindFrameTooLarge, "")) to match on
// Kind alone, ignoring Message/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs a bare *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error that wraps a lower-level cause, typically a
// transport failure.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinel returns a comparable *Error suitable as an errors.Is target
// for the given kind, e.g. errors.Is(err, dperr.Sentinel(KindNotOpen)).
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// KindOf extracts the Kind from err if it is (or wraps) a *dperr.Error,
// returning KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
