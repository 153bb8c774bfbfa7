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

package log

import (
	"errors"
	"testing"
)

func TestNewDisabledReturnsNop(t *testing.T) {
	logger := New(false, "debug")
	if logger == nil {
		t.Fatalf("expected a non-nil logger")
	}
	logger.Info("should be discarded")
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	logger := New(true, "not-a-level")
	if logger == nil {
		t.Fatalf("expected a non-nil logger")
	}
}

func TestErrFieldHandlesNilAndNonNilError(t *testing.T) {
	skip := ErrField(nil)
	if skip.Key != "" {
		t.Fatalf("expected zap.Skip() for a nil error, got key %q", skip.Key)
	}
	present := ErrField(errors.New("boom"))
	if present.Key != "error" {
		t.Fatalf("expected field key %q, got %q", "error", present.Key)
	}
}
