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

// Package log wraps zap behind the logging.enabled/logging.level
// config's logging.enabled gate. When disabled, New returns a no-op
// logger so call sites never need their own enabled checks.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger from the logging config group. enabled=false
// returns zap.NewNop(); otherwise level is parsed case-insensitively
// ("debug", "info", "warn", "error"), defaulting to info on a bad
// value rather than failing (a log configuration typo should not
// prevent a session from opening).
func New(enabled bool, level string) *zap.Logger {
	if !enabled {
		return zap.NewNop()
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		// Build only fails on a bad sink/encoder, neither of which this
		// config touches; fall back to a safe default rather than
		// propagating a construction error out of session Open.
		return zap.NewExample()
	}
	return logger
}

// Fields is a convenience constructor for the recurring
// request_id/provider_id pair the multiplex and facades attach to
// nearly every log line.
func Fields(requestID, providerID string) []zap.Field {
	return []zap.Field{
		zap.String("request_id", requestID),
		zap.String("provider_id", providerID),
	}
}

// WithComponent returns a child logger tagged with its owning
// component name (e.g. "multiplex", "correlator", "assembler").
func WithComponent(base *zap.Logger, component string) *zap.Logger {
	return base.With(zap.String("component", component))
}

// ErrField names an error field consistently across the codebase.
func ErrField(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.Error(err)
}
