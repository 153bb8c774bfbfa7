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

// Package config is the nested, strongly-typed configuration tree
// the client needs, loaded through a layered koanf stack: compiled
// defaults, an optional external source (file, remote map, whatever
// the caller hands Load), then environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
)

// StreamKind selects how a stream multiplex's workers exchange
// requests and responses with the remote service.
type StreamKind string

const (
	StreamBackward     StreamKind = "Backward"
	StreamBidirectional StreamKind = "Bidirectional"
)

// DecompositionKind selects how a query is split across parallel
// recovery sub-requests.
type DecompositionKind string

const (
	DecompositionNone       DecompositionKind = "None"
	DecompositionHorizontal DecompositionKind = "Horizontal"
	DecompositionVertical   DecompositionKind = "Vertical"
	DecompositionGrid       DecompositionKind = "Grid"
)

// TimeUnit names the unit a Timeout's Limit is expressed in.
type TimeUnit string

const (
	UnitNs TimeUnit = "Ns"
	UnitUs TimeUnit = "Us"
	UnitMs TimeUnit = "Ms"
	UnitS  TimeUnit = "S"
)

// TLS is the connection's transport security configuration.
type TLS struct {
	Enabled          bool   `koanf:"enabled"`
	Default          bool   `koanf:"default"`
	TrustedCertsPath string `koanf:"trusted_certs_path"`
	ClientCertsPath  string `koanf:"client_certs_path"`
	ClientKeyPath    string `koanf:"client_key_path"`
}

// Timeout is a generic enable/limit/unit timeout knob, reused by
// several config groups.
type Timeout struct {
	Enabled bool     `koanf:"enabled"`
	Limit   int64    `koanf:"limit"`
	Unit    TimeUnit `koanf:"unit"`
}

// Transport groups the RPC channel's wire-level knobs.
type Transport struct {
	PlaintextOk           bool    `koanf:"plaintext_ok"`
	MaxMessageBytes       int64   `koanf:"max_message_bytes"`
	KeepAliveWithoutCalls bool    `koanf:"keep_alive_without_calls"`
	CompressionGzip       bool    `koanf:"compression_gzip"`
	Timeout               Timeout `koanf:"timeout"`
}

// Connection describes how to reach the remote service.
type Connection struct {
	HostUrl   string    `koanf:"host_url"`
	Port      int       `koanf:"port"`
	TLS       TLS       `koanf:"tls"`
	Transport Transport `koanf:"transport"`
}

// Buffer is the ingestion intake queue's back-pressure configuration.
type Buffer struct {
	Enabled      bool   `koanf:"enabled"`
	Capacity     int    `koanf:"capacity"`
	BackPressure string `koanf:"back_pressure"`
}

// Binning controls ingestion frame decomposition into request-sized
// messages.
type Binning struct {
	Enabled  bool  `koanf:"enabled"`
	MaxBytes int64 `koanf:"max_bytes"`
}

// StreamConcurrency controls how many workers a stream multiplex runs.
type StreamConcurrency struct {
	Enabled    bool `koanf:"enabled"`
	PivotCount int  `koanf:"pivot_count"`
	MaxStreams int  `koanf:"max_streams"`
}

// IngestionStream is the ingestion.stream config group.
type IngestionStream struct {
	PreferredKind StreamKind        `koanf:"preferred_kind"`
	Buffer        Buffer            `koanf:"buffer"`
	Binning       Binning           `koanf:"binning"`
	Concurrency   StreamConcurrency `koanf:"concurrency"`
}

// QueryRecoveryStream is the query.recovery.stream config group.
type QueryRecoveryStream struct {
	PreferredKind StreamKind        `koanf:"preferred_kind"`
	Decomposition DecompositionKind `koanf:"decomposition"`
	MaxStreams    int               `koanf:"max_streams"`
}

// Concurrency is the top-level, non-stream-specific concurrency knob.
type Concurrency struct {
	Enabled    bool `koanf:"enabled"`
	PivotSize  int  `koanf:"pivot_size"`
	MaxThreads int  `koanf:"max_threads"`
}

// Logging gates and levels the structured logger.
type Logging struct {
	Enabled bool   `koanf:"enabled"`
	Level   string `koanf:"level"`
}

// Config is the full configuration tree the client loads at startup.
type Config struct {
	Connection  Connection          `koanf:"connection"`
	Ingestion   IngestionStreamRoot `koanf:"ingestion"`
	Query       QueryRoot           `koanf:"query"`
	Concurrency Concurrency         `koanf:"concurrency"`
	Timeout     Timeout             `koanf:"timeout"`
	Logging     Logging             `koanf:"logging"`
}

// IngestionStreamRoot nests IngestionStream under "stream" to match
// the dotted path ingestion.stream.* that the env-override naming
// scheme expects.
type IngestionStreamRoot struct {
	Stream IngestionStream `koanf:"stream"`
}

// QueryRoot nests the recovery stream group under query.recovery.stream.
type QueryRoot struct {
	Recovery QueryRecovery `koanf:"recovery"`
}

type QueryRecovery struct {
	Stream QueryRecoveryStream `koanf:"stream"`
}

// Default returns the built-in baseline every Load call starts from.
func Default() Config {
	return Config{
		Connection: Connection{
			HostUrl: "localhost",
			Port:    50051,
			TLS:     TLS{Enabled: false, Default: true},
			Transport: Transport{
				PlaintextOk:     true,
				MaxMessageBytes: 4 << 20,
				Timeout:         Timeout{Enabled: true, Limit: 30, Unit: UnitS},
			},
		},
		Ingestion: IngestionStreamRoot{Stream: IngestionStream{
			PreferredKind: StreamBidirectional,
			Buffer:        Buffer{Enabled: true, Capacity: 1024, BackPressure: "capacity"},
			Binning:       Binning{Enabled: true, MaxBytes: 4 << 20},
			Concurrency:   StreamConcurrency{Enabled: true, PivotCount: 1, MaxStreams: 4},
		}},
		Query: QueryRoot{Recovery: QueryRecovery{Stream: QueryRecoveryStream{
			PreferredKind: StreamBidirectional,
			Decomposition: DecompositionNone,
			MaxStreams:    4,
		}}},
		Concurrency: Concurrency{Enabled: true, PivotSize: 1, MaxThreads: 4},
		Timeout:     Timeout{Enabled: true, Limit: 30, Unit: UnitS},
		Logging:     Logging{Enabled: true, Level: "info"},
	}
}

// scalarKind names how an environment override string parses into its
// field. enumKind fields carry the raw string through: the value must
// match a constant name case-sensitively, which Validate enforces
// after unmarshaling.
type scalarKind int

const (
	boolKind scalarKind = iota
	intKind
	int64Kind
	stringKind
	enumKind
)

// envField is one overridable leaf of the configuration tree: its
// dotted koanf path and the scalar kind its override string parses to.
// The variable name is derived from the path, never recovered by
// splitting a variable name on underscores, so multi-word leaf names
// like max_message_bytes stay unambiguous.
type envField struct {
	path string
	kind scalarKind
}

var envSchema = []envField{
	{"connection.host_url", stringKind},
	{"connection.port", intKind},
	{"connection.tls.enabled", boolKind},
	{"connection.tls.default", boolKind},
	{"connection.tls.trusted_certs_path", stringKind},
	{"connection.tls.client_certs_path", stringKind},
	{"connection.tls.client_key_path", stringKind},
	{"connection.transport.plaintext_ok", boolKind},
	{"connection.transport.max_message_bytes", int64Kind},
	{"connection.transport.keep_alive_without_calls", boolKind},
	{"connection.transport.compression_gzip", boolKind},
	{"connection.transport.timeout.enabled", boolKind},
	{"connection.transport.timeout.limit", int64Kind},
	{"connection.transport.timeout.unit", enumKind},
	{"ingestion.stream.preferred_kind", enumKind},
	{"ingestion.stream.buffer.enabled", boolKind},
	{"ingestion.stream.buffer.capacity", intKind},
	{"ingestion.stream.buffer.back_pressure", stringKind},
	{"ingestion.stream.binning.enabled", boolKind},
	{"ingestion.stream.binning.max_bytes", int64Kind},
	{"ingestion.stream.concurrency.enabled", boolKind},
	{"ingestion.stream.concurrency.pivot_count", intKind},
	{"ingestion.stream.concurrency.max_streams", intKind},
	{"query.recovery.stream.preferred_kind", enumKind},
	{"query.recovery.stream.decomposition", enumKind},
	{"query.recovery.stream.max_streams", intKind},
	{"concurrency.enabled", boolKind},
	{"concurrency.pivot_size", intKind},
	{"concurrency.max_threads", intKind},
	{"timeout.enabled", boolKind},
	{"timeout.limit", int64Kind},
	{"timeout.unit", enumKind},
	{"logging.enabled", boolKind},
	{"logging.level", stringKind},
}

// envKey derives a field's environment variable name: the root, then
// the field's dotted path with separators replaced by underscores,
// all uppercased. Root "dp" and path
// connection.transport.max_message_bytes give
// DP_CONNECTION_TRANSPORT_MAX_MESSAGE_BYTES.
func (f envField) envKey(root string) string {
	return strings.ToUpper(root) + "_" + strings.ToUpper(strings.ReplaceAll(f.path, ".", "_"))
}

func (f envField) parse(raw string) (any, error) {
	switch f.kind {
	case boolKind:
		return strconv.ParseBool(raw)
	case intKind:
		return strconv.Atoi(raw)
	case int64Kind:
		return strconv.ParseInt(raw, 10, 64)
	default:
		return raw, nil
	}
}

// envOverrides collects every set override from the environment as a
// dotted-path map ready to layer as a confmap.
func envOverrides(root string) (map[string]any, error) {
	out := make(map[string]any)
	for _, f := range envSchema {
		raw, ok := os.LookupEnv(f.envKey(root))
		if !ok {
			continue
		}
		v, err := f.parse(raw)
		if err != nil {
			return nil, dperr.Wrap(dperr.KindConfigInvalid, fmt.Sprintf("environment override %s", f.envKey(root)), err)
		}
		out[f.path] = v
	}
	return out, nil
}

// Load builds a Config by layering, in order: compiled defaults, the
// caller-supplied external source (nil to skip), then environment
// overrides resolved through envSchema. Each overridable field's
// variable name is {root}_{path}..._{name}, derived from the field's
// own path (see envKey), and its value parses by the field's declared
// scalar kind; enum values must match a constant name case-sensitively.
//
// external is any koanf.Provider; callers pass a file provider, a
// remote-config provider, or nil when there is nothing to layer over
// the defaults.
func Load(root string, external koanf.Provider) (Config, error) {
	k := koanf.New(".")
	def := Default()
	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return Config{}, dperr.Wrap(dperr.KindConfigInvalid, "loading default configuration", err)
	}
	if external != nil {
		if err := k.Load(external, nil); err != nil {
			return Config{}, dperr.Wrap(dperr.KindConfigInvalid, "loading external configuration", err)
		}
	}
	overrides, err := envOverrides(root)
	if err != nil {
		return Config{}, err
	}
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return Config{}, dperr.Wrap(dperr.KindConfigInvalid, "loading environment overrides", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, dperr.Wrap(dperr.KindConfigInvalid, "unmarshaling configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromMap builds a Config directly from a nested map, primarily for
// tests: it is equivalent to Load with a confmap.Provider external
// source and no environment layer.
func FromMap(m map[string]any) (Config, error) {
	k := koanf.New(".")
	def := Default()
	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return Config{}, dperr.Wrap(dperr.KindConfigInvalid, "loading default configuration", err)
	}
	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return Config{}, dperr.Wrap(dperr.KindConfigInvalid, "loading map configuration", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, dperr.Wrap(dperr.KindConfigInvalid, "unmarshaling configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field-level consistency: enum fields match a known
// constant, numeric fields are non-negative, and interdependent
// fields (buffer.back_pressure needing buffer.enabled, etc.) agree.
func (c Config) Validate() error {
	switch c.Ingestion.Stream.PreferredKind {
	case StreamBackward, StreamBidirectional:
	default:
		return dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("ingestion.stream.preferred_kind: unrecognized value %q", c.Ingestion.Stream.PreferredKind))
	}
	switch c.Query.Recovery.Stream.PreferredKind {
	case StreamBackward, StreamBidirectional:
	default:
		return dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("query.recovery.stream.preferred_kind: unrecognized value %q", c.Query.Recovery.Stream.PreferredKind))
	}
	switch c.Query.Recovery.Stream.Decomposition {
	case DecompositionNone, DecompositionHorizontal, DecompositionVertical, DecompositionGrid:
	default:
		return dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("query.recovery.stream.decomposition: unrecognized value %q", c.Query.Recovery.Stream.Decomposition))
	}
	if c.Ingestion.Stream.Buffer.Enabled && c.Ingestion.Stream.Buffer.Capacity <= 0 {
		return dperr.New(dperr.KindConfigInvalid, "ingestion.stream.buffer.capacity must be positive when buffer.enabled is true")
	}
	if c.Ingestion.Stream.Binning.Enabled && c.Ingestion.Stream.Binning.MaxBytes <= 0 {
		return dperr.New(dperr.KindConfigInvalid, "ingestion.stream.binning.max_bytes must be positive when binning.enabled is true")
	}
	if c.Ingestion.Stream.Concurrency.Enabled && c.Ingestion.Stream.Concurrency.MaxStreams <= 0 {
		return dperr.New(dperr.KindConfigInvalid, "ingestion.stream.concurrency.max_streams must be positive when concurrency.enabled is true")
	}
	if c.Connection.Port <= 0 || c.Connection.Port > 65535 {
		return dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("connection.port out of range: %d", c.Connection.Port))
	}
	if err := validateTimeout(c.Timeout, "timeout"); err != nil {
		return err
	}
	if err := validateTimeout(c.Connection.Transport.Timeout, "connection.transport.timeout"); err != nil {
		return err
	}
	return nil
}

func validateTimeout(t Timeout, path string) error {
	if !t.Enabled {
		return nil
	}
	if t.Limit <= 0 {
		return dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("%s.limit must be positive when enabled", path))
	}
	switch t.Unit {
	case UnitNs, UnitUs, UnitMs, UnitS:
	default:
		return dperr.New(dperr.KindConfigInvalid, fmt.Sprintf("%s.unit: unrecognized value %q", path, t.Unit))
	}
	return nil
}

// Duration converts a Timeout's (Limit, Unit) pair to a time.Duration.
func (t Timeout) Duration() (ns int64) {
	switch t.Unit {
	case UnitNs:
		return t.Limit
	case UnitUs:
		return t.Limit * 1_000
	case UnitMs:
		return t.Limit * 1_000_000
	case UnitS:
		return t.Limit * 1_000_000_000
	default:
		return 0
	}
}
