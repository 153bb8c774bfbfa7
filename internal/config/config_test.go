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

package config

import (
	"testing"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestFromMapOverridesDefaults(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"connection": map[string]any{"host_url": "dp.example.org", "port": 443},
		"logging":    map[string]any{"level": "debug"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Connection.HostUrl != "dp.example.org" || cfg.Connection.Port != 443 {
		t.Fatalf("connection override not applied: %+v", cfg.Connection)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging override not applied: %+v", cfg.Logging)
	}
	if cfg.Ingestion.Stream.Buffer.Capacity != Default().Ingestion.Stream.Buffer.Capacity {
		t.Fatalf("unrelated default was disturbed: %+v", cfg.Ingestion.Stream.Buffer)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("DP_CONNECTION_TRANSPORT_MAX_MESSAGE_BYTES", "1048576")
	t.Setenv("DP_INGESTION_STREAM_PREFERRED_KIND", "Backward")
	t.Setenv("DP_LOGGING_ENABLED", "false")
	cfg, err := Load("dp", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Connection.Transport.MaxMessageBytes != 1048576 {
		t.Fatalf("max_message_bytes = %d, want 1048576", cfg.Connection.Transport.MaxMessageBytes)
	}
	if cfg.Ingestion.Stream.PreferredKind != StreamBackward {
		t.Fatalf("preferred_kind = %q, want Backward", cfg.Ingestion.Stream.PreferredKind)
	}
	if cfg.Logging.Enabled {
		t.Fatalf("logging.enabled = true, want override to false")
	}
}

func TestLoadRejectsMalformedEnvironmentOverride(t *testing.T) {
	t.Setenv("DP_CONNECTION_PORT", "not-a-number")
	if _, err := Load("dp", nil); dperr.KindOf(err) != dperr.KindConfigInvalid {
		t.Fatalf("expected KindConfigInvalid, got %v", err)
	}
}

func TestLoadRejectsWrongCaseEnumOverride(t *testing.T) {
	t.Setenv("DP_TIMEOUT_UNIT", "ms")
	if _, err := Load("dp", nil); dperr.KindOf(err) != dperr.KindConfigInvalid {
		t.Fatalf("expected KindConfigInvalid for enum value %q, got %v", "ms", err)
	}
}

func TestEnvKeyDerivesNameFromPath(t *testing.T) {
	f := envField{path: "connection.transport.max_message_bytes", kind: int64Kind}
	if got := f.envKey("dp"); got != "DP_CONNECTION_TRANSPORT_MAX_MESSAGE_BYTES" {
		t.Fatalf("envKey = %q", got)
	}
}

func TestEnvSchemaPathsResolveInDefaultTree(t *testing.T) {
	k := newDefaultKoanf(t)
	for _, f := range envSchema {
		if !k.Exists(f.path) {
			t.Errorf("envSchema path %q does not exist in the default tree", f.path)
		}
	}
}

func newDefaultKoanf(t *testing.T) *koanf.Koanf {
	t.Helper()
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestValidateRejectsUnknownPreferredKind(t *testing.T) {
	cfg := Default()
	cfg.Ingestion.Stream.PreferredKind = "Sideways"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if dperr.KindOf(err) != dperr.KindConfigInvalid {
		t.Fatalf("expected KindConfigInvalid, got %v", dperr.KindOf(err))
	}
}

func TestValidateRejectsZeroCapacityWithBufferEnabled(t *testing.T) {
	cfg := Default()
	cfg.Ingestion.Stream.Buffer.Enabled = true
	cfg.Ingestion.Stream.Buffer.Capacity = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for zero capacity")
	}
}

func TestTimeoutDurationConvertsUnits(t *testing.T) {
	cases := []struct {
		unit TimeUnit
		want int64
	}{
		{UnitNs, 5},
		{UnitUs, 5_000},
		{UnitMs, 5_000_000},
		{UnitS, 5_000_000_000},
	}
	for _, tc := range cases {
		to := Timeout{Enabled: true, Limit: 5, Unit: tc.unit}
		if got := to.Duration(); got != tc.want {
			t.Fatalf("Duration() for unit %s = %d, want %d", tc.unit, got, tc.want)
		}
	}
}
