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

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osprey-dcs/dp-jal-sub012/internal/ingestfacade"
	"github.com/osprey-dcs/dp-jal-sub012/internal/telemetry/log"
	"github.com/osprey-dcs/dp-jal-sub012/internal/transport"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/clock"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/ingestpb"
)

func newIngestFileCmd() *cobra.Command {
	var providerName string
	cmd := &cobra.Command{
		Use:   "ingest-file <path>",
		Short: "Submit one ingestion frame described by a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestFile(cmd.Context(), args[0], providerName)
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "dpctl", "provider name to register on Open")
	return cmd
}

// fileFrame is the on-disk shape ingest-file reads: either a uniform
// clock or an explicit instant vector, plus the data columns.
type fileFrame struct {
	Clock *struct {
		StartNanos  int64 `json:"start_nanos"`
		PeriodNanos int64 `json:"period_nanos"`
		Count       int   `json:"count"`
	} `json:"clock,omitempty"`
	Vector  []int64        `json:"vector,omitempty"`
	Columns []fileColumn   `json:"columns"`
}

type fileColumn struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Values []json.RawMessage `json:"values"`
}

func parseFrameFile(path string) (*frame.IngestionFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame file %s: %w", path, err)
	}
	var ff fileFrame
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing frame file %s: %w", path, err)
	}

	f := frame.New()
	var ts frame.TimestampSpec
	switch {
	case ff.Clock != nil:
		c, err := clock.New(ff.Clock.StartNanos, ff.Clock.PeriodNanos, ff.Clock.Count)
		if err != nil {
			return nil, err
		}
		ts, err = frame.NewClockTimestamps(c)
		if err != nil {
			return nil, err
		}
	case len(ff.Vector) > 0:
		ts, err = frame.NewVectorTimestamps(ff.Vector)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("frame file must set either clock or vector")
	}
	if err := f.SetTimestamps(ts); err != nil {
		return nil, err
	}

	for _, fc := range ff.Columns {
		col, err := decodeColumn(fc)
		if err != nil {
			return nil, err
		}
		if err := f.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func decodeColumn(fc fileColumn) (frame.Column, error) {
	t, err := columnType(fc.Type)
	if err != nil {
		return frame.Column{}, err
	}
	values := make([]any, len(fc.Values))
	for i, raw := range fc.Values {
		v, err := decodeValue(t, raw)
		if err != nil {
			return frame.Column{}, fmt.Errorf("column %q row %d: %w", fc.Name, i, err)
		}
		values[i] = v
	}
	return frame.Column{Name: fc.Name, Type: t, Values: values}, nil
}

func columnType(s string) (frame.ColumnType, error) {
	switch s {
	case "Bool":
		return frame.TypeBool, nil
	case "Int32":
		return frame.TypeInt32, nil
	case "Int64":
		return frame.TypeInt64, nil
	case "Float32":
		return frame.TypeFloat32, nil
	case "Float64", "Double":
		return frame.TypeFloat64, nil
	case "String":
		return frame.TypeString, nil
	case "Bytes":
		return frame.TypeBytes, nil
	default:
		return frame.TypeUnsupported, fmt.Errorf("unrecognized column type %q", s)
	}
}

func decodeValue(t frame.ColumnType, raw json.RawMessage) (any, error) {
	switch t {
	case frame.TypeBool:
		var v bool
		err := json.Unmarshal(raw, &v)
		return v, err
	case frame.TypeInt32:
		var v int32
		err := json.Unmarshal(raw, &v)
		return v, err
	case frame.TypeInt64:
		var v int64
		err := json.Unmarshal(raw, &v)
		return v, err
	case frame.TypeFloat32:
		var v float32
		err := json.Unmarshal(raw, &v)
		return v, err
	case frame.TypeFloat64:
		var v float64
		err := json.Unmarshal(raw, &v)
		return v, err
	case frame.TypeString:
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	case frame.TypeBytes:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(s)
	default:
		return nil, fmt.Errorf("unsupported column type")
	}
}

func runIngestFile(ctx context.Context, path, providerName string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := parseFrameFile(path)
	if err != nil {
		return err
	}

	conn, err := transport.Dial(ctx, cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger := log.New(cfg.Logging.Enabled, cfg.Logging.Level)
	defer logger.Sync()

	sess := ingestfacade.New(cfg, ingestpb.NewIngestionServiceClient(conn), logger, nil)
	uid, err := sess.Open(ctx, ingestfacade.ProviderRegistration{Name: providerName})
	if err != nil {
		return err
	}
	fmt.Printf("opened ingestion session as provider %s\n", uid)

	ids, err := sess.Ingest(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("submitted %d request(s)\n", len(ids))

	results, err := sess.CloseStream(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("request %s: %s", r.RequestID, r.Kind)
		if r.IsExceptional() {
			fmt.Printf(" (status=%d, message=%s)", r.StatusCode, r.Message)
		}
		fmt.Println()
	}
	return nil
}
