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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/osprey-dcs/dp-jal-sub012/internal/queryfacade"
	"github.com/osprey-dcs/dp-jal-sub012/internal/telemetry/log"
	"github.com/osprey-dcs/dp-jal-sub012/internal/transport"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
)

func newQueryCmd() *cobra.Command {
	var (
		sources    string
		startNanos int64
		endNanos   int64
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a recovery query and print the assembled sample count per source",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := strings.Split(sources, ",")
			for i := range names {
				names[i] = strings.TrimSpace(names[i])
			}
			return runQuery(cmd.Context(), names, startNanos, endNanos)
		},
	}
	cmd.Flags().StringVar(&sources, "sources", "", "comma-separated list of source names")
	cmd.Flags().Int64Var(&startNanos, "start-nanos", 0, "inclusive interval start, nanoseconds")
	cmd.Flags().Int64Var(&endNanos, "end-nanos", 0, "exclusive interval end, nanoseconds")
	_ = cmd.MarkFlagRequired("sources")
	_ = cmd.MarkFlagRequired("end-nanos")
	return cmd
}

func runQuery(ctx context.Context, sources []string, startNanos, endNanos int64) error {
	cfg, err := loadConfig()
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

	sess := queryfacade.New(cfg, querypb.NewQueryServiceClient(conn), logger)
	if err := sess.Open(ctx); err != nil {
		return err
	}
	defer sess.ShutdownNow()

	process, err := sess.Query(ctx, queryfacade.Request{
		Sources:  sources,
		Interval: querypb.TimeInterval{StartNanos: startNanos, EndNanos: endNanos},
	})
	if err != nil {
		return err
	}

	start, end := process.TimeDomain()
	fmt.Printf("assembled %d block(s), %d sample(s), domain [%d,%d)\n",
		len(process.Blocks()), process.SampleCount(), start, end)
	for _, name := range process.SourceNames() {
		ts, _ := process.TimeSeries(name)
		fmt.Printf("  %s: %d sample(s)\n", name, ts.Len())
	}
	return nil
}
