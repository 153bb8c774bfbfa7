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

// dp-loadgen is a tiny, dependency-free concurrency harness for
// measuring ingest/query throughput against a running data-plane
// target. It reuses one dialed connection per worker and prints a
// one-line duration/throughput summary.
//
// Modes:
//   - ingest: each worker opens its own ingestion session and submits
//     synthetic single-source frames in a loop
//   - query:  each worker opens its own query session and repeats a
//     fixed time-window query
//
// Usage examples:
//
//	dp-loadgen -target=127.0.0.1:50051 -mode=ingest -n=5000 -c=16 -rows=256
//	dp-loadgen -target=127.0.0.1:50051 -mode=query -n=2000 -c=8 -sources=A,B,C
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/internal/ingestfacade"
	"github.com/osprey-dcs/dp-jal-sub012/internal/queryfacade"
	"github.com/osprey-dcs/dp-jal-sub012/internal/transport"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/clock"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/ingestpb"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
)

type modeType string

const (
	modeIngest modeType = "ingest"
	modeQuery  modeType = "query"
)

func main() {
	var (
		target  = flag.String("target", "127.0.0.1:50051", "host:port of the data-plane target")
		modeS   = flag.String("mode", string(modeIngest), "Mode: ingest|query")
		N       = flag.Int("n", 2000, "Total operations to perform")
		conc    = flag.Int("c", 8, "Number of concurrent workers, each with its own session")
		rows    = flag.Int("rows", 256, "Rows per synthetic frame in ingest mode")
		sources = flag.String("sources", "A,B,C", "Comma-separated source names for query mode")
		windowS = flag.Duration("window", time.Second, "Query window duration per request in query mode")
		timeout = flag.Duration("timeout", 60*time.Second, "Overall timeout for the loadgen run")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeIngest && m != modeQuery {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want ingest|query)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}

	cfg := config.Default()
	cfg.Connection.HostUrl = hostOf(*target)
	cfg.Connection.Port = portOf(*target)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var done int64
	var failed int64

	per := *N / *conc
	rem := *N - per**conc

	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			var err error
			switch m {
			case modeIngest:
				err = runIngestWorker(ctx, cfg, id, n, *rows, &done)
			case modeQuery:
				err = runQueryWorker(ctx, cfg, id, n, strings.Split(*sources, ","), *windowS, &done)
			}
			if err != nil {
				atomic.AddInt64(&failed, int64(n))
				fmt.Fprintf(os.Stderr, "worker %d: %v\n", id, err)
			}
		}(w, count)
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(atomic.LoadInt64(&done)) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s N=%d c=%d go=%d failed=%d Duration=%s Throughput=%.0f op/s\n",
		m, *N, *conc, runtime.GOMAXPROCS(0), atomic.LoadInt64(&failed), elapsed.Truncate(time.Millisecond), ops)
}

func runIngestWorker(ctx context.Context, cfg config.Config, id, n, rows int, done *int64) error {
	conn, err := transport.Dial(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sess := ingestfacade.New(cfg, ingestpb.NewIngestionServiceClient(conn), nil, nil)
	if _, err := sess.Open(ctx, ingestfacade.ProviderRegistration{Name: fmt.Sprintf("dp-loadgen-%d", id)}); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer sess.ShutdownNow()

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		f, err := syntheticFrame(rows, int64(i))
		if err != nil {
			return err
		}
		if _, err := sess.Ingest(ctx, f); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		atomic.AddInt64(done, 1)
	}
	_, err = sess.CloseStream(ctx)
	return err
}

func runQueryWorker(ctx context.Context, cfg config.Config, id, n int, sources []string, window time.Duration, done *int64) error {
	conn, err := transport.Dial(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sess := queryfacade.New(cfg, querypb.NewQueryServiceClient(conn), nil)
	if err := sess.Open(ctx); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer sess.ShutdownNow()

	start := int64(0)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		end := start + window.Nanoseconds()
		req := queryfacade.Request{
			Sources:  sources,
			Interval: querypb.TimeInterval{StartNanos: start, EndNanos: end},
		}
		if _, err := sess.Query(ctx, req); err != nil {
			return fmt.Errorf("query: %w", err)
		}
		atomic.AddInt64(done, 1)
		start = end
	}
	return nil
}

// syntheticFrame builds a single-source, uniformly clocked frame of
// rows float64 samples, offset so successive calls from the same
// worker advance the clock rather than overlapping it.
func syntheticFrame(rows int, iteration int64) (*frame.IngestionFrame, error) {
	c, err := clock.New(iteration*int64(rows)*int64(time.Millisecond), int64(time.Millisecond), rows)
	if err != nil {
		return nil, err
	}
	ts, err := frame.NewClockTimestamps(c)
	if err != nil {
		return nil, err
	}
	f := frame.New()
	if err := f.SetTimestamps(ts); err != nil {
		return nil, err
	}
	values := make([]any, rows)
	for i := range values {
		values[i] = float64(i)
	}
	if err := f.AddColumn(frame.Column{Name: "loadgen", Type: frame.TypeFloat64, Values: values}); err != nil {
		return nil, err
	}
	return f, nil
}

func hostOf(target string) string {
	if i := strings.LastIndex(target, ":"); i >= 0 {
		return target[:i]
	}
	return target
}

func portOf(target string) int {
	if i := strings.LastIndex(target, ":"); i >= 0 {
		var p int
		fmt.Sscanf(target[i+1:], "%d", &p)
		return p
	}
	return 0
}
