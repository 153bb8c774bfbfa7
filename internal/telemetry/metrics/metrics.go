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

// Package metrics provides opt-in, low-overhead Prometheus telemetry
// for the streaming data plane: queue depth, worker fan-out, dispatch
// latency, and assembled block/sample counts. All public functions
// are safe to call on hot paths; when disabled they are no-ops.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var modEnabled atomic.Bool

var (
	queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dp_queue_depth",
		Help: "Current depth of a bounded intake or outtake queue",
	}, []string{"queue"})
	queueRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dp_queue_rejected_total",
		Help: "Total submissions that failed back-pressure (BackPressureFull or TimedOut)",
	}, []string{"queue", "reason"})
	workerDispatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dp_worker_dispatch_total",
		Help: "Total work items dispatched to a stream worker",
	})
	workerDispatchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dp_worker_dispatch_latency_seconds",
		Help:    "Time from submit to a worker picking up a work item",
		Buckets: prometheus.DefBuckets,
	})
	responseLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dp_response_latency_seconds",
		Help:    "Time from send to matched response for one request",
		Buckets: prometheus.DefBuckets,
	})
	exceptionalResponsesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dp_exceptional_responses_total",
		Help: "Total IngestionResponses of kind Exceptional",
	})
	interruptedRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dp_interrupted_requests_total",
		Help: "Total requests abandoned by shutdown before a response arrived",
	})
	blocksAssembledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dp_blocks_assembled_total",
		Help: "Total SamplingBlocks produced by the assembler",
	})
	samplesAssembled = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dp_samples_assembled",
		Help: "SampleCount of the most recently assembled SamplingProcess",
	})
)

func init() {
	prometheus.MustRegister(
		queueDepth, queueRejectedTotal, workerDispatchTotal, workerDispatchLatency,
		responseLatency, exceptionalResponsesTotal, interruptedRequestsTotal,
		blocksAssembledTotal, samplesAssembled,
	)
}

// Enable turns telemetry on and, if addr is non-empty, starts a
// dedicated /metrics HTTP endpoint. Safe to call multiple times.
func Enable(enabled bool, addr string) {
	modEnabled.Store(enabled)
	if enabled && addr != "" {
		startMetricsEndpoint(addr)
	}
}

// Enabled reports whether telemetry is active.
func Enabled() bool { return modEnabled.Load() }

func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}

// SetQueueDepth records a bounded queue's current size.
func SetQueueDepth(queue string, depth int) {
	if !modEnabled.Load() {
		return
	}
	queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// ObserveQueueRejected records a submission that failed back-pressure.
func ObserveQueueRejected(queue, reason string) {
	if !modEnabled.Load() {
		return
	}
	queueRejectedTotal.WithLabelValues(queue, reason).Inc()
}

// ObserveDispatch records a worker picking up one work item after
// waiting d since submit.
func ObserveDispatch(d time.Duration) {
	if !modEnabled.Load() {
		return
	}
	workerDispatchTotal.Inc()
	workerDispatchLatency.Observe(d.Seconds())
}

// ObserveResponse records the latency from send to a matched response.
func ObserveResponse(d time.Duration) {
	if !modEnabled.Load() {
		return
	}
	responseLatency.Observe(d.Seconds())
}

// ObserveExceptional records one Exceptional IngestionResponse.
func ObserveExceptional() {
	if !modEnabled.Load() {
		return
	}
	exceptionalResponsesTotal.Inc()
}

// ObserveInterrupted records one request abandoned by shutdown.
func ObserveInterrupted() {
	if !modEnabled.Load() {
		return
	}
	interruptedRequestsTotal.Inc()
}

// ObserveAssembled records a successfully assembled SamplingProcess.
func ObserveAssembled(blockCount, sampleCount int) {
	if !modEnabled.Load() {
		return
	}
	blocksAssembledTotal.Add(float64(blockCount))
	samplesAssembled.Set(float64(sampleCount))
}
