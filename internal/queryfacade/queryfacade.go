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

// Package queryfacade is the public open/query/close/shutdown surface
// for the query side of the data plane, composing
// internal/decompose, internal/multiplex, internal/correlate, and
// internal/assemble rather than extending any of them.
package queryfacade

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/osprey-dcs/dp-jal-sub012/internal/assemble"
	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/internal/correlate"
	"github.com/osprey-dcs/dp-jal-sub012/internal/decompose"
	"github.com/osprey-dcs/dp-jal-sub012/internal/multiplex"
	"github.com/osprey-dcs/dp-jal-sub012/internal/queue"
	"github.com/osprey-dcs/dp-jal-sub012/internal/telemetry/metrics"
	"github.com/osprey-dcs/dp-jal-sub012/internal/transport"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dprequest"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/querypb"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/sampling"
)

// State mirrors internal/ingestfacade.State: the Closed/Open/Draining
// session state machine shared by both facades.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateDraining:
		return "Draining"
	default:
		return "Closed"
	}
}

// Request is a caller's query: every source in Sources over Interval.
type Request struct {
	Sources  []string
	Interval querypb.TimeInterval
}

type queryService struct{}

type mplex = multiplex.StreamMultiplex[queryService, *querypb.QueryRequest, subResult]

// Session is one open query recovery session: the Closed/Open/Draining
// state machine guarding a StreamMultiplex bound to the
// query service.
type Session struct {
	cfg    config.Config
	client querypb.QueryServiceClient
	log    *zap.Logger

	// stateMu serializes Open/Close/Shutdown, matching
	// internal/ingestfacade's thread-safety discipline.
	stateMu sync.Mutex
	state   State
	mp      *mplex
}

// New builds a Session bound to client, not yet Open.
func New(cfg config.Config, client querypb.QueryServiceClient, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{cfg: cfg, client: client, log: log}
}

// State reports the session's current state.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// SetConfig replaces the session's configuration. Configuration is
// immutable while a session is open: calling SetConfig in any state
// other than Closed returns IllegalState.
func (s *Session) SetConfig(cfg config.Config) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != StateClosed {
		return dperr.New(dperr.KindIllegalState, "configuration cannot change while the session is open")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Open transitions Closed -> Open. Calling Open while already Open is
// idempotent; calling it while Draining is IllegalState.
func (s *Session) Open(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch s.state {
	case StateOpen:
		return nil
	case StateDraining:
		return dperr.New(dperr.KindIllegalState, "session is draining")
	}

	sess := transport.NewQuerySession(s.client, s.cfg.Query.Recovery.Stream.PreferredKind)
	mp := multiplex.New[queryService, *querypb.QueryRequest, subResult](
		ctx, "query.recovery", workerCount(s.cfg.Query.Recovery.Stream.MaxStreams), queryConnFactory(sess),
		queryOnFailure, queryOnInterrupted, "query", queue.ModeDisabled, 0, 0, s.log,
	)
	mp.Start()

	s.mp = mp
	s.state = StateOpen
	s.log.Info("query session opened")
	return nil
}

func workerCount(maxStreams int) int {
	if maxStreams <= 0 {
		return 1
	}
	return maxStreams
}

// Query runs the decomposer, dispatches every resulting sub-request
// over the query multiplex, correlates the returned data buckets, and
// assembles the result into a SamplingProcess. It returns NotOpen if
// the session is not Open.
func (s *Session) Query(ctx context.Context, req Request) (*sampling.SamplingProcess, error) {
	mp, err := s.openMultiplex()
	if err != nil {
		return nil, err
	}

	strategy := s.strategy()
	subReqs, err := decompose.DecomposeQuery(
		querypb.QueryRequest{Sources: req.Sources, Interval: req.Interval}, strategy)
	if err != nil {
		return nil, err
	}

	ids := make([]dprequest.ClientRequestId, len(subReqs))
	for i, sr := range subReqs {
		sr := sr
		id := mp.Mint()
		if err := mp.SubmitWithID(ctx, id, &sr); err != nil {
			return nil, err
		}
		ids[i] = id
	}

	correlator := correlate.New()
	for _, id := range ids {
		result, err := mp.AwaitResponse(ctx, id)
		if err != nil {
			return nil, err
		}
		mp.Forget(id)
		if result.Exceptional {
			metrics.ObserveExceptional()
			return nil, dperr.New(dperr.KindRequestRejected, result.Message)
		}
		for _, bucket := range result.Buckets {
			if err := correlator.Add(bucket); err != nil {
				return nil, err
			}
		}
	}

	blocks, err := correlator.Blocks()
	if err != nil {
		return nil, err
	}
	process, err := assemble.Assemble(blocks, req.Sources)
	if err != nil {
		return nil, err
	}
	metrics.ObserveAssembled(len(process.Blocks()), process.SampleCount())
	return process, nil
}

func (s *Session) openMultiplex() (*mplex, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != StateOpen {
		return nil, dperr.New(dperr.KindNotOpen, "query session is not open")
	}
	return s.mp, nil
}

// strategy derives a decompose.QueryStrategy from the configured
// decomposition kind and the configured worker count: Horizontal and
// Vertical both split into MaxStreams pieces; Grid factors MaxStreams
// into the most balanced h*v pair <= MaxStreams, since the config
// group carries only one stream count, not separate h/v parameters.
func (s *Session) strategy() decompose.QueryStrategy {
	cfg := s.cfg.Query.Recovery.Stream
	switch cfg.Decomposition {
	case config.DecompositionHorizontal:
		return decompose.QueryStrategy{Kind: config.DecompositionHorizontal, HorizontalN: workerCount(cfg.MaxStreams)}
	case config.DecompositionVertical:
		return decompose.QueryStrategy{Kind: config.DecompositionVertical, VerticalN: workerCount(cfg.MaxStreams)}
	case config.DecompositionGrid:
		h, v := gridFactors(workerCount(cfg.MaxStreams))
		return decompose.QueryStrategy{Kind: config.DecompositionGrid, GridH: h, GridV: v}
	default:
		return decompose.QueryStrategy{Kind: config.DecompositionNone}
	}
}

// gridFactors splits n into (h, v) with h*v <= n, h as close to sqrt(n)
// as possible, both >= 1.
func gridFactors(n int) (int, int) {
	if n <= 1 {
		return 1, 1
	}
	h := int(math.Sqrt(float64(n)))
	if h < 1 {
		h = 1
	}
	for h > 1 && n%h != 0 {
		h--
	}
	return h, n / h
}

// ShutdownSoft releases the multiplex's worker pool, waiting for any
// in-flight sub-requests to finish. There is no caller-visible drain
// operation between queries (each Query call owns its own sub-request
// lifecycle end to end), so this only needs to transition state.
func (s *Session) ShutdownSoft(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != StateOpen {
		return nil
	}
	if err := s.mp.ShutdownSoft(ctx); err != nil {
		return dperr.Wrap(dperr.KindShutdownFailed, "soft shutdown: query multiplex drain failed", err)
	}
	s.state = StateClosed
	return nil
}

// ShutdownNow cancels the multiplex's worker pool immediately.
func (s *Session) ShutdownNow() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != StateOpen {
		return nil
	}
	s.mp.ShutdownHard()
	s.state = StateClosed
	return nil
}
