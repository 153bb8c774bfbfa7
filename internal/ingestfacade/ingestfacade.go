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

// Package ingestfacade is the public open/ingest/close/shutdown
// surface for the ingestion side of the data plane,
// composing internal/decompose, internal/multiplex, and
// internal/transport rather than extending any of them.
package ingestfacade

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
	"github.com/osprey-dcs/dp-jal-sub012/internal/deadletter"
	"github.com/osprey-dcs/dp-jal-sub012/internal/decompose"
	"github.com/osprey-dcs/dp-jal-sub012/internal/ledger"
	"github.com/osprey-dcs/dp-jal-sub012/internal/multiplex"
	"github.com/osprey-dcs/dp-jal-sub012/internal/queue"
	"github.com/osprey-dcs/dp-jal-sub012/internal/telemetry/metrics"
	"github.com/osprey-dcs/dp-jal-sub012/internal/transport"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dprequest"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/frame"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/ingestpb"
)

// State is one of the three facade session states.
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

// ProviderUID is the identity returned by Open, resolving Open
// Question 2: a process-local monotonic counter seeded with a random
// salt so UIDs do not collide across restarts in the common case, not
// a durable cross-process registration protocol.
type ProviderUID string

// ProviderRegistration is the caller-supplied provider identity
// passed to Open.
type ProviderRegistration struct {
	Name string
}

var (
	uidSaltOnce sync.Once
	uidSalt     uint32
	uidCounter  uint64
)

func initUIDSalt() {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable for the
		// process; a zero salt still yields unique-within-process
		// UIDs via the counter, just without the cross-restart
		// collision reduction.
		return
	}
	uidSalt = binary.BigEndian.Uint32(b[:])
}

func nextProviderUID(name string) ProviderUID {
	uidSaltOnce.Do(initUIDSalt)
	n := atomic.AddUint64(&uidCounter, 1)
	return ProviderUID(fmt.Sprintf("%s-%08x-%d", name, uidSalt, n))
}

type ingestionService struct{}

type mplex = multiplex.StreamMultiplex[ingestionService, *ingestpb.IngestDataRequest, dprequest.IngestionResponse]

// Session is one open ingestion stream: the Closed/Open/Draining state
// machine guarding a StreamMultiplex bound to the
// ingestion service.
type Session struct {
	cfg    config.Config
	client ingestpb.IngestionServiceClient
	log    *zap.Logger
	redis  *redis.Client

	// stateMu serializes Open/CloseStream*/Shutdown*; Ingest and the
	// queue accessors only need the snapshot it guards.
	stateMu sync.Mutex
	state   State
	reg     ProviderRegistration
	uid     ProviderUID
	mp      *mplex

	idsMu sync.Mutex
	ids   []dprequest.ClientRequestId

	// ledger and deadletter are both optional, set via SetLedger /
	// SetDeadletter before Open. Neither failure mode blocks the
	// facade: a commit audit row or a dead-lettered message that
	// doesn't make it is logged, not surfaced to the caller, since
	// the response the caller already has is authoritative.
	ledger     *ledger.Ledger
	deadletter *deadletter.Sink
}

// SetLedger attaches a Postgres commit ledger. Must be called before
// Open; it has no effect on an already-open session.
func (s *Session) SetLedger(l *ledger.Ledger) { s.ledger = l }

// SetDeadletter attaches a Kafka dead-letter sink for Exceptional
// ingestion outcomes. Must be called before Open.
func (s *Session) SetDeadletter(d *deadletter.Sink) { s.deadletter = d }

// New builds a Session bound to client, not yet Open. redisClient may
// be nil; when set, Open takes a best-effort distributed lease on the
// provider UID (see DESIGN.md's Open Question 2 decision).
func New(cfg config.Config, client ingestpb.IngestionServiceClient, log *zap.Logger, redisClient *redis.Client) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{cfg: cfg, client: client, log: log, redis: redisClient}
}

// State reports the session's current state.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// SetConfig replaces the session's configuration. Configuration is
// immutable while a stream is open: calling SetConfig in any state
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

// Open transitions Closed -> Open, minting and returning a
// ProviderUID. Calling Open again while already Open for the same
// registration is idempotent and returns the existing UID; calling it
// for a different registration is IllegalState.
func (s *Session) Open(ctx context.Context, reg ProviderRegistration) (ProviderUID, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	switch s.state {
	case StateOpen:
		if reg.Name != s.reg.Name {
			return "", dperr.New(dperr.KindIllegalState, "session already open for a different provider")
		}
		return s.uid, nil
	case StateDraining:
		return "", dperr.New(dperr.KindIllegalState, "session is draining")
	}

	uid := nextProviderUID(reg.Name)
	if s.redis != nil {
		s.tryLeaseProviderUID(ctx, uid)
	}

	sess := transport.NewIngestionSession(s.client, s.cfg.Ingestion.Stream.PreferredKind)
	mode, capacity, timeout := bufferMode(s.cfg.Ingestion.Stream.Buffer)
	mp := multiplex.New[ingestionService, *ingestpb.IngestDataRequest, dprequest.IngestionResponse](
		ctx, "ingestion.intake", workerCount(s.cfg.Ingestion.Stream.Concurrency), ingestionConnFactory(sess),
		ingestionOnFailure, ingestionOnInterrupted, string(uid), mode, capacity, timeout, s.log,
	)
	mp.Start()

	s.mp = mp
	s.reg = reg
	s.uid = uid
	s.state = StateOpen
	s.ids = nil

	s.log.Info("ingestion session opened", zap.String("provider_uid", string(uid)))
	return uid, nil
}

// tryLeaseProviderUID records a best-effort SETNX lease in Redis so a
// second process opening with a colliding UID can detect the
// collision. Failure (including no Redis reachable) never blocks
// Open; the UID scheme's own salt+counter already makes collisions
// unlikely, this is only an additional, optional check.
func (s *Session) tryLeaseProviderUID(ctx context.Context, uid ProviderUID) {
	key := "dp:provider-uid:" + string(uid)
	ok, err := s.redis.SetNX(ctx, key, 1, 24*time.Hour).Result()
	if err != nil {
		s.log.Warn("provider uid lease check failed", zap.Error(err))
		return
	}
	if !ok {
		s.log.Warn("provider uid collision observed via redis lease", zap.String("provider_uid", string(uid)))
	}
}

func bufferMode(b config.Buffer) (queue.Mode, int, time.Duration) {
	if !b.Enabled {
		return queue.ModeDisabled, 0, 0
	}
	if b.BackPressure == "timeout" {
		return queue.ModeTimeout, b.Capacity, 5 * time.Second
	}
	return queue.ModeCapacity, b.Capacity, 0
}

func workerCount(c config.StreamConcurrency) int {
	if !c.Enabled || c.MaxStreams <= 0 {
		return 1
	}
	return c.MaxStreams
}

// Ingest bins frame per the ingestion.stream.binning config, submits
// every resulting piece to the multiplex, and returns one
// ClientRequestId per submitted piece in submission order. It returns
// NotOpen if the session is not Open.
func (s *Session) Ingest(ctx context.Context, f *frame.IngestionFrame) ([]dprequest.ClientRequestId, error) {
	return s.IngestBatch(ctx, []*frame.IngestionFrame{f})
}

// IngestBatch ingests several frames in order, concatenating their
// resulting ClientRequestIds.
func (s *Session) IngestBatch(ctx context.Context, frames []*frame.IngestionFrame) ([]dprequest.ClientRequestId, error) {
	mp, uid, err := s.openMultiplex()
	if err != nil {
		return nil, err
	}

	var ids []dprequest.ClientRequestId
	for _, f := range frames {
		pieces, err := s.binFrame(f)
		if err != nil {
			return nil, err
		}
		for _, piece := range pieces {
			payload, err := buildIngestRequest(piece, uid)
			if err != nil {
				return nil, err
			}
			id := mp.Mint()
			payload.RequestId = string(id)
			if err := mp.SubmitWithID(ctx, id, payload); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}

	s.idsMu.Lock()
	s.ids = append(s.ids, ids...)
	s.idsMu.Unlock()

	return ids, nil
}

func (s *Session) openMultiplex() (*mplex, ProviderUID, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != StateOpen {
		return nil, "", dperr.New(dperr.KindNotOpen, "ingestion session is not open")
	}
	return s.mp, s.uid, nil
}

func (s *Session) binFrame(f *frame.IngestionFrame) ([]*frame.IngestionFrame, error) {
	if !s.cfg.Ingestion.Stream.Binning.Enabled {
		if err := f.Validate(); err != nil {
			return nil, dperr.Wrap(dperr.KindFrameInvalid, "frame failed consistency check", err)
		}
		return []*frame.IngestionFrame{f}, nil
	}
	return decompose.Bin(f, s.cfg.Ingestion.Stream.Binning.MaxBytes)
}

// OutgoingQueueSize returns the intake queue's current depth.
func (s *Session) OutgoingQueueSize() (int, error) {
	mp, _, err := s.openMultiplex()
	if err != nil {
		return 0, err
	}
	return mp.QueueLen(), nil
}

// AwaitOutgoingQueueEmpty blocks until the intake queue is empty and no
// worker has an in-flight request, or ctx is canceled.
func (s *Session) AwaitOutgoingQueueEmpty(ctx context.Context) error {
	mp, _, err := s.openMultiplex()
	if err != nil {
		return err
	}
	return mp.AwaitDrain(ctx)
}

// CloseStream drains in-flight work, then transitions Open -> Closed,
// returning one IngestionResponse per ClientRequestId minted during the
// session's lifetime, in submission order. Each response's RequestID is
// re-stamped to the id it was collected for: a Backward stream's single
// terminal response is otherwise applied to every still-pending id by
// the multiplex, so the wire response's own RequestID field cannot be
// trusted to disambiguate which submission it answers.
func (s *Session) CloseStream(ctx context.Context) ([]dprequest.IngestionResponse, error) {
	s.stateMu.Lock()
	if s.state != StateOpen {
		s.stateMu.Unlock()
		return nil, dperr.New(dperr.KindNotOpen, "ingestion session is not open")
	}
	s.state = StateDraining
	mp := s.mp
	s.stateMu.Unlock()

	err := mp.ShutdownSoft(ctx)

	s.stateMu.Lock()
	s.state = StateClosed
	s.stateMu.Unlock()

	if err != nil {
		return nil, err
	}
	return s.collectResults(ctx, mp)
}

// CloseStreamNow cancels all in-flight work immediately, discarding it
// with Interrupted outcomes, and transitions Open -> Closed.
func (s *Session) CloseStreamNow() ([]dprequest.IngestionResponse, error) {
	s.stateMu.Lock()
	if s.state != StateOpen {
		s.stateMu.Unlock()
		return nil, dperr.New(dperr.KindNotOpen, "ingestion session is not open")
	}
	s.state = StateDraining
	mp := s.mp
	s.stateMu.Unlock()

	mp.ShutdownHard()

	s.stateMu.Lock()
	s.state = StateClosed
	s.stateMu.Unlock()

	return s.collectResults(context.Background(), mp)
}

// collectResults awaits every minted ClientRequestId's resolved
// response (guaranteed resolved by the time ShutdownSoft/ShutdownHard
// returns) and returns them in submission order with RequestID
// re-stamped to the id each was collected for.
func (s *Session) collectResults(ctx context.Context, mp *mplex) ([]dprequest.IngestionResponse, error) {
	s.idsMu.Lock()
	ids := append([]dprequest.ClientRequestId(nil), s.ids...)
	s.idsMu.Unlock()

	results := make([]dprequest.IngestionResponse, 0, len(ids))
	var committed []ledger.Entry
	for _, id := range ids {
		resp, err := mp.AwaitResponse(ctx, id)
		if err != nil {
			return nil, err
		}
		resp.RequestID = id
		switch {
		case resp.IsExceptional():
			metrics.ObserveExceptional()
			s.publishDeadletter(ctx, resp)
		case resp.IsInterrupted():
			metrics.ObserveInterrupted()
		case resp.IsAck():
			committed = append(committed, ledger.Entry{
				RequestID: id, ProviderUID: string(s.uid), CommittedAt: time.Now(),
			})
		}
		results = append(results, resp)
		mp.Forget(id)
	}
	s.recordLedger(ctx, committed)
	return results, nil
}

// recordLedger mirrors committed requests to Postgres, best-effort: a
// ledger outage never fails the caller's close/shutdown call.
func (s *Session) recordLedger(ctx context.Context, entries []ledger.Entry) {
	if s.ledger == nil || len(entries) == 0 {
		return
	}
	if err := s.ledger.Record(ctx, entries); err != nil {
		s.log.Warn("ledger record failed", zap.Error(err))
	}
}

// publishDeadletter forwards an Exceptional outcome to Kafka,
// best-effort: a publish failure is logged, not propagated, since the
// caller already has the authoritative Exceptional response.
func (s *Session) publishDeadletter(ctx context.Context, resp dprequest.IngestionResponse) {
	if s.deadletter == nil {
		return
	}
	if err := s.deadletter.Publish(ctx, resp, string(s.uid)); err != nil {
		s.log.Warn("deadletter publish failed", zap.Error(err))
	}
}

// ShutdownSoft closes the stream (if Open) and releases transport
// resources. Legal in any state; a no-op when already Closed.
func (s *Session) ShutdownSoft(ctx context.Context) error {
	if s.State() == StateOpen {
		if _, err := s.CloseStream(ctx); err != nil {
			return dperr.Wrap(dperr.KindShutdownFailed, "soft shutdown: close stream failed", err)
		}
	}
	return nil
}

// ShutdownNow cancels the stream (if Open) and releases transport
// resources immediately.
func (s *Session) ShutdownNow() error {
	if s.State() == StateOpen {
		if _, err := s.CloseStreamNow(); err != nil {
			return dperr.Wrap(dperr.KindShutdownFailed, "hard shutdown: close stream failed", err)
		}
	}
	return nil
}
