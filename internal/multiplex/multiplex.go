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

// Package multiplex owns the pool of concurrent stream workers shared
// by the ingestion and query facades: one generic StreamMultiplex,
// parameterized over the outbound and inbound wire message types,
// replaces what would otherwise be a pair of near-identical
// connection managers. Per-service behavior is supplied by the small
// WorkerConn capability a caller's Factory produces, not by
// subclassing.
package multiplex

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/osprey-dcs/dp-jal-sub012/internal/queue"
	"github.com/osprey-dcs/dp-jal-sub012/internal/telemetry/metrics"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dprequest"
)

// WorkerConn is the capability one stream worker needs from its
// underlying connection: send one outbound item and, depending on the
// stream's kind, either get the matched response back immediately or
// defer it to Close. A Bidirectional stream's WorkerConn returns
// hasResp true from every Send; a Backward (client-streaming) one
// returns hasResp false from Send and carries the stream's single
// terminal response back from Close instead.
type WorkerConn[Out, In any] interface {
	Send(ctx context.Context, item Out) (resp In, hasResp bool, err error)
	Close(ctx context.Context) (resp In, hasResp bool, err error)
}

// Factory opens one fresh WorkerConn, reconnecting internally with
// backoff as needed (internal/transport's sessions do this); it only
// returns an error when ctx itself has been canceled.
type Factory[Out, In any] func(ctx context.Context) (WorkerConn[Out, In], error)

// OutcomeBuilder manufactures the In value recorded for a
// ClientRequestId the multiplex could not get a real response for,
// either because its worker's connection failed (Exceptional) or
// because the session shut down before a response arrived
// (Interrupted). Each service binds its own builder, since only it
// knows how to shape an In value that looks like a real response.
type OutcomeBuilder[In any] func(id dprequest.ClientRequestId, cause error) In

type workItem[Out any] struct {
	id          dprequest.ClientRequestId
	payload     Out
	submittedAt time.Time
}

type pendingSlot[In any] struct {
	ch chan In
}

// StreamMultiplex owns Workers concurrent stream workers, each bound
// to its own long-lived connection, and correlates one outbound item
// per ClientRequestId to the In response it eventually produces.
// Service is a phantom type parameter distinguishing, for example,
// a multiplex bound to the ingestion service from one bound to the
// query service at the type level, even though the two are otherwise
// structurally identical.
type StreamMultiplex[Service, Out, In any] struct {
	name          string
	newConn       Factory[Out, In]
	onFailure     OutcomeBuilder[In]
	onInterrupted OutcomeBuilder[In]
	minter        *dprequest.Minter
	intake        *queue.Queue[workItem[Out]]
	workers       int
	log           *zap.Logger

	mu          sync.Mutex
	correlation map[dprequest.ClientRequestId]pendingSlot[In]
	responses   chan In

	inFlight   int64
	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New builds a StreamMultiplex bound to factory, with workers
// concurrent stream workers each pulling from one bounded intake
// queue of the given back-pressure mode/capacity/timeout. onFailure
// and onInterrupted shape the In value recorded when a request never
// gets a real response.
func New[Service, Out, In any](
	parent context.Context,
	name string,
	workers int,
	factory Factory[Out, In],
	onFailure, onInterrupted OutcomeBuilder[In],
	sessionTag string,
	mode queue.Mode,
	capacity int,
	timeout time.Duration,
	log *zap.Logger,
) *StreamMultiplex[Service, Out, In] {
	ctx, cancel := context.WithCancel(parent)
	return &StreamMultiplex[Service, Out, In]{
		name:          name,
		newConn:       factory,
		onFailure:     onFailure,
		onInterrupted: onInterrupted,
		minter:        dprequest.NewMinter(sessionTag),
		intake:        queue.New[workItem[Out]](name, mode, capacity, timeout),
		workers:       workers,
		log:           log,
		correlation:   make(map[dprequest.ClientRequestId]pendingSlot[In]),
		responses:     make(chan In, workers*4+16),
		rootCtx:       ctx,
		rootCancel:    cancel,
	}
}

// Name returns the label this multiplex's intake queue reports its
// depth/rejection metrics under.
func (s *StreamMultiplex[Service, Out, In]) Name() string { return s.name }

// Start launches the worker pool. Call once, before Submit.
func (s *StreamMultiplex[Service, Out, In]) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.workerLoop(i)
	}
}

// Submit mints a ClientRequestId for payload, enqueues it for the
// first idle worker, and returns the ID the caller correlates the
// eventual response against. It blocks according to the intake
// queue's configured back-pressure mode.
func (s *StreamMultiplex[Service, Out, In]) Submit(ctx context.Context, payload Out) (dprequest.ClientRequestId, error) {
	id := s.minter.Mint()
	s.mu.Lock()
	s.correlation[id] = pendingSlot[In]{ch: make(chan In, 1)}
	s.mu.Unlock()

	item := workItem[Out]{id: id, payload: payload, submittedAt: time.Now()}
	if err := s.intake.Submit(ctx, item); err != nil {
		s.mu.Lock()
		delete(s.correlation, id)
		s.mu.Unlock()
		return "", err
	}
	return id, nil
}

// Mint reserves the next ClientRequestId without enqueuing anything.
// Callers whose wire message itself carries a client-assigned request
// id (the ingestion facade's IngestDataRequest.RequestId) call this
// first so the minted id can be embedded in the payload before it is
// handed to SubmitWithID.
func (s *StreamMultiplex[Service, Out, In]) Mint() dprequest.ClientRequestId {
	return s.minter.Mint()
}

// SubmitWithID enqueues payload under id, previously reserved with
// Mint. It behaves exactly like Submit except the id is supplied by
// the caller instead of minted here, so payload can carry the same id
// the caller returns to its own callers.
func (s *StreamMultiplex[Service, Out, In]) SubmitWithID(ctx context.Context, id dprequest.ClientRequestId, payload Out) error {
	s.mu.Lock()
	s.correlation[id] = pendingSlot[In]{ch: make(chan In, 1)}
	s.mu.Unlock()

	item := workItem[Out]{id: id, payload: payload, submittedAt: time.Now()}
	if err := s.intake.Submit(ctx, item); err != nil {
		s.mu.Lock()
		delete(s.correlation, id)
		s.mu.Unlock()
		return err
	}
	return nil
}

// AwaitResponse blocks for id's response, returning it once a worker
// resolves it (a real response, an Exceptional outcome recorded on
// transport failure, or an Interrupted outcome recorded on shutdown).
// It may be called either before or after resolution: the response
// channel is buffered, so a resolution that already happened is still
// there to receive.
func (s *StreamMultiplex[Service, Out, In]) AwaitResponse(ctx context.Context, id dprequest.ClientRequestId) (In, error) {
	s.mu.Lock()
	slot, ok := s.correlation[id]
	s.mu.Unlock()
	if !ok {
		var zero In
		return zero, dperr.New(dperr.KindIllegalState, "no pending request with this id")
	}
	select {
	case resp := <-slot.ch:
		return resp, nil
	case <-ctx.Done():
		var zero In
		return zero, dperr.Wrap(dperr.KindInterrupted, "await response canceled", ctx.Err())
	}
}

// Forget releases the correlation entry for id. Callers that have
// consumed a response through AwaitResponse or Responses call this to
// bound the multiplex's memory to in-flight requests; it is a no-op
// for an unknown id.
func (s *StreamMultiplex[Service, Out, In]) Forget(id dprequest.ClientRequestId) {
	s.mu.Lock()
	delete(s.correlation, id)
	s.mu.Unlock()
}

// Responses returns the consumer-side arrival-order feed: every
// resolved response, in the order workers produced them, for callers
// that do not want to track individual ClientRequestIds. It is
// best-effort past its buffer; AwaitResponse is the guaranteed path.
func (s *StreamMultiplex[Service, Out, In]) Responses() <-chan In {
	return s.responses
}

// QueueLen reports the intake queue's current depth: items submitted
// but not yet dequeued by a worker.
func (s *StreamMultiplex[Service, Out, In]) QueueLen() int {
	return s.intake.Len()
}

// InFlight reports how many work items are currently between
// dequeue and a resolved response.
func (s *StreamMultiplex[Service, Out, In]) InFlight() int {
	return int(atomic.LoadInt64(&s.inFlight))
}

// AwaitDrain blocks until the intake queue is empty and no worker
// reports an in-flight request, or ctx is canceled.
func (s *StreamMultiplex[Service, Out, In]) AwaitDrain(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.intake.Len() == 0 && atomic.LoadInt64(&s.inFlight) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return dperr.Wrap(dperr.KindInterrupted, "await drain canceled", ctx.Err())
		case <-ticker.C:
		}
	}
}

// ShutdownSoft stops accepting new submissions, lets every worker
// finish its in-flight item and collect its stream's terminal
// response (for Backward-kind workers), then returns once every
// worker has exited.
func (s *StreamMultiplex[Service, Out, In]) ShutdownSoft(ctx context.Context) error {
	s.intake.Close()
	if err := s.AwaitDrain(ctx); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return dperr.Wrap(dperr.KindInterrupted, "soft shutdown canceled before workers drained", ctx.Err())
	}
}

// ShutdownHard cancels every worker immediately, discards whatever is
// still in the intake queue, and records Interrupted for every
// request left unresolved.
func (s *StreamMultiplex[Service, Out, In]) ShutdownHard() {
	s.intake.Close()
	s.rootCancel()
	for _, item := range s.intake.DrainAll() {
		s.resolve(item.id, s.onInterrupted(item.id, s.rootCtx.Err()))
	}
	s.wg.Wait()
	s.mu.Lock()
	ids := make([]dprequest.ClientRequestId, 0, len(s.correlation))
	for id := range s.correlation {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.resolve(id, s.onInterrupted(id, s.rootCtx.Err()))
	}
}

// resolve delivers resp for id. It leaves the correlation entry in
// place (see Forget) so AwaitResponse still works after the fact; the
// slot's channel is buffered, so a second resolve for the same id
// (ShutdownHard sweeping entries a worker already resolved) is a
// harmless no-op, the first delivery wins.
func (s *StreamMultiplex[Service, Out, In]) resolve(id dprequest.ClientRequestId, resp In) {
	s.mu.Lock()
	slot, ok := s.correlation[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case slot.ch <- resp:
	default:
		return
	}
	select {
	case s.responses <- resp:
	default:
		if s.log != nil {
			s.log.Warn("dropped response from arrival-order feed: buffer full", zap.String("request_id", string(id)))
		}
	}
}

func (s *StreamMultiplex[Service, Out, In]) workerLoop(index int) {
	defer s.wg.Done()

	var conn WorkerConn[Out, In]
	var pending []dprequest.ClientRequestId

	// closeConn resolves every deferred id this worker still holds;
	// each keeps its in-flight count until resolved here, so drain
	// cannot report complete while a sent-but-unacknowledged request
	// is still waiting on the stream's terminal response.
	closeConn := func() {
		if conn == nil {
			return
		}
		defer func() {
			atomic.AddInt64(&s.inFlight, -int64(len(pending)))
			pending = nil
			conn = nil
		}()
		if s.rootCtx.Err() != nil {
			for _, id := range pending {
				s.resolve(id, s.onInterrupted(id, s.rootCtx.Err()))
			}
			return
		}
		resp, hasResp, err := conn.Close(s.rootCtx)
		switch {
		case err != nil:
			for _, id := range pending {
				s.resolve(id, s.onFailure(id, err))
			}
		case hasResp:
			for _, id := range pending {
				s.resolve(id, resp)
			}
		default:
			for _, id := range pending {
				s.resolve(id, s.onInterrupted(id, nil))
			}
		}
	}

	for {
		item, err := s.intake.Dequeue(s.rootCtx)
		if err != nil {
			closeConn()
			return
		}

		atomic.AddInt64(&s.inFlight, 1)
		metrics.ObserveDispatch(time.Since(item.submittedAt))

		if conn == nil {
			conn, err = s.newConn(s.rootCtx)
			if err != nil {
				s.resolve(item.id, s.onFailure(item.id, err))
				atomic.AddInt64(&s.inFlight, -1)
				continue
			}
		}

		sendStart := time.Now()
		resp, hasResp, sendErr := conn.Send(s.rootCtx, item.payload)
		if sendErr != nil {
			s.resolve(item.id, s.onFailure(item.id, sendErr))
			for _, id := range pending {
				s.resolve(id, s.onFailure(id, sendErr))
			}
			atomic.AddInt64(&s.inFlight, -int64(1+len(pending)))
			pending = nil
			conn = nil
			continue
		}
		if hasResp {
			metrics.ObserveResponse(time.Since(sendStart))
			s.resolve(item.id, resp)
			atomic.AddInt64(&s.inFlight, -1)
		} else {
			// Deferred: the id stays in-flight until closeConn
			// resolves it from the stream's terminal response.
			pending = append(pending, item.id)
		}
	}
}
