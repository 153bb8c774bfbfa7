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

package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dprequest"
)

type fakeProducer struct {
	sent      []*sarama.ProducerMessage
	returnErr error
	closed    bool
}

func (f *fakeProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	if f.returnErr != nil {
		return 0, 0, f.returnErr
	}
	f.sent = append(f.sent, msg)
	return 0, int64(len(f.sent) - 1), nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestPublishRejectsNonExceptionalOutcome(t *testing.T) {
	fp := &fakeProducer{}
	s := NewSink(fp, "deadletters")
	err := s.Publish(context.Background(), dprequest.NewAck("r1"), "prov-1")
	if dperr.KindOf(err) != dperr.KindIllegalState {
		t.Fatalf("err = %v, want IllegalState", err)
	}
	if len(fp.sent) != 0 {
		t.Fatalf("expected no publish, got %d", len(fp.sent))
	}
}

func TestPublishSendsKeyedJSONMessage(t *testing.T) {
	fp := &fakeProducer{}
	s := NewSink(fp, "deadletters")
	resp := dprequest.NewExceptional("req-7", 400, "frame rejected")
	if err := s.Publish(context.Background(), resp, "prov-1"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if len(fp.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(fp.sent))
	}
	msg := fp.sent[0]
	if msg.Topic != "deadletters" {
		t.Fatalf("topic = %q", msg.Topic)
	}
	keyBytes, err := msg.Key.Encode()
	if err != nil {
		t.Fatalf("key.Encode: %v", err)
	}
	if string(keyBytes) != "req-7" {
		t.Fatalf("key = %q, want req-7", string(keyBytes))
	}
	valueBytes, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("value.Encode: %v", err)
	}
	var decoded Message
	if err := json.Unmarshal(valueBytes, &decoded); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if decoded.RequestID != "req-7" || decoded.ProviderUID != "prov-1" || decoded.StatusCode != 400 || decoded.Reason != "frame rejected" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestPublishWrapsProducerError(t *testing.T) {
	fp := &fakeProducer{returnErr: errors.New("broker unreachable")}
	s := NewSink(fp, "deadletters")
	err := s.Publish(context.Background(), dprequest.NewExceptional("req-8", 500, "boom"), "prov-1")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestPublishHonorsCanceledContext(t *testing.T) {
	fp := &fakeProducer{}
	s := NewSink(fp, "deadletters")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Publish(ctx, dprequest.NewExceptional("req-9", 500, "boom"), "prov-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fp.sent) != 0 {
		t.Fatalf("expected no publish when context already canceled")
	}
}

func TestCloseDelegatesToProducer(t *testing.T) {
	fp := &fakeProducer{}
	s := NewSink(fp, "deadletters")
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if !fp.closed {
		t.Fatalf("expected producer Close to be called")
	}
}
