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

// Package deadletter publishes Exceptional ingestion outcomes to Kafka
// for offline inspection. It never retries or blocks the ingestion
// facade's own back-pressure: a publish failure is logged by the
// caller and the outcome is still surfaced to the original submitter.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/osprey-dcs/dp-jal-sub012/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub012/pkg/dprequest"
)

// Producer is the narrow slice of sarama.SyncProducer the sink needs.
// Declaring it locally, rather than depending on the full
// sarama.SyncProducer interface, keeps the sink easy to fake in tests;
// a real *sarama.SyncProducer satisfies it without change.
type Producer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// NewProducer dials brokers with an idempotent, fully-acked producer
// configuration: one in-flight request per connection and
// RequiredAcks=WaitForAll, so the broker's own dedup keeps retries
// from duplicating a message.
func NewProducer(brokers []string) (Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Net.MaxOpenRequests = 1
	return sarama.NewSyncProducer(brokers, cfg)
}

// Message is the JSON payload published for one dead-lettered
// request.
type Message struct {
	RequestID   string `json:"request_id"`
	ProviderUID string `json:"provider_uid"`
	StatusCode  int32  `json:"status_code"`
	Reason      string `json:"reason"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}

// Sink publishes Exceptional IngestionResponses to one Kafka topic,
// keyed by RequestID so a consumer can dedup and preserve per-request
// ordering.
type Sink struct {
	producer Producer
	topic    string
}

// NewSink builds a Sink over an already-connected Producer.
func NewSink(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

// Close releases the underlying producer.
func (s *Sink) Close() error { return s.producer.Close() }

// Publish dead-letters resp, which must be Exceptional; any other kind
// is a caller error (Ack and Interrupted outcomes never need review).
func (s *Sink) Publish(ctx context.Context, resp dprequest.IngestionResponse, providerUID string) error {
	if !resp.IsExceptional() {
		return dperr.New(dperr.KindIllegalState, "deadletter.Publish requires an Exceptional outcome")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := Message{
		RequestID:   string(resp.RequestID),
		ProviderUID: providerUID,
		StatusCode:  resp.StatusCode,
		Reason:      resp.Message,
		TsUnixMs:    time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal dead-letter message: %w", err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(resp.RequestID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka produce request=%s: %w", resp.RequestID, err)
	}
	return nil
}
