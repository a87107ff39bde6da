// Package notify fans pool events out to the delivery sinks: Kafka for
// downstream consumers, PostgreSQL for the durable journal, and InfluxDB for
// dashboards. Delivery is best-effort; a failing sink is logged and never
// fails the pool operation that produced the event.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/holiman/uint256"

	"github.com/stakeworks/gosp/internal/database"
	"github.com/stakeworks/gosp/internal/database/postgres"
	"github.com/stakeworks/gosp/internal/messaging"
	"github.com/stakeworks/gosp/pkg/log"
)

// Sink delivers one event to one destination.
type Sink interface {
	Deliver(ctx context.Context, event messaging.Event) error
}

// Fanout delivers every event to all sinks. It implements pool.Notifier.
type Fanout struct {
	sinks  []Sink
	logger *log.Logger
}

// NewFanout creates a fanout over the given sinks.
func NewFanout(logger *log.Logger, sinks ...Sink) *Fanout {
	return &Fanout{
		sinks:  sinks,
		logger: logger.WithComponent("notify"),
	}
}

// Notify implements pool.Notifier.
func (f *Fanout) Notify(ctx context.Context, event messaging.Event) {
	for _, sink := range f.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			f.logger.Error("event delivery failed",
				"kind", string(event.Kind), "key", event.Key, "error", err)
		}
	}
}

// KafkaSink publishes events to the topic derived from their kind.
type KafkaSink struct {
	client *messaging.KafkaClient
}

// NewKafkaSink creates a Kafka sink.
func NewKafkaSink(client *messaging.KafkaClient) *KafkaSink {
	return &KafkaSink{client: client}
}

// Deliver implements Sink.
func (s *KafkaSink) Deliver(ctx context.Context, event messaging.Event) error {
	return s.client.PublishEvent(ctx, event)
}

// JournalSink appends events to the PostgreSQL journal.
type JournalSink struct {
	db *database.Manager
}

// NewJournalSink creates a journal sink.
func NewJournalSink(db *database.Manager) *JournalSink {
	return &JournalSink{db: db}
}

// Deliver implements Sink. Distribution events additionally land in the
// structured distribution history.
func (s *JournalSink) Deliver(ctx context.Context, event messaging.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	record := &postgres.EventRecord{
		Kind:    string(event.Kind),
		Key:     event.Key,
		At:      event.At,
		Payload: payload,
	}
	if err := s.db.JournalEvent(ctx, record); err != nil {
		return err
	}

	if event.Kind == messaging.EventDistributionExecuted {
		if p, ok := event.Payload.(messaging.DistributionPayload); ok {
			return s.db.RecordDistribution(ctx, &postgres.Distribution{
				Recipient:  p.Recipient,
				Amount:     p.Amount,
				Cursor:     p.Cursor,
				Cleanup:    p.Cleanup,
				ExecutedAt: event.At,
			})
		}
	}
	return nil
}

// MetricsSink turns events into InfluxDB measurements. Writes are
// non-blocking in the underlying client.
type MetricsSink struct {
	db *database.Manager
}

// NewMetricsSink creates a metrics sink.
func NewMetricsSink(db *database.Manager) *MetricsSink {
	return &MetricsSink{db: db}
}

// Deliver implements Sink.
func (s *MetricsSink) Deliver(_ context.Context, event messaging.Event) error {
	switch p := event.Payload.(type) {
	case messaging.StakePayload:
		s.db.Influx.WriteStakeMetric("stake", p.Staker, dec(p.Amount), dec(p.MintedShares))
	case messaging.ExitPayload:
		s.db.Influx.WriteStakeMetric("exit", p.Staker, dec(p.Returned), dec(p.BurnedShares))
	case messaging.DistributionPayload:
		s.db.Influx.WriteDistributionMetric(p.Recipient, dec(p.Amount), p.Cursor, p.Cleanup)
	case messaging.PrizePayload:
		s.db.Influx.WritePrizeMetric(p.Game, p.Winner, dec(p.Amount))
	case messaging.OracleRequestPayload:
		s.db.Influx.WriteOracleMetric(p.RequestID, p.BlockHeight, p.Batched,
			time.Duration(p.LatencyMS)*time.Millisecond)
	}
	return nil
}

// dec parses a decimal amount string, zero on malformed input. Payloads are
// produced in-process so malformed input means a programming error upstream.
func dec(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return new(uint256.Int)
	}
	return v
}
