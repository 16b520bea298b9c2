// Package outbox relays committed audit events from the outbox table to
// Kafka. Delivery is at least once: a crash between produce and commit
// republishes the batch, and consumers dedupe on the event id.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Store hands out batches of unpublished entries.
type Store interface {
	Claim(ctx context.Context, limit int, publish func(ctx context.Context, entries []Entry) error) (int, error)
}

// Producer is the subset of *kgo.Client the relay uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_outbox_published_total",
			Help: "Outbox events produced to Kafka",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_outbox_relay_failures_total",
			Help: "Outbox polls that failed and will be retried",
		}),
	}
}

type Relay struct {
	store     Store
	producer  Producer
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(store Store, producer Producer, topic string, opts ...Option) (*Relay, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if producer == nil {
		return nil, errors.New("producer is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	r := &Relay{
		store:     store,
		producer:  producer,
		topic:     topic,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run polls until ctx is cancelled. A failed poll is logged and retried on
// the next tick. A full batch is followed immediately by another poll.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			if r.metrics != nil {
				r.metrics.Failures.Inc()
			}
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "outbox relay poll failed", "error", err)
			}
		}
		if err == nil && n == r.batchSize {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce publishes one batch and returns how many entries it published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	n, err := r.store.Claim(ctx, r.batchSize, r.publish)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if r.metrics != nil {
			r.metrics.Published.Add(float64(n))
		}
		if r.logger != nil {
			r.logger.DebugContext(ctx, "outbox batch published", "count", n)
		}
	}
	return n, nil
}

func (r *Relay) publish(ctx context.Context, entries []Entry) error {
	records := make([]*kgo.Record, len(entries))
	for i, e := range entries {
		records[i] = ToRecord(r.topic, e)
	}
	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce outbox batch: %w", err)
	}
	return nil
}

// ToRecord keys records by aggregate so the events of one wallet stay in
// order within a partition.
func ToRecord(topic string, e Entry) *kgo.Record {
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(e.AggregateType + ":" + e.AggregateID),
		Value: e.Payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(e.ID.String())},
			{Key: "event_type", Value: []byte(e.EventType)},
		},
		Timestamp: e.CreatedAt,
	}
}
