package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

// memStore mimics the claim semantics of PostgresStore: entries are removed
// only when publish succeeds.
type memStore struct {
	mu      sync.Mutex
	pending []Entry
}

func (m *memStore) Claim(ctx context.Context, limit int, publish func(context.Context, []Entry) error) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(limit, len(m.pending))
	if n == 0 {
		return 0, nil
	}
	batch := append([]Entry(nil), m.pending[:n]...)
	if err := publish(ctx, batch); err != nil {
		return 0, err
	}
	m.pending = m.pending[n:]
	return n, nil
}

type fakeProducer struct {
	mu       sync.Mutex
	records  []*kgo.Record
	failures int
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	if p.failures > 0 {
		p.failures--
		for _, r := range rs {
			results = append(results, kgo.ProduceResult{Record: r, Err: errors.New("broker unavailable")})
		}
		return results
	}
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r})
	}
	return results
}

func (p *fakeProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

func entries(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{
			ID:            uuid.New(),
			Seq:           int64(i + 1),
			AggregateType: "wallet",
			AggregateID:   "w1",
			EventType:     "recovery_vote_cast",
			Payload:       []byte(`{"action":"recovery_vote_cast"}`),
			CreatedAt:     time.Now(),
		}
	}
	return out
}

func TestNewRelay(t *testing.T) {
	_, err := NewRelay(nil, &fakeProducer{}, "t")
	require.Error(t, err)
	_, err = NewRelay(&memStore{}, nil, "t")
	require.Error(t, err)
	_, err = NewRelay(&memStore{}, &fakeProducer{}, "")
	require.Error(t, err)
}

func TestRunOncePublishesInOrder(t *testing.T) {
	batch := entries(3)
	store := &memStore{pending: batch}
	producer := &fakeProducer{}
	metrics := NewMetrics(prometheus.NewRegistry())
	relay, err := NewRelay(store, producer, "warden.wallet-events", WithMetrics(metrics), WithBatchSize(2))
	require.NoError(t, err)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, producer.records, 3)
	for i, r := range producer.records {
		assert.Equal(t, "warden.wallet-events", r.Topic)
		assert.Equal(t, []byte("wallet:w1"), r.Key)
		assert.Equal(t, []byte(batch[i].ID.String()), r.Headers[0].Value)
	}
	assert.Equal(t, float64(3), promtest.ToFloat64(metrics.Published))
}

func TestRunOnceKeepsBatchOnProduceFailure(t *testing.T) {
	store := &memStore{pending: entries(2)}
	producer := &fakeProducer{failures: 1}
	relay, err := NewRelay(store, producer, "topic")
	require.NoError(t, err)

	_, err = relay.RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, store.pending, 2)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, store.pending)
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	store := &memStore{pending: entries(5)}
	producer := &fakeProducer{failures: 1}
	relay, err := NewRelay(store, producer, "topic", WithPollInterval(5*time.Millisecond), WithBatchSize(2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return producer.count() == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestToRecordHeaders(t *testing.T) {
	e := entries(1)[0]
	r := ToRecord("topic", e)
	require.Len(t, r.Headers, 2)
	assert.Equal(t, "event_id", r.Headers[0].Key)
	assert.Equal(t, []byte(e.ID.String()), r.Headers[0].Value)
	assert.Equal(t, []byte("recovery_vote_cast"), r.Headers[1].Value)
	assert.Equal(t, e.Payload, r.Value)
}
