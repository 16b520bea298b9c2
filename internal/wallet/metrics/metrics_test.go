package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementWalletsCreated()
	m.IncrementRecoveryVotes()
	m.IncrementRecoveryVotes()
	m.IncrementRejected("recover_to", "already_voted")
	m.ObserveOperation("recover_to", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WalletsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecoveryVotes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedOperations.WithLabelValues("recover_to", "already_voted")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}
