package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the wallet module.
type Metrics struct {
	WalletsCreated     prometheus.Counter
	Deposits           prometheus.Counter
	Transfers          prometheus.Counter
	RecoveryVotes      prometheus.Counter
	Recoveries         prometheus.Counter
	RejectedOperations *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the wallet metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WalletsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_wallets_created_total",
			Help: "Total number of wallets initialized",
		}),
		Deposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_deposits_total",
			Help: "Total number of deposits into wallet custody",
		}),
		Transfers: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_transfers_total",
			Help: "Total number of owner transfers out of wallet custody",
		}),
		RecoveryVotes: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_recovery_votes_total",
			Help: "Total number of accepted guardian recovery votes",
		}),
		Recoveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_recoveries_total",
			Help: "Total number of wallets recovered by guardian quorum",
		}),
		RejectedOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_rejected_operations_total",
			Help: "Wallet operations rejected, by operation and error code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_wallet_operation_duration_seconds",
			Help:    "Duration of wallet operations including the ledger round trips",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementWalletsCreated() { m.WalletsCreated.Inc() }

func (m *Metrics) IncrementDeposits() { m.Deposits.Inc() }

func (m *Metrics) IncrementTransfers() { m.Transfers.Inc() }

func (m *Metrics) IncrementRecoveryVotes() { m.RecoveryVotes.Inc() }

func (m *Metrics) IncrementRecoveries() { m.Recoveries.Inc() }

func (m *Metrics) IncrementRejected(operation, code string) {
	m.RejectedOperations.WithLabelValues(operation, code).Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
