package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	httpapi "warden/internal/http"
	"warden/internal/identity"
	jwttoken "warden/internal/jwt_token"
	"warden/internal/ledger"
	ledgerhandler "warden/internal/ledger/handler"
	memoryledger "warden/internal/ledger/memory"
	postgresledger "warden/internal/ledger/postgres"
	redisledger "warden/internal/ledger/redis"
	"warden/internal/outbox"
	"warden/internal/platform/config"
	"warden/internal/platform/kafka"
	"warden/internal/platform/metrics"
	"warden/internal/platform/middleware"
	"warden/internal/platform/postgres"
	redisplatform "warden/internal/platform/redis"
	ratelimitmw "warden/internal/ratelimit/middleware"
	ratelimitmodels "warden/internal/ratelimit/models"
	ratelimitstore "warden/internal/ratelimit/store"
	wallethandler "warden/internal/wallet/handler"
	walletmetrics "warden/internal/wallet/metrics"
	walletservice "warden/internal/wallet/service"
	walletstore "warden/internal/wallet/store"
	"warden/pkg/platform/audit"
	"warden/pkg/platform/audit/publisher"
	auditmemory "warden/pkg/platform/audit/store/memory"
	auditpostgres "warden/pkg/platform/audit/store/postgres"
	"warden/pkg/platform/circuit"
)

// app is the wired process: the HTTP handler, the optional outbox relay and
// the connections that must be closed on exit.
type app struct {
	Router http.Handler
	Relay  *outbox.Relay

	closers []func() error
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// observability groups the metric registry and tracer the app reports to.
type observability struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Tracer     trace.Tracer
}

// buildApp connects the configured backends and assembles the services.
// On error every connection opened so far is closed.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, obs observability) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	checks := map[string]httpapi.HealthCheck{}
	var redisClient *redisplatform.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisplatform.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, redisClient.Close)
		checks["redis"] = redisClient.Health
	}

	var db *sql.DB
	if cfg.Store.Backend == config.BackendPostgres || cfg.Ledger.Backend == config.BackendPostgres {
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["postgres"] = db.PingContext
	}

	var (
		store   walletservice.Store
		storeTx walletservice.StoreTx
		txr     ledger.TxRunner = ledger.NoTx{}
		events  audit.Store
	)
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		runner := postgres.NewTxRunner(db, cfg.Store.TxTimeout)
		store = walletstore.NewPostgres(db)
		storeTx = newWalletPostgresTx(runner)
		txr = runner
		events = auditpostgres.New(db)
	default:
		store = walletstore.NewInMemory()
		storeTx = walletservice.NewShardedTx(cfg.Store.TxTimeout)
		events = auditmemory.NewInMemoryStore()
	}

	var balances ledger.Ledger
	switch cfg.Ledger.Backend {
	case config.BackendPostgres:
		balances = postgresledger.New(db)
	case config.BackendRedis:
		balances = redisledger.New(redisClient.Client)
	default:
		balances = memoryledger.New()
	}
	if cfg.Ledger.Backend != config.BackendMemory {
		guarded := ledger.NewGuarded(balances, circuit.New("ledger-"+cfg.Ledger.Backend,
			circuit.WithFailureThreshold(cfg.Ledger.BreakerFailures),
			circuit.WithCooldown(cfg.Ledger.BreakerCooldown),
		), logger)
		checks["ledger"] = guarded.Health
		balances = guarded
	}

	pub := publisher.NewPublisher(events,
		publisher.WithLogger(logger),
		publisher.WithMetrics(publisher.NewMetricsWithRegisterer(obs.Registerer)),
	)

	wallets, err := walletservice.New(store, storeTx, balances, identity.NewContextIdentity(),
		walletservice.WithLogger(logger),
		walletservice.WithAuditPublisher(pub),
		walletservice.WithMetrics(walletmetrics.NewWithRegisterer(obs.Registerer)),
		walletservice.WithTracer(obs.Tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("wallet service: %w", err)
	}

	ledgerSvc, err := ledger.NewService(balances, txr,
		ledger.WithLogger(logger),
		ledger.WithAuditPublisher(pub),
	)
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}

	var buckets ratelimitmw.BucketStore = ratelimitstore.NewInMemoryBucketStore()
	if redisClient != nil {
		buckets = ratelimitstore.NewRedisBucketStore(redisClient.Client)
	}
	limiter := ratelimitmw.New(buckets, logger,
		ratelimitmw.WithDisabled(!cfg.RateLimit.Enabled),
		ratelimitmw.WithMetrics(ratelimitmw.NewMetrics(obs.Registerer)),
		ratelimitmw.WithLimit(ratelimitmodels.ClassRead, ratelimitmw.Limit{Requests: cfg.RateLimit.ReadRequests, Window: cfg.RateLimit.Window}),
		ratelimitmw.WithLimit(ratelimitmodels.ClassWrite, ratelimitmw.Limit{Requests: cfg.RateLimit.WriteRequests, Window: cfg.RateLimit.Window}),
	)

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)

	a.Router = httpapi.NewRouter(httpapi.Deps{
		Logger:         logger,
		Wallets:        wallethandler.New(wallets, logger),
		Ledger:         ledgerhandler.New(ledgerSvc, logger),
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwt),
		AdminToken:     cfg.Auth.AdminToken,
		RateLimit:      limiter.RateLimitAuthenticated,
		HTTPMetrics:    middleware.NewHTTPMetrics(obs.Registerer),
		Metrics:        metrics.HandlerFor(obs.Gatherer),
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   checks,
	})

	if len(cfg.Kafka.Brokers) > 0 {
		client, kerr := kafka.NewClient(cfg.Kafka)
		if kerr != nil {
			return nil, kerr
		}
		a.closers = append(a.closers, func() error {
			client.Close()
			return nil
		})
		a.Relay, err = outbox.NewRelay(outbox.NewPostgresStore(db), client, cfg.Kafka.Topic,
			outbox.WithLogger(logger),
			outbox.WithMetrics(outbox.NewMetrics(obs.Registerer)),
			outbox.WithPollInterval(cfg.Kafka.PollInterval),
			outbox.WithBatchSize(cfg.Kafka.BatchSize),
		)
		if err != nil {
			return nil, fmt.Errorf("outbox relay: %w", err)
		}
	}

	return a, nil
}
