// Package middleware applies per-caller request budgets to the wallet API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"warden/internal/ratelimit/models"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

// BucketStore is a sliding-window counter keyed by caller and class.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Limit is the budget of one endpoint class.
type Limit struct {
	Requests int
	Window   time.Duration
}

type Metrics struct {
	Rejected *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Rejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "warden_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter, by endpoint class",
		}, []string{"class"}),
	}
}

type Middleware struct {
	store    BucketStore
	limits   map[models.EndpointClass]Limit
	logger   *slog.Logger
	metrics  *Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

// WithLimit sets the budget of class.
func WithLimit(class models.EndpointClass, limit Limit) Option {
	return func(m *Middleware) {
		m.limits[class] = limit
	}
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store: store,
		limits: map[models.EndpointClass]Limit{
			models.ClassRead:  {Requests: 120, Window: time.Minute},
			models.ClassWrite: {Requests: 30, Window: time.Minute},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimitAuthenticated budgets requests per authenticated principal. GET
// and HEAD count against the read class, everything else against write. It
// must run after the auth middleware; unauthenticated requests are keyed by
// client IP.
func (m *Middleware) RateLimitAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		class := classOf(r)
		limit, ok := m.limits[class]
		if !ok || limit.Requests <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		caller := requestcontext.Principal(ctx).String()
		if caller == "" {
			caller = "ip:" + requestcontext.ClientIP(ctx)
		}

		result, err := m.store.Allow(ctx, models.Key(class, caller), limit.Requests, limit.Window)
		if err != nil {
			// Fail open: the limiter must not take the API down with it.
			m.logger.ErrorContext(ctx, "failed to check rate limit",
				"error", err,
				"class", class,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			if m.metrics != nil {
				m.metrics.Rejected.WithLabelValues(string(class)).Inc()
			}
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"principal", caller,
				"class", class,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "request quota exceeded, retry later"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func classOf(r *http.Request) models.EndpointClass {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return models.ClassRead
	}
	return models.ClassWrite
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
