// Package middleware throttles survey and registry writes per caller.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pollbook/internal/ratelimit/models"
	"pollbook/pkg/platform/httputil"
	"pollbook/pkg/requestcontext"
)

// BucketStore is satisfied by the in-memory and Redis bucket stores.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	store    BucketStore
	policy   models.Policy
	logger   *slog.Logger
	outcomes *prometheus.CounterVec
}

type Option func(*Middleware)

// WithMetrics counts decisions as pollbook_ratelimit_decisions_total{outcome}.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Middleware) {
		m.outcomes = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pollbook_ratelimit_decisions_total",
			Help: "Write rate limit decisions by outcome",
		}, []string{"outcome"})
	}
}

func New(store BucketStore, policy models.Policy, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		policy: policy,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !policy.Enabled() {
		logger.Info("write rate limiting disabled")
	}
	return m
}

// Limit admits a request when its caller still has budget in the current
// window. Authenticated callers are keyed by identity, others by client IP.
// Store failures let the request through.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || !m.policy.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := callerKey(ctx)
		result, err := m.store.Allow(ctx, key, m.policy.Limit, m.policy.Window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check write rate limit",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			m.observe("error")
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.logger.WarnContext(ctx, "write rate limit exceeded",
				"bucket", key,
				"request_id", requestcontext.RequestID(ctx),
			)
			m.observe("denied")
			writeRateLimitExceeded(w, result)
			return
		}
		m.observe("allowed")
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) observe(outcome string) {
	if m.outcomes != nil {
		m.outcomes.WithLabelValues(outcome).Inc()
	}
}

func callerKey(ctx context.Context) string {
	if identity := requestcontext.Identity(ctx); identity != "" {
		return models.BucketKey(models.ScopeIdentity, string(identity))
	}
	return models.BucketKey(models.ScopeIP, requestcontext.ClientIP(ctx))
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many write requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
