package middleware

//go:generate mockgen -source=ratelimit.go -destination=mocks/mocks.go -package=mocks BucketStore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pollbook/internal/ratelimit/middleware/mocks"
	"pollbook/internal/ratelimit/models"
	"pollbook/internal/ratelimit/store/bucket"
	"pollbook/pkg/requestcontext"
)

type RateLimitSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	store  *mocks.MockBucketStore
	reg    *prometheus.Registry
	logger *slog.Logger
	policy models.Policy
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockBucketStore(s.ctrl)
	s.reg = prometheus.NewRegistry()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.policy = models.Policy{Limit: 5, Window: time.Minute}
}

func (s *RateLimitSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RateLimitSuite) serve(ctx context.Context, m *Middleware) (*httptest.ResponseRecorder, bool) {
	called := false
	h := m.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	}))
	req := httptest.NewRequest(http.MethodPost, "/surveys", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, called
}

func (s *RateLimitSuite) TestKeysByIdentityWhenAuthenticated() {
	ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.1", "")
	ctx = requestcontext.WithIdentity(ctx, "GVOTER")
	s.store.EXPECT().Allow(gomock.Any(), "id:GVOTER", 5, time.Minute).
		Return(&models.Result{Allowed: true, Limit: 5, Remaining: 4, ResetAt: time.Unix(2000, 0)}, nil)

	rec, called := s.serve(ctx, New(s.store, s.policy, s.logger, WithMetrics(s.reg)))

	s.True(called)
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("5", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("4", rec.Header().Get("X-RateLimit-Remaining"))
	s.Equal("2000", rec.Header().Get("X-RateLimit-Reset"))
}

func (s *RateLimitSuite) TestKeysByClientIPWhenAnonymous() {
	ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.1", "")
	s.store.EXPECT().Allow(gomock.Any(), "ip:10.0.0.1", 5, time.Minute).
		Return(&models.Result{Allowed: true, Limit: 5, Remaining: 4}, nil)

	_, called := s.serve(ctx, New(s.store, s.policy, s.logger))
	s.True(called)
}

func (s *RateLimitSuite) TestDeniedWrites429() {
	s.store.EXPECT().Allow(gomock.Any(), gomock.Any(), 5, time.Minute).
		Return(&models.Result{Allowed: false, Limit: 5, RetryAfter: 12}, nil)
	m := New(s.store, s.policy, s.logger, WithMetrics(s.reg))

	rec, called := s.serve(requestcontext.WithIdentity(context.Background(), "GVOTER"), m)

	s.False(called)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("12", rec.Header().Get("Retry-After"))
	var body models.ExceededResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("rate_limit_exceeded", body.Error)
	s.Equal(12, body.RetryAfter)
	s.Equal(float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("denied")))
}

func (s *RateLimitSuite) TestStoreErrorLetsRequestThrough() {
	s.store.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down"))
	m := New(s.store, s.policy, s.logger, WithMetrics(s.reg))

	rec, called := s.serve(context.Background(), m)

	s.True(called)
	s.Equal(http.StatusCreated, rec.Code)
	s.Empty(rec.Header().Get("X-RateLimit-Limit"))
	s.Equal(float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("error")))
}

func (s *RateLimitSuite) TestDisabledPolicySkipsStore() {
	m := New(s.store, models.Policy{}, s.logger)
	_, called := s.serve(context.Background(), m)
	s.True(called)

	var nilMiddleware *Middleware
	_, called = s.serve(context.Background(), nilMiddleware)
	s.True(called)
}

func (s *RateLimitSuite) TestWithMemoryStore() {
	now := time.Unix(5000, 0)
	store := bucket.NewInMemoryBucketStore(bucket.WithClock(func() time.Time { return now }))
	m := New(store, models.Policy{Limit: 2, Window: time.Minute}, s.logger)
	ctx := requestcontext.WithIdentity(context.Background(), "GVOTER")

	for range 2 {
		rec, _ := s.serve(ctx, m)
		s.Equal(http.StatusCreated, rec.Code)
	}
	rec, _ := s.serve(ctx, m)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("60", rec.Header().Get("Retry-After"))

	other, _ := s.serve(requestcontext.WithIdentity(context.Background(), "GOTHER"), m)
	s.Equal(http.StatusCreated, other.Code)

	now = now.Add(time.Minute + time.Second)
	rec, _ = s.serve(ctx, m)
	s.Equal(http.StatusCreated, rec.Code)
}
