package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pollbook/internal/platform/metrics"
	ratelimitmw "pollbook/internal/ratelimit/middleware"
	registryhandler "pollbook/internal/registry/handler"
	surveyhandler "pollbook/internal/survey/handler"
	"pollbook/pkg/platform/httputil"
	adminmw "pollbook/pkg/platform/middleware/admin"
	authmw "pollbook/pkg/platform/middleware/auth"
	"pollbook/pkg/platform/middleware/metadata"
	"pollbook/pkg/platform/middleware/request"
	"pollbook/pkg/platform/middleware/requesttime"
)

const defaultRequestTimeout = 30 * time.Second

// Deps is everything the router mounts. Nil optional fields switch the
// matching routes off.
type Deps struct {
	Logger    *slog.Logger
	Surveys   *surveyhandler.Handler
	Registry  *registryhandler.Handler
	Tokens    *TokenHandler
	Validator authmw.TokenValidator

	// WriteLimit throttles authenticated writes; nil disables it.
	WriteLimit *ratelimitmw.Middleware

	// AdminTokenHash enables /admin routes.
	AdminTokenHash []byte
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Health         func(ctx context.Context) error
	Clock          func() time.Time
	RequestTimeout time.Duration
}

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(deps.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.MiddlewareWithClock(clock))
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(request.Timeout(timeout))

	r.Get("/health", handleHealth(deps.Health))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := authmw.RequireAuth(deps.Validator, deps.Logger)
	guardWrite := func(next http.Handler) http.Handler {
		return requireAuth(deps.WriteLimit.Limit(next))
	}
	deps.Surveys.Register(r, guardWrite)
	deps.Registry.Register(r, guardWrite)

	if len(deps.AdminTokenHash) > 0 {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(deps.AdminTokenHash, deps.Logger))
			if deps.Tokens != nil {
				r.Post("/admin/tokens", deps.Tokens.HandleIssue)
			}
			r.With(requireAuth).Group(deps.Surveys.RegisterAdmin)
		})
	}
	return r
}

func handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
