package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pollbook/internal/platform/config"
	redisclient "pollbook/internal/platform/redis"
	ratelimitmw "pollbook/internal/ratelimit/middleware"
	"pollbook/internal/ratelimit/models"
	"pollbook/internal/ratelimit/store/bucket"
)

const bucketSweepInterval = 5 * time.Minute

// openWriteLimiter picks a Redis bucket store when Redis is configured so
// replicas share budgets, and an in-process store otherwise.
func openWriteLimiter(ctx context.Context, cfg config.Config, reg prometheus.Registerer, log *slog.Logger) (*ratelimitmw.Middleware, func(), error) {
	policy := models.Policy{Limit: cfg.RateLimit.Writes, Window: cfg.RateLimit.Window}
	if !policy.Enabled() {
		return ratelimitmw.New(nil, policy, log), func() {}, nil
	}

	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rate limit redis: %w", err)
	}
	if client != nil {
		log.Info("write rate limit ready", "store", "redis", "limit", policy.Limit, "window", policy.Window)
		closeFn := func() { _ = client.Close() }
		return ratelimitmw.New(bucket.NewRedis(client.Client), policy, log, ratelimitmw.WithMetrics(reg)), closeFn, nil
	}

	store := bucket.NewInMemoryBucketStore()
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go store.RunSweeper(sweepCtx, bucketSweepInterval)
	log.Info("write rate limit ready", "store", "memory", "limit", policy.Limit, "window", policy.Window)
	return ratelimitmw.New(store, policy, log, ratelimitmw.WithMetrics(reg)), stopSweep, nil
}
