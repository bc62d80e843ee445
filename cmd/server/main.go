package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"pollbook/internal/audit"
	jwttoken "pollbook/internal/jwt_token"
	"pollbook/internal/platform/config"
	"pollbook/internal/platform/httpserver"
	kafkaclient "pollbook/internal/platform/kafka"
	"pollbook/internal/platform/logger"
	"pollbook/internal/platform/metrics"
	registryhandler "pollbook/internal/registry/handler"
	registryservice "pollbook/internal/registry/service"
	surveyhandler "pollbook/internal/survey/handler"
	surveymetrics "pollbook/internal/survey/metrics"
	"pollbook/internal/survey/models"
	surveyservice "pollbook/internal/survey/service"
	httptransport "pollbook/internal/transport/http"
	adminmw "pollbook/pkg/platform/middleware/admin"
)

const auditBufferSize = 1024

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("pollbook stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Auth.JWTSigningKey == config.DevJWTSigningKey {
		log.Warn("JWT_SIGNING_KEY is unset; using the development key")
	}

	store, health, err := openLedger(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	auditRing := audit.NewMemoryStore(audit.WithCapacity(cfg.Audit.MemoryEvents))
	auditStore, closeAudit, err := openAuditSink(ctx, cfg, auditRing, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	publisher := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(auditBufferSize))

	reg := prometheus.DefaultRegisterer
	surveys := surveyservice.New(store,
		surveyservice.WithLogger(log),
		surveyservice.WithAuditPublisher(publisher),
		surveyservice.WithMetrics(surveymetrics.New(reg)),
		surveyservice.WithKeyTTL(cfg.Ledger.KeyTTL),
		surveyservice.WithVoteFee(models.NewAmount(cfg.VoteFee)),
	)
	registry := registryservice.New(store,
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(publisher),
		registryservice.WithMetrics(reg),
		registryservice.WithKeyTTL(cfg.Ledger.KeyTTL),
	)

	writeLimit, closeLimiter, err := openWriteLimiter(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTIssuer)
	deps := httptransport.Deps{
		Logger:     log,
		Surveys:    surveyhandler.New(surveys, log, surveyhandler.WithAuditReader(auditRing)),
		Registry:   registryhandler.New(registry, log),
		Tokens:     httptransport.NewTokenHandler(jwtService, cfg.Auth.TokenTTL, log),
		Validator:  jwttoken.NewJWTServiceAdapter(jwtService),
		WriteLimit: writeLimit,
		Metrics:    metrics.New(reg),
		Gatherer:   prometheus.DefaultGatherer,
		Health:     health,
	}
	if cfg.Auth.AdminToken != "" {
		hash, err := adminmw.HashToken(cfg.Auth.AdminToken)
		if err != nil {
			return fmt.Errorf("hash admin token: %w", err)
		}
		deps.AdminTokenHash = hash
	} else {
		log.Warn("ADMIN_TOKEN is unset; /admin routes are disabled")
	}

	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(deps))
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log)

	// the worker outlives the server so events from in-flight requests are flushed
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(workerCtx)
	}()
	defer func() {
		stopWorker()
		<-workerDone
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting pollbook", "addr", cfg.Server.Addr, "ledger", cfg.Ledger.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// openAuditSink returns the bounded in-memory ring, fanned out to Kafka when
// brokers are configured. The ring backs the admin audit route either way.
func openAuditSink(ctx context.Context, cfg config.Config, memory *audit.MemoryStore, log *slog.Logger) (audit.Store, func(), error) {
	client, err := kafkaclient.New(ctx, cfg.Kafka)
	if err != nil {
		return nil, nil, fmt.Errorf("connect kafka: %w", err)
	}
	if client == nil {
		return memory, func() {}, nil
	}

	sink := audit.NewKafkaSink(client, cfg.Kafka.AuditTopic)
	if err := sink.EnsureTopic(ctx, 3, 1); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Info("audit events mirrored to kafka", "topic", cfg.Kafka.AuditTopic, "brokers", cfg.Kafka.Brokers)
	return audit.Multi(memory, sink), client.Close, nil
}
