package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"example.com/walklog/internal/config"
	"example.com/walklog/internal/errtrack"
	"example.com/walklog/internal/logging"
	"example.com/walklog/internal/outbox"
	httptransport "example.com/walklog/internal/transport/http"
)

const defaultDLQBatchSize = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.Environment).With(zap.String("service", "walklog-dlqmanager"))
	defer func() { _ = logger.Sync() }()

	if err := errtrack.Init(errtrack.Config{DSN: cfg.SentryDSN, Environment: cfg.Environment, Release: cfg.Release, ServerName: "walklog-dlqmanager"}, logger); err != nil {
		logger.Fatal("init error tracking", zap.Error(err))
	}
	defer errtrack.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay)

	metricsSrv := httptransport.NewMetricsServer(cfg.MetricsAddress, logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := metricsSrv.Run(ctx); err != nil {
			logger.Error("metrics server", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(cfg.DLQPollInterval)
	defer ticker.Stop()

	logger.Info("dlq manager started",
		zap.Duration("interval", cfg.DLQPollInterval),
		zap.Int("max_retries", cfg.DLQMaxRetries),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("dlq manager received shutdown signal")
			wg.Wait()
			return
		case <-ticker.C:
			requeued, err := manager.RunOnce(ctx, defaultDLQBatchSize)
			if err != nil {
				logger.Error("dlq manager run", zap.Error(err))
				errtrack.CaptureException(err, map[string]string{"component": "dlq_manager"})
			} else if requeued > 0 {
				logger.Info("dlq entries re-queued", zap.Int("count", requeued))
			}
		}
	}
}
