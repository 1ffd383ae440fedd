package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/walklog/internal/api"
	"example.com/walklog/internal/auth"
	"example.com/walklog/internal/config"
	"example.com/walklog/internal/consumer"
	"example.com/walklog/internal/credentials"
	"example.com/walklog/internal/domain"
	"example.com/walklog/internal/errtrack"
	"example.com/walklog/internal/logging"
	"example.com/walklog/internal/outbox"
	"example.com/walklog/internal/persistence/migrations"
	"example.com/walklog/internal/persistence/postgres"
	"example.com/walklog/internal/realtime"
	"example.com/walklog/internal/reconcile"
	"example.com/walklog/internal/strava"
	"example.com/walklog/internal/subscription"
	httptransport "example.com/walklog/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.Environment).With(zap.String("service", "walklog-api"))
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		errtrack.CaptureException(err, map[string]string{"component": "startup"})
		errtrack.Flush(2 * time.Second)
		logger.Fatal("walklog api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateStrava(); err != nil {
		return err
	}
	if err := errtrack.Init(errtrack.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		ServerName:  "walklog-api",
	}, logger); err != nil {
		return err
	}
	defer errtrack.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := migrations.Up(cfg.PostgresURL, logger.Named("migrations")); err != nil {
			return err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	credentialRepo := postgres.NewCredentialRepository(pool)
	walkRepo := postgres.NewWalkRepository(pool, cfg.WalkEventsTopic)
	badges := postgres.NewBadgeEvaluator(pool, logger.Named("badges"))

	client := strava.NewClient(strava.Config{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		RedirectURL:  cfg.StravaRedirectURL,
		AuthURL:      cfg.StravaAuthURL,
		TokenURL:     cfg.StravaTokenURL,
		APIBaseURL:   cfg.StravaAPIBaseURL,
		Timeout:      cfg.StravaHTTPTimeout,
	})
	refresher := credentials.NewRefresher(credentialRepo, client,
		credentials.WithMargin(cfg.TokenRefreshMargin),
		credentials.WithLogger(logger.Named("credentials")),
	)
	engine := reconcile.NewEngine(credentialRepo, refresher, client, walkRepo, badges,
		reconcile.WithLogger(logger.Named("reconcile")),
		reconcile.WithBadgeTimeout(cfg.BadgeEvalTimeout),
	)

	nonces, closeNonces, err := newNonceStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeNonces()
	states := auth.NewStateCodec(cfg.JWTSecret, cfg.OAuthStateTTL, nonces)
	connections := domain.NewConnectionService(credentialRepo, client, states)

	hub := realtime.NewHub(0)
	defer hub.Close()

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, outbox.WithProducerLogger(logger.Named("kafka")))
	defer producer.Close()
	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
		outbox.WithLogger(logger.Named("outbox")),
	)
	go dispatcher.Start(ctx)

	var wg sync.WaitGroup
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     realtimeGroupID(cfg.RealtimeGroupID),
		Topic:       cfg.WalkEventsTopic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
	})
	proc := consumer.NewProcessor(reader, realtime.NewEventHandler(hub), consumer.WithLogger(logger.Named("realtime")))
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()
		if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime consumer stopped", zap.Error(err))
		}
	}()

	handler := api.NewHandler(api.Deps{
		Reconciler:    engine,
		Notifications: postgres.NewNotificationLog(pool),
		Verifier:      subscription.NewVerifier(cfg.StravaVerifyToken),
		Connections:   connections,
		Walks:         walkRepo,
		Editor:        walkRepo,
		Realtime:      hub,
		Auth:          auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		AppBaseURL:    cfg.AppBaseURL,
		CORSOrigins:   cfg.CORSOrigins,
	}, api.WithLogger(logger.Named("api")))

	router := handler.Routes()
	router.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), router, logger)
	serveErr := server.Run(ctx)

	stop()
	hub.Close()
	dispatcher.Wait()
	wg.Wait()
	return serveErr
}

// newNonceStore uses Redis when configured so OAuth states survive across replicas.
func newNonceStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (auth.NonceStore, func(), error) {
	if cfg.RedisAddress == "" {
		logger.Warn("REDIS_ADDRESS not set, OAuth state nonces are kept in memory")
		return auth.NewMemoryNonceStore(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress, Password: cfg.RedisPassword})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return auth.NewRedisNonceStore(client), func() { _ = client.Close() }, nil
}

// realtimeGroupID gives every API replica its own consumer group so each one
// sees every walk event.
func realtimeGroupID(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = fmt.Sprintf("pid-%d", os.Getpid())
	}
	return prefix + "-" + host
}
