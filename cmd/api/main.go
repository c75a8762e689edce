package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nexusmart/shop/config"
	"github.com/nexusmart/shop/internal/auth"
	"github.com/nexusmart/shop/internal/idempotency"
	"github.com/nexusmart/shop/internal/logging"
	"github.com/nexusmart/shop/internal/messaging"
	"github.com/nexusmart/shop/internal/orders"
	"github.com/nexusmart/shop/internal/telemetry"
)

const serviceName = "api"

func main() {
	cfg, _ := config.Load()
	logger := logging.New(serviceName, cfg.Env, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.AccessTokenSecret == "" {
		return errors.New("auth.access_token_secret is required")
	}

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	st, err := openStores(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	var opts []orders.Option

	if len(cfg.Kafka.Brokers) > 0 {
		producer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer func() { _ = producer.Close() }()
		opts = append(opts, orders.WithPublisher(producer))
	} else {
		logger.Warn("kafka.brokers not set, order events are not published")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		opts = append(opts, orders.WithIdempotency(idempotency.NewRedisStore(client, cfg.Redis.IdempotencyTTL)))
	} else {
		logger.Warn("redis.addr not set, idempotency keys are ignored")
	}

	verifier := auth.NewVerifier(cfg.Auth.AccessTokenSecret, logger)
	mux := newMux(newHandlers(st, logger, opts...), verifier, st.ping, logger)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      http.MaxBytesHandler(telemetry.NewHandler(mux, serviceName), cfg.HTTP.BodyLimit),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting api", "addr", cfg.HTTP.Addr, "database", cfg.Database.Driver)
		return serve(server)
	})
	g.Go(func() error {
		logger.Info("starting metrics server", "addr", cfg.Metrics.Addr)
		return serve(metricsServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(server.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
