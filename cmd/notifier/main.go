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

	"golang.org/x/sync/errgroup"

	"github.com/nexusmart/shop/config"
	"github.com/nexusmart/shop/internal/logging"
	"github.com/nexusmart/shop/internal/messaging"
	"github.com/nexusmart/shop/internal/notify"
	"github.com/nexusmart/shop/internal/telemetry"
)

const serviceName = "notifier"

func main() {
	cfg, _ := config.Load()
	logger := logging.New(serviceName, cfg.Env, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("notifier stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	if cfg.Email.ServiceURL == "" {
		return errors.New("email.service_url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	consumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.GroupID)
	defer func() { _ = consumer.Close() }()

	notifier := notify.NewNotifier(cfg.Email.ServiceURL, telemetry.NewHTTPClient(10*time.Second), logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting order notifier", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.OrderTopic)
		err := consumer.Consume(gctx, notifier.Handle)
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
