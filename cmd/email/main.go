package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexusmart/shop/config"
	"github.com/nexusmart/shop/internal/email"
	"github.com/nexusmart/shop/internal/logging"
	"github.com/nexusmart/shop/internal/telemetry"
)

const serviceName = "email"

func main() {
	cfg, _ := config.Load()
	logger := logging.New(serviceName, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			logger.Error("failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	handler := email.NewHandler(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", telemetry.WithHTTPRoute(handler.HandleSend))

	server := &http.Server{
		Addr:         cfg.Email.Addr,
		Handler:      http.MaxBytesHandler(telemetry.NewHandler(mux, serviceName), cfg.HTTP.BodyLimit),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("starting email service", "addr", cfg.Email.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
