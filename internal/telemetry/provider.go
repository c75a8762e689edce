// Package telemetry wires OpenTelemetry tracing and metrics for the
// nexusmart binaries.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/nexusmart/shop/config"
)

// Setup installs the meter provider and, when enabled, the OTLP tracer
// provider. It returns the /metrics handler and a shutdown func for both.
func Setup(ctx context.Context, serviceName string, cfg config.Telemetry) (http.Handler, func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Enabled {
		shutdownTracer, err := InitTracerProvider(ctx, serviceName, cfg.ServiceVersion, cfg.OTLPEndpoint)
		if err != nil {
			return nil, nil, err
		}
		shutdowns = append(shutdowns, shutdownTracer)
	}

	metricsHandler, shutdownMeter, err := InitMeterProvider(serviceName, cfg.ServiceVersion)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	shutdowns = append(shutdowns, shutdownMeter)

	return metricsHandler, shutdown, nil
}

func newResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}

func InitTracerProvider(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(newResource(serviceName, serviceVersion)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// WithHTTPRoute wraps an http.HandlerFunc to add the http.route attribute
// to the current span using the request's Pattern (Go 1.22+).
// This works around otelhttp not adding the route attribute after routing.
func WithHTTPRoute(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Pattern != "" {
			span := oteltrace.SpanFromContext(r.Context())
			span.SetAttributes(semconv.HTTPRoute(r.Pattern))
		}
		h(w, r)
	}
}

// NewHandler instruments mux with otelhttp, naming spans after the matched
// route pattern.
func NewHandler(mux http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(mux, operation,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	)
}

// NewHTTPClient returns a client whose requests carry the trace context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
