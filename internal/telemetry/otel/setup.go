// Package otel wires OpenTelemetry trace, metric, and log providers with
// OTLP gRPC exporters for the attendance server.
package otel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

const metricExportInterval = 10 * time.Second

// Providers bundles the three signal providers with a combined shutdown.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// NewProviders builds providers exporting to the OTLP gRPC endpoint. An empty
// endpoint yields no-op providers so local runs need no collector. An https
// scheme enables TLS unless insecureOverride is set.
func NewProviders(ctx context.Context, endpoint, serviceName string, insecureOverride bool) (*Providers, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return noopProviders(), nil
	}

	target, insecure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if insecureOverride {
		insecure = true
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	p := &Providers{}
	var closers []func(context.Context) error
	cleanup := func() {
		for _, c := range closers {
			_ = c(ctx)
		}
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOptions(target, insecure)...)
	if err != nil {
		return nil, err
	}
	p.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	closers = append(closers, p.TracerProvider.Shutdown)

	metricExp, err := otlpmetricgrpc.New(ctx, metricOptions(target, insecure)...)
	if err != nil {
		cleanup()
		return nil, err
	}
	p.MeterProvider = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExp, metric.WithInterval(metricExportInterval))),
	)
	closers = append(closers, p.MeterProvider.Shutdown)

	logExp, err := otlploggrpc.New(ctx, logOptions(target, insecure)...)
	if err != nil {
		cleanup()
		return nil, err
	}
	p.LoggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	closers = append(closers, p.LoggerProvider.Shutdown)

	p.Shutdown = func(ctx context.Context) error {
		var lastErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil {
				lastErr = err
			}
		}
		return lastErr
	}
	return p, nil
}

// SetGlobal installs the trace and meter providers globally. The logger
// provider is handed to interested components directly.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}

func noopProviders() *Providers {
	return &Providers{
		TracerProvider: sdktrace.NewTracerProvider(),
		MeterProvider:  metric.NewMeterProvider(),
		LoggerProvider: sdklog.NewLoggerProvider(),
		Shutdown:       func(context.Context) error { return nil },
	}
}

// parseEndpoint reduces the configured endpoint to the host:port the gRPC
// exporters expect. Paths are dropped; a bare host:port is accepted as-is.
func parseEndpoint(endpoint string) (target string, insecure bool, err error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "https", nil
}

func traceOptions(target string, insecure bool) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

func metricOptions(target string, insecure bool) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts
}

func logOptions(target string, insecure bool) []otlploggrpc.Option {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	return opts
}
