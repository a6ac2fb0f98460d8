package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const meterName = "github.com/sushihentaime/writtenwork/cmd/app"

// telemetry owns the SDK providers installed for the process.
type telemetry struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// newTelemetry builds the meter and tracer providers and installs them globally.
// With the "none" exporter spans and measurements are recorded but never exported.
func newTelemetry(cfg *Config, w io.Writer) (*telemetry, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", "writtenwork"),
		attribute.String("service.version", cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	)

	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	switch cfg.TelemetryExporter {
	case "", "none":
	case "stdout":
		if w == nil {
			w = os.Stdout
		}

		metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, err
		}

		interval := cfg.TelemetryInterval
		if interval <= 0 {
			interval = time.Minute
		}
		metricOpts = append(metricOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval)),
		))

		traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, err
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExporter))
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", cfg.TelemetryExporter)
	}

	t := &telemetry{
		meterProvider:  sdkmetric.NewMeterProvider(metricOpts...),
		tracerProvider: sdktrace.NewTracerProvider(traceOpts...),
	}

	otel.SetMeterProvider(t.meterProvider)
	otel.SetTracerProvider(t.tracerProvider)

	return t, nil
}

// Shutdown flushes pending spans and measurements.
func (t *telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.tracerProvider.Shutdown(ctx),
		t.meterProvider.Shutdown(ctx),
	)
}

type metrics struct {
	mutations metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(meterName)

	mutations, err := meter.Int64Counter("writtenwork.mutations",
		metric.WithDescription("Mutation requests by action and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{mutations: mutations}, nil
}

func (m *metrics) recordMutation(ctx context.Context, action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}
