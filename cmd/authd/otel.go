package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrEthical07/authcore"
	otelexport "github.com/MrEthical07/authcore/metrics/export/otel"
)

// newMetricExporter pushes over OTLP/HTTP when an endpoint is configured and
// writes JSON to stdout otherwise.
func newMetricExporter(ctx context.Context, endpoint string, stdout io.Writer) (sdkmetric.Exporter, error) {
	if endpoint != "" {
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(endpoint))
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		return exp, nil
	}
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(stdout))
	if err != nil {
		return nil, fmt.Errorf("stdout metric exporter: %w", err)
	}
	return exp, nil
}

// startOTel publishes engine metrics through a global MeterProvider that
// pushes every interval. The returned func flushes and stops it.
func startOTel(ctx context.Context, engine *authcore.Engine, interval time.Duration, endpoint string, stdout io.Writer) (func(context.Context) error, error) {
	exp, err := newMetricExporter(ctx, endpoint, stdout)
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	exporter, err := otelexport.NewOTelExporter(otel.Meter("github.com/MrEthical07/authcore"), engine)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return func(ctx context.Context) error {
		// the provider's final collect still needs the callbacks
		err := provider.Shutdown(ctx)
		_ = exporter.Close()
		return err
	}, nil
}
