package tracing

import (
	"context"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/vsinha/prodplan/pkg/infrastructure/config"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

// Shutdown flushes and stops the installed tracer provider
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs a global tracer provider. The OTLP HTTP exporter is used when an
// endpoint is configured, the stdout exporter when cfg.Stdout is set; otherwise the
// global no-op provider stays in place.
func Init(ctx context.Context, cfg config.TracingConfig, env string, log *logger.Logger) (Shutdown, error) {
	log = logger.OrNop(log)

	exporter, err := newExporter(ctx, cfg, os.Stdout)
	if err != nil {
		return noopShutdown, err
	}
	if exporter == nil {
		log.Debug("tracing disabled")
		return noopShutdown, nil
	}

	tp := NewProvider(ctx, cfg, env, exporter, log)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info("tracing initialized", "service", cfg.ServiceName, "endpoint", cfg.OTLPEndpoint, "stdout", cfg.Stdout)
	return tp.Shutdown, nil
}

// NewProvider builds an sdk tracer provider around exporter
func NewProvider(ctx context.Context, cfg config.TracingConfig, env string, exporter sdktrace.SpanExporter, log *logger.Logger) *sdktrace.TracerProvider {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("deployment.environment", env),
		),
	)
	if err != nil {
		logger.OrNop(log).Warn("otel resource init failed (continuing)", "error", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	)
}

func newExporter(ctx context.Context, cfg config.TracingConfig, stdout io.Writer) (sdktrace.SpanExporter, error) {
	if cfg.OTLPEndpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	if cfg.Stdout {
		return stdouttrace.New(stdouttrace.WithWriter(stdout), stdouttrace.WithPrettyPrint())
	}
	return nil, nil
}

func sampleRatio(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}
