// Package tracing configures OpenTelemetry tracing from the standard OTEL_*
// environment variables.
package tracing

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/rs/zerolog/log"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Enabled reports whether an OTLP endpoint is configured and the SDK is not disabled.
func Enabled() bool {
	if os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return false
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" || os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != ""
}

// Init installs a global tracer provider exporting over OTLP. Without an
// endpoint only the propagator is installed. Exporter failures degrade to
// no tracing and are logged, never returned.
func Init(ctx context.Context, serviceName string) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger := log.With().Str("component", "tracing").Logger()

	if !Enabled() {
		logger.Debug().Bool("tracing_enabled", false).Msg("Tracing configured")
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(getEnv("OTEL_SERVICE_NAME", serviceName)),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		if res == nil {
			return nil, fmt.Errorf("create resource: %w", err)
		}
		// detectors may fail individually; res still carries the rest
		logger.Warn().Err(err).Msg("Partial tracing resource")
	}

	protocol := getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")

	var exporter *otlptrace.Exporter
	switch protocol {
	case "grpc":
		exporter, err = otlptracegrpc.New(ctx)
	case "http/protobuf":
		exporter, err = otlptracehttp.New(ctx)
	default:
		err = fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Tracing init failed")
		return noop, nil
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(Sampler(os.Getenv("OTEL_TRACES_SAMPLER"), os.Getenv("OTEL_TRACES_SAMPLER_ARG"))),
	)
	otel.SetTracerProvider(tp)

	logger.Info().
		Bool("tracing_enabled", true).
		Str("otlp_protocol", protocol).
		Str("sampler", getEnv("OTEL_TRACES_SAMPLER", "parentbased_always_on")).
		Msg("Tracing configured")

	return tp.Shutdown, nil
}

// Transport wraps base with client spans. A nil base uses http.DefaultTransport.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base)
}

// Handler wraps h with server spans named operation.
func Handler(h http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(h, operation)
}

// Sampler maps OTEL_TRACES_SAMPLER and its argument to a sampler.
// Unknown names fall back to parentbased_always_on.
func Sampler(name, arg string) trace.Sampler {
	ratio := 1.0
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		ratio = f
	}

	switch name {
	case "always_on":
		return trace.AlwaysSample()
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(ratio)
	case "parentbased_always_off":
		return trace.ParentBased(trace.NeverSample())
	case "parentbased_traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(ratio))
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
