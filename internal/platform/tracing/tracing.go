// Package tracing installs the OpenTelemetry tracer provider for the process.
package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"warden/internal/platform/config"
)

// Provider owns the process tracer provider.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// New builds a tracer provider that reports finished spans to logger and
// registers it globally. When tracing is disabled a no-op provider is
// registered instead and the returned Provider is inert.
func New(cfg config.TracingConfig, logger *slog.Logger) *Provider {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(&logSpanProcessor{logger: logger.With("service_name", cfg.ServiceName)}),
	)
	otel.SetTracerProvider(provider)
	return &Provider{provider: provider}
}

// Tracer returns a named tracer from the installed provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil || p.provider == nil {
		return otel.Tracer(name)
	}
	return p.provider.Tracer(name)
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// logSpanProcessor writes one debug line per finished span, or a warn line
// for spans ending in error.
type logSpanProcessor struct {
	logger *slog.Logger
}

func (p *logSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *logSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	attrs := []any{
		"span", span.Name(),
		"trace_id", span.SpanContext().TraceID().String(),
		"duration_ms", span.EndTime().Sub(span.StartTime()).Milliseconds(),
	}
	for _, kv := range span.Attributes() {
		attrs = append(attrs, string(kv.Key), attributeString(kv))
	}
	status := span.Status()
	if status.Code == codes.Error {
		p.logger.Warn("span failed", append(attrs, "error", status.Description)...)
		return
	}
	p.logger.Debug("span finished", attrs...)
}

func (p *logSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p *logSpanProcessor) ForceFlush(context.Context) error { return nil }

func attributeString(kv attribute.KeyValue) string {
	return kv.Value.Emit()
}
