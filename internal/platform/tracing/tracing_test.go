package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"warden/internal/platform/config"
)

func TestProviderLogsFailedSpans(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := New(config.TracingConfig{Enabled: true, ServiceName: "warden-test"}, logger)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	_, span := p.Tracer("test").Start(context.Background(), "wallet.transfer_to")
	span.SetAttributes(attribute.String("wallet.id", "w-1"))
	span.RecordError(errors.New("not owner"))
	span.SetStatus(codes.Error, "not owner")
	span.End()

	out := buf.String()
	assert.Contains(t, out, "span failed")
	assert.Contains(t, out, "wallet.transfer_to")
	assert.Contains(t, out, "wallet.id=w-1")
}

func TestDisabledProviderIsInert(t *testing.T) {
	p := New(config.TracingConfig{}, slog.Default())
	_, span := p.Tracer("test").Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	require.NoError(t, p.Shutdown(context.Background()))
}
