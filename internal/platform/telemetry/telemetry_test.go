package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), "phishtrace-test", "0.0.1", &buf)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "chain.follow")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"chain.follow"`)
	assert.Contains(t, buf.String(), "phishtrace-test")
}

func TestInit_NilWriterDiscards(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	shutdown, err := Init(context.Background(), "phishtrace-test", "0.0.1", nil)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "hop.fetch")
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}
