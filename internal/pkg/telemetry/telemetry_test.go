package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitDisabledInstallsNoop(t *testing.T) {
	require.NoError(t, Init(context.Background(), Config{}))

	_, span := Start(context.Background(), "submit")
	assert.False(t, span.SpanContext().IsValid())
	End(span, errors.New("ignored"))
	Shutdown(context.Background())
}

func TestEndRecordsErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	_, ok := Start(context.Background(), "approve", attribute.String("unit", "Library"))
	End(ok, nil)
	_, failed := Start(context.Background(), "reject")
	End(failed, errors.New("track is already Approved"))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "clearance.approve", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("unit", "Library"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "clearance.reject", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "track is already Approved", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}
