package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	tp, err := NewTracerProvider(TracingConfig{Enabled: false})
	require.NoError(t, err)

	ctx, span := tp.Tracer().Start(context.Background(), SpanTaskExecute)
	span.SetAttributes(TaskAttrs("task_1", "implementer")...)
	assert.NotNil(t, ctx)
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestUnsupportedExporterRejected(t *testing.T) {
	_, err := NewTracerProvider(TracingConfig{Enabled: true, Exporter: "jaeger"})
	assert.Error(t, err)
}

func TestErrorAttrs(t *testing.T) {
	assert.Nil(t, ErrorAttrs(nil))

	attrs := ErrorAttrs(errors.New("boom"))
	require.Len(t, attrs, 2)
	assert.Equal(t, AttrError, string(attrs[0].Key))
}
