package telemetry

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestTracerKeepsStdoutClean(t *testing.T) {
	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	shutdown, err := InitTracer()
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "scan")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	w.Close()
	os.Stdout = orig
	out, err := io.ReadAll(r)
	require.NoError(t, err)

	// stdout carries the JSON event stream; span export must not touch it.
	assert.Empty(t, out)
}
