package telemetry

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithProfilingLabels(t *testing.T) {
	var route, method string
	var hasEmpty bool
	WithProfilingLabels(context.Background(), map[string]string{
		ProfilingLabelRoute:     "/api/v1/sales/writeoff",
		ProfilingLabelMethod:    "POST",
		ProfilingLabelOperation: "",
	}, func(ctx context.Context) {
		route, _ = pprof.Label(ctx, ProfilingLabelRoute)
		method, _ = pprof.Label(ctx, ProfilingLabelMethod)
		_, hasEmpty = pprof.Label(ctx, ProfilingLabelOperation)
	})

	assert.Equal(t, "/api/v1/sales/writeoff", route)
	assert.Equal(t, "POST", method)
	assert.False(t, hasEmpty)
}

func TestWithProfilingLabels_NoLabels(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(ctx context.Context) {
		called = true
		_, ok := pprof.Label(ctx, ProfilingLabelRoute)
		assert.False(t, ok)
	})
	assert.True(t, called)
}
