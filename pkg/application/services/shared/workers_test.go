package shared

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach_VisitsEveryIndex(t *testing.T) {
	out := make([]int, 50)
	err := ForEach(context.Background(), len(out), 4, func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestForEach_ReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	err := ForEach(context.Background(), 10, 1, func(_ context.Context, i int) error {
		calls.Add(1)
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, calls.Load(), int32(10))
}

func TestForEach_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ForEach(ctx, 5, 2, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerLimit(t *testing.T) {
	assert.Equal(t, 3, WorkerLimit(3))
	assert.GreaterOrEqual(t, WorkerLimit(0), 1)
}
