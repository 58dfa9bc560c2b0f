package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConnectReturnsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Connect(context.Background(), zaptest.NewLogger(t), "test", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestConnectStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Connect(ctx, zaptest.NewLogger(t), "test", func() error {
		return errors.New("dial refused")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestJitterStaysNearDelay(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jitter(10 * time.Second)
		require.GreaterOrEqual(t, d, 8500*time.Millisecond)
		require.LessOrEqual(t, d, 11500*time.Millisecond)
	}
}
