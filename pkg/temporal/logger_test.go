package temporal

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogAdapterForwardsKeyvals(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	adapter := NewLogAdapter(zap.New(core))

	adapter.Info("Connected to Temporal", "namespace", "defi-space")
	adapter.Debug("Polling", "queue", "metrics")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "Connected to Temporal", entries[0].Message)
	require.Equal(t, "defi-space", entries[0].ContextMap()["namespace"])
	require.Equal(t, zap.DebugLevel, entries[1].Level)
	require.Equal(t, "metrics", entries[1].ContextMap()["queue"])
}
