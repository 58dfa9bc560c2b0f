package types

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/redis"
	"github.com/defi-space/indexer/pkg/store"
)

type App struct {
	Store store.Store
	// RedisClient is optional; without it the websocket endpoint is disabled.
	RedisClient *redis.Client
	Logger      *zap.Logger
	// Server handles incoming client requests.
	Server *http.Server
}

// Start runs the HTTP server until the context is cancelled, then shuts
// everything down.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("Failed to close store", zap.Error(err))
	}

	a.Logger.Info("Query server stopped")
}
