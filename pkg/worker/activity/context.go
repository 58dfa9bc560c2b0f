package activity

import (
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/metrics"
	"github.com/defi-space/indexer/pkg/redis"
	"github.com/defi-space/indexer/pkg/store"
)

// Context carries the shared dependencies every activity needs.
type Context struct {
	Logger *zap.Logger
	Store  store.Store
	Engine *metrics.Engine
	// For publishing real-time events
	RedisClient *redis.Client
}
