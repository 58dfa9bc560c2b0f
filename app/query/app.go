package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/defi-space/indexer/app/query/types"
	"github.com/defi-space/indexer/pkg/logging"
	"github.com/defi-space/indexer/pkg/redis"
	"github.com/defi-space/indexer/pkg/store/clickhouse"
	"github.com/defi-space/indexer/pkg/utils"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	db, dbErr := clickhouse.New(ctx, logger)
	if dbErr != nil {
		logger.Fatal("Unable to initialize database", zap.Error(dbErr))
	}

	// Redis powers the websocket endpoint; the REST API works without it.
	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "true") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - websocket real-time events will be disabled",
				zap.Error(err))
			redisClient = nil
		}
	} else {
		logger.Info("Redis disabled - websocket real-time events will not be available")
	}

	return &types.App{
		Store:       db,
		RedisClient: redisClient,
		Logger:      logger,
	}
}
