package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/projection"
	"github.com/defi-space/indexer/pkg/redis"
)

// RedisRegistrar publishes subscription requests for newly discovered child
// contracts to the subscriptions stream, where the decoder picks them up.
type RedisRegistrar struct {
	Logger *zap.Logger
	Redis  *redis.Client
}

func NewRedisRegistrar(logger *zap.Logger, rdb *redis.Client) *RedisRegistrar {
	return &RedisRegistrar{Logger: logger, Redis: rdb}
}

// RegisterChild enqueues a subscription request. A failed enqueue is the
// subscription manager's problem to reconcile; callers log and move on.
func (r *RedisRegistrar) RegisterChild(ctx context.Context, kind projection.SchemaKind, address string) error {
	id, err := r.Redis.XAdd(ctx, redis.SubscriptionsStream, map[string]interface{}{
		"kind":    string(kind),
		"address": address,
	})
	if err != nil {
		return err
	}
	r.Logger.Info("Registered child contract",
		zap.String("kind", string(kind)),
		zap.String("address", address),
		zap.String("entry_id", id))
	return nil
}
