package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/events"
	"github.com/defi-space/indexer/pkg/projection"
	"github.com/defi-space/indexer/pkg/redis"
	"github.com/defi-space/indexer/pkg/utils"
)

const (
	// DeadLetterStream receives entries whose payload could not be decoded
	// or whose transition failed permanently.
	DeadLetterStream = "events:dead"

	payloadField = "payload"
)

// Consumer reads decoded events from the Redis stream, applies them through
// the projector and acknowledges them. Delivery is at-least-once; the
// projector's transitions are idempotent so redelivery is harmless.
type Consumer struct {
	Logger    *zap.Logger
	Redis     *redis.Client
	Projector *projection.Projector

	group     string
	name      string
	batchSize int64
	blockFor  time.Duration
}

// NewConsumer builds a consumer from the environment.
// Environment variables:
//   - DISPATCH_GROUP: consumer group name (default: "projection")
//   - DISPATCH_CONSUMER: consumer name within the group (default: hostname)
//   - DISPATCH_BATCH_SIZE: entries per read (default: 100)
//   - DISPATCH_BLOCK_MS: read block timeout in milliseconds (default: 5000)
func NewConsumer(logger *zap.Logger, rdb *redis.Client, projector *projection.Projector) *Consumer {
	name := utils.Env("DISPATCH_CONSUMER", "")
	if name == "" {
		host, err := os.Hostname()
		if err != nil {
			host = fmt.Sprintf("consumer-%d", os.Getpid())
		}
		name = host
	}
	return &Consumer{
		Logger:    logger,
		Redis:     rdb,
		Projector: projector,
		group:     utils.Env("DISPATCH_GROUP", "projection"),
		name:      name,
		batchSize: utils.EnvInt64("DISPATCH_BATCH_SIZE", 100),
		blockFor:  time.Duration(utils.EnvInt("DISPATCH_BLOCK_MS", 5000)) * time.Millisecond,
	}
}

// Run consumes the decoded-event stream until the context is cancelled. On
// startup it first drains entries this consumer read but never acknowledged.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.Redis.XGroupCreateMkStream(ctx, redis.DecodedEventsStream, c.group, "0"); err != nil {
		return fmt.Errorf("create consumer group %s: %w", c.group, err)
	}

	c.Logger.Info("Event consumer started",
		zap.String("stream", redis.DecodedEventsStream),
		zap.String("group", c.group),
		zap.String("consumer", c.name))

	// Re-process entries this consumer read but never acknowledged.
	for {
		n, err := c.drain(ctx, "0")
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
	}

	for {
		if _, err := c.drain(ctx, ">"); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// drain performs one blocking read and processes every entry it returns.
func (c *Consumer) drain(ctx context.Context, lastID string) (int, error) {
	streams, err := c.Redis.XReadGroup(ctx, c.group, c.name,
		[]string{redis.DecodedEventsStream}, []string{lastID}, c.batchSize, c.blockFor)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	processed := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if err := c.handle(ctx, msg.ID, msg.Values); err != nil {
				return processed, err
			}
			processed++
		}
	}
	return processed, nil
}

// handle processes a single stream entry. Decode and transition failures are
// dead-lettered and acknowledged so one bad event cannot wedge the stream;
// store outages propagate so the entry stays pending and is retried.
func (c *Consumer) handle(ctx context.Context, id string, values map[string]interface{}) error {
	raw, ok := values[payloadField].(string)
	if !ok {
		c.Logger.Error("Stream entry missing payload field", zap.String("entry_id", id))
		return c.deadLetter(ctx, id, values, fmt.Errorf("missing %s field", payloadField))
	}

	var env events.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.Logger.Error("Failed to decode event envelope",
			zap.String("entry_id", id),
			zap.Error(err))
		return c.deadLetter(ctx, id, values, err)
	}

	if err := c.Projector.Apply(ctx, &env); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Error("Failed to apply event",
			zap.String("kind", string(env.Kind)),
			zap.String("address", env.Meta.Address),
			zap.Uint64("block", env.Meta.Block),
			zap.Error(err))
		return c.deadLetter(ctx, id, values, err)
	}

	if _, err := c.Redis.XAck(ctx, redis.DecodedEventsStream, c.group, id); err != nil {
		return fmt.Errorf("ack entry %s: %w", id, err)
	}

	// Fan out to websocket subscribers. Best effort.
	c.Redis.Publish(ctx, redis.ProjectedEventsChannel, raw)
	return nil
}

// deadLetter copies the entry to the dead-letter stream and acknowledges the
// original so the group can make progress.
func (c *Consumer) deadLetter(ctx context.Context, id string, values map[string]interface{}, cause error) error {
	dead := make(map[string]interface{}, len(values)+2)
	for k, v := range values {
		dead[k] = v
	}
	dead["origin_id"] = id
	dead["error"] = cause.Error()

	if _, err := c.Redis.XAdd(ctx, DeadLetterStream, dead); err != nil {
		return fmt.Errorf("dead-letter entry %s: %w", id, err)
	}
	if _, err := c.Redis.XAck(ctx, redis.DecodedEventsStream, c.group, id); err != nil {
		return fmt.Errorf("ack entry %s: %w", id, err)
	}
	return nil
}
