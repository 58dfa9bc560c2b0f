package activity

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	temporalclient "github.com/defi-space/indexer/pkg/temporal"
)

// RecalculateAmmOutput reports activity timing back to the workflow.
type RecalculateAmmOutput struct {
	DurationMs float64 `json:"durationMs"`
}

// RecalculateFarmingOutput reports activity timing back to the workflow.
type RecalculateFarmingOutput struct {
	DurationMs float64 `json:"durationMs"`
}

// RecalculateAmm refreshes AMM metrics for the requested scope: one pair,
// one factory, or everything when the input is empty.
func (c *Context) RecalculateAmm(ctx context.Context, in temporalclient.AmmMetricsInput) (*RecalculateAmmOutput, error) {
	start := time.Now()

	var err error
	switch {
	case in.PairAddress != "":
		err = c.Engine.RecalculateAmmPair(ctx, in.PairAddress)
	case in.FactoryAddress != "":
		err = c.Engine.RecalculateAmmFactory(ctx, in.FactoryAddress)
	default:
		err = c.Engine.RecalculateAmmAll(ctx)
	}
	if err != nil {
		return nil, temporal.NewApplicationErrorWithCause("failed to recalculate amm metrics", "RecalculateAmmError", err)
	}

	out := &RecalculateAmmOutput{DurationMs: float64(time.Since(start).Milliseconds())}
	c.Logger.Debug("AMM metrics recalculated",
		zap.String("pair", in.PairAddress),
		zap.String("factory", in.FactoryAddress),
		zap.Float64("duration_ms", out.DurationMs))
	return out, nil
}

// RecalculateFarming refreshes farming metrics for the requested scope: one
// reactor, one powerplant, or everything when the input is empty.
func (c *Context) RecalculateFarming(ctx context.Context, in temporalclient.FarmingMetricsInput) (*RecalculateFarmingOutput, error) {
	start := time.Now()

	var err error
	switch {
	case in.ReactorAddress != "":
		err = c.Engine.RecalculateFarmingReactor(ctx, in.ReactorAddress)
	case in.PowerplantAddress != "":
		err = c.Engine.RecalculateFarmingPowerplant(ctx, in.PowerplantAddress)
	default:
		err = c.Engine.RecalculateFarmingAll(ctx)
	}
	if err != nil {
		return nil, temporal.NewApplicationErrorWithCause("failed to recalculate farming metrics", "RecalculateFarmingError", err)
	}

	out := &RecalculateFarmingOutput{DurationMs: float64(time.Since(start).Milliseconds())}
	c.Logger.Debug("Farming metrics recalculated",
		zap.String("reactor", in.ReactorAddress),
		zap.String("powerplant", in.PowerplantAddress),
		zap.Float64("duration_ms", out.DurationMs))
	return out, nil
}
