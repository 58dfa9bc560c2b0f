package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/defi-space/indexer/pkg/worker/activity"

	temporalclient "github.com/defi-space/indexer/pkg/temporal"
)

// metricsActivityOptions returns the options shared by all recalculation
// activities. Recalculation is idempotent so retries are safe.
func metricsActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
}

// RecalculateAmmMetrics refreshes AMM metrics for the scope carried in the
// input.
func (wc *Context) RecalculateAmmMetrics(ctx workflow.Context, in temporalclient.AmmMetricsInput) error {
	ctx = workflow.WithActivityOptions(ctx, metricsActivityOptions())

	var out activity.RecalculateAmmOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.RecalculateAmm, in).Get(ctx, &out); err != nil {
		return err
	}

	workflow.GetLogger(ctx).Debug("AMM metrics workflow complete",
		"pair", in.PairAddress,
		"factory", in.FactoryAddress,
		"durationMs", out.DurationMs)
	return nil
}

// RecalculateFarmingMetrics refreshes farming metrics for the scope carried
// in the input.
func (wc *Context) RecalculateFarmingMetrics(ctx workflow.Context, in temporalclient.FarmingMetricsInput) error {
	ctx = workflow.WithActivityOptions(ctx, metricsActivityOptions())

	var out activity.RecalculateFarmingOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.RecalculateFarming, in).Get(ctx, &out); err != nil {
		return err
	}

	workflow.GetLogger(ctx).Debug("Farming metrics workflow complete",
		"reactor", in.ReactorAddress,
		"powerplant", in.PowerplantAddress,
		"durationMs", out.DurationMs)
	return nil
}

// FullRecalculation refreshes every pair and every reactor. Scheduled
// periodically so derived values converge even when triggers were lost.
func (wc *Context) FullRecalculation(ctx workflow.Context) error {
	ctx = workflow.WithActivityOptions(ctx, metricsActivityOptions())

	ammFuture := workflow.ExecuteActivity(ctx, wc.ActivityContext.RecalculateAmm, temporalclient.AmmMetricsInput{})
	farmingFuture := workflow.ExecuteActivity(ctx, wc.ActivityContext.RecalculateFarming, temporalclient.FarmingMetricsInput{})

	var ammOut activity.RecalculateAmmOutput
	if err := ammFuture.Get(ctx, &ammOut); err != nil {
		return err
	}
	var farmingOut activity.RecalculateFarmingOutput
	if err := farmingFuture.Get(ctx, &farmingOut); err != nil {
		return err
	}

	workflow.GetLogger(ctx).Info("Full recalculation complete",
		"ammMs", ammOut.DurationMs,
		"farmingMs", farmingOut.DurationMs)
	return nil
}
