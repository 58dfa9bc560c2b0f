package temporal

import (
	"context"
	"errors"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// Registered workflow names, shared by the worker registration and the
// trigger side.
const (
	AmmMetricsWorkflowName     = "RecalculateAmmMetrics"
	FarmingMetricsWorkflowName = "RecalculateFarmingMetrics"
	FullRecalcWorkflowName     = "FullRecalculation"
)

// AmmMetricsInput scopes an AMM recalculation: a single pair, a whole
// factory, or everything when both fields are empty.
type AmmMetricsInput struct {
	PairAddress    string `json:"pair_address,omitempty"`
	FactoryAddress string `json:"factory_address,omitempty"`
}

// FarmingMetricsInput scopes a farming recalculation the same way.
type FarmingMetricsInput struct {
	ReactorAddress    string `json:"reactor_address,omitempty"`
	PowerplantAddress string `json:"powerplant_address,omitempty"`
}

// Trigger starts metrics workflows without waiting for their result. It
// implements the projection layer's MetricsTrigger.
type Trigger struct {
	Logger *zap.Logger
	Client *Client
}

func NewTrigger(logger *zap.Logger, c *Client) *Trigger {
	return &Trigger{Logger: logger, Client: c}
}

// TriggerAmmMetrics starts a pair-scoped AMM recalculation. A workflow
// already running for the same pair absorbs the trigger.
func (t *Trigger) TriggerAmmMetrics(ctx context.Context, pairAddress string) error {
	opts := client.StartWorkflowOptions{
		ID:        t.Client.GetAmmMetricsWorkflowId(pairAddress),
		TaskQueue: t.Client.MetricsQueue,
	}
	_, err := t.Client.TClient.ExecuteWorkflow(ctx, opts, AmmMetricsWorkflowName, AmmMetricsInput{PairAddress: pairAddress})
	if isAlreadyStarted(err) {
		t.Logger.Debug("AMM metrics workflow already running", zap.String("pair", pairAddress))
		return nil
	}
	return err
}

// TriggerFarmingMetrics starts a reactor-scoped farming recalculation.
func (t *Trigger) TriggerFarmingMetrics(ctx context.Context, reactorAddress string) error {
	opts := client.StartWorkflowOptions{
		ID:        t.Client.GetFarmingMetricsWorkflowId(reactorAddress),
		TaskQueue: t.Client.MetricsQueue,
	}
	_, err := t.Client.TClient.ExecuteWorkflow(ctx, opts, FarmingMetricsWorkflowName, FarmingMetricsInput{ReactorAddress: reactorAddress})
	if isAlreadyStarted(err) {
		t.Logger.Debug("Farming metrics workflow already running", zap.String("reactor", reactorAddress))
		return nil
	}
	return err
}

func isAlreadyStarted(err error) bool {
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	return errors.As(err, &already)
}
