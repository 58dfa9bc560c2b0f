package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/events"
	"github.com/defi-space/indexer/pkg/store"
)

// SchemaKind tells the registrar which event schema a newly discovered child
// contract emits.
type SchemaKind string

const (
	SchemaPair    SchemaKind = "pair"
	SchemaReactor SchemaKind = "reactor"
)

// Registrar subscribes newly created child contracts (pairs, reactors) so
// their events start flowing into the decoded stream.
type Registrar interface {
	RegisterChild(ctx context.Context, kind SchemaKind, address string) error
}

// MetricsTrigger kicks off asynchronous metrics recalculation. Triggers are
// fire-and-forget: failures are logged by the implementation and never block
// event processing.
type MetricsTrigger interface {
	TriggerAmmMetrics(ctx context.Context, pairAddress string) error
	TriggerFarmingMetrics(ctx context.Context, reactorAddress string) error
}

// Projector applies decoded events to the entity store. One transition
// function per event kind; each is idempotent so redelivered events converge
// on the same state.
type Projector struct {
	Logger   *zap.Logger
	Store    store.Store
	Registry Registrar
	Metrics  MetricsTrigger
}

func New(logger *zap.Logger, st store.Store, registry Registrar, metrics MetricsTrigger) *Projector {
	return &Projector{
		Logger:   logger,
		Store:    st,
		Registry: registry,
		Metrics:  metrics,
	}
}

// Apply dispatches one envelope to its transition function. Unknown kinds are
// skipped with a diagnostic; malformed payloads are returned as errors so the
// consumer can dead-letter them.
func (p *Projector) Apply(ctx context.Context, env *events.Envelope) error {
	switch env.Kind {
	case events.KindFactoryInitialized:
		return apply(ctx, p, env, p.onFactoryInitialized)
	case events.KindPairCreated:
		return apply(ctx, p, env, p.onPairCreated)
	case events.KindOwnerUpdated:
		return apply(ctx, p, env, p.onFactoryOwnerUpdated)
	case events.KindFeesReceiverUpdated:
		return apply(ctx, p, env, p.onFeesReceiverUpdated)
	case events.KindPairClassHashUpdated:
		return apply(ctx, p, env, p.onPairClassHashUpdated)
	case events.KindMint:
		return apply(ctx, p, env, p.onMint)
	case events.KindBurn:
		return apply(ctx, p, env, p.onBurn)
	case events.KindSwap:
		return apply(ctx, p, env, p.onSwap)
	case events.KindSync:
		return apply(ctx, p, env, p.onSync)
	case events.KindSkim:
		return apply(ctx, p, env, p.onSkim)
	case events.KindERC20Recovered:
		return apply(ctx, p, env, p.onERC20Recovered)
	case events.KindPowerplantInitialized:
		return apply(ctx, p, env, p.onPowerplantInitialized)
	case events.KindReactorCreated:
		return apply(ctx, p, env, p.onReactorCreated)
	case events.KindPowerplantOwnershipTransferred:
		return apply(ctx, p, env, p.onPowerplantOwnershipTransferred)
	case events.KindReactorClassHashUpdated:
		return apply(ctx, p, env, p.onReactorClassHashUpdated)
	case events.KindDeposit:
		return apply(ctx, p, env, p.onDeposit)
	case events.KindWithdraw:
		return apply(ctx, p, env, p.onWithdraw)
	case events.KindHarvest:
		return apply(ctx, p, env, p.onHarvest)
	case events.KindRewardAdded:
		return apply(ctx, p, env, p.onRewardAdded)
	case events.KindRewarderAdded:
		return apply(ctx, p, env, p.onRewarderAdded)
	case events.KindRewarderRemoved:
		return apply(ctx, p, env, p.onRewarderRemoved)
	case events.KindUnallocatedRewardsClaimed:
		return apply(ctx, p, env, p.onUnallocatedRewardsClaimed)
	case events.KindReactorOwnershipTransferred:
		return apply(ctx, p, env, p.onReactorOwnershipTransferred)
	case events.KindPenaltyReceiverUpdated:
		return apply(ctx, p, env, p.onPenaltyReceiverUpdated)
	default:
		p.Logger.Warn("Skipping event with unknown kind",
			zap.String("kind", string(env.Kind)),
			zap.String("address", env.Meta.Address),
			zap.Uint64("block", env.Meta.Block))
		return nil
	}
}

// apply decodes the payload into its typed form and runs the transition.
func apply[P any](ctx context.Context, p *Projector, env *events.Envelope, fn func(context.Context, events.Meta, *P) error) error {
	var payload P
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload at block %d: %w", env.Kind, env.Meta.Block, err)
	}
	return fn(ctx, env.Meta, &payload)
}

// skipMissing logs and swallows a missing-parent error. Events for parents
// this deployment never indexed are diagnostics, not failures.
func (p *Projector) skipMissing(err error, entity, address string, meta events.Meta) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		p.Logger.Warn("Skipping event, parent entity not found",
			zap.String("entity", entity),
			zap.String("address", address),
			zap.Uint64("block", meta.Block),
			zap.Uint32("event_index", meta.EventIndex))
		return true, nil
	}
	return false, err
}

// triggerAmm fires pair-scoped metrics recalculation without blocking.
func (p *Projector) triggerAmm(ctx context.Context, pairAddress string) {
	if p.Metrics == nil {
		return
	}
	if err := p.Metrics.TriggerAmmMetrics(ctx, pairAddress); err != nil {
		p.Logger.Warn("Failed to trigger amm metrics", zap.String("pair", pairAddress), zap.Error(err))
	}
}

// triggerFarming fires reactor-scoped metrics recalculation without blocking.
func (p *Projector) triggerFarming(ctx context.Context, reactorAddress string) {
	if p.Metrics == nil {
		return
	}
	if err := p.Metrics.TriggerFarmingMetrics(ctx, reactorAddress); err != nil {
		p.Logger.Warn("Failed to trigger farming metrics", zap.String("reactor", reactorAddress), zap.Error(err))
	}
}
