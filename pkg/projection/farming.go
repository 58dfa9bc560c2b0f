package projection

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/events"
	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

func (p *Projector) onPowerplantInitialized(ctx context.Context, meta events.Meta, payload *events.PowerplantInitializedPayload) error {
	powerplant := &models.Powerplant{
		Address:             meta.Address,
		ReactorCount:        0,
		TotalValueLockedUSD: decimal.Zero,
		Owner:               payload.Owner,
		ReactorClassHash:    payload.ReactorClassHash,
		ConfigHistory:       []models.ConfigChange{},
		CreatedAt:           meta.Timestamp,
		UpdatedAt:           meta.Timestamp,
	}
	if err := p.Store.InsertPowerplant(ctx, powerplant); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Expected under at-least-once delivery; anything else redelivering
			// a creation event is worth noticing.
			p.Logger.Warn("Powerplant already exists, replay ignored", zap.String("address", meta.Address))
			return nil
		}
		return err
	}
	p.Logger.Info("Powerplant initialized", zap.String("address", meta.Address), zap.String("owner", payload.Owner))
	return nil
}

func (p *Projector) onReactorCreated(ctx context.Context, meta events.Meta, payload *events.ReactorCreatedPayload) error {
	powerplant, err := p.Store.GetPowerplant(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "powerplant", meta.Address, meta); skipped || err != nil {
		return err
	}

	// Registration failure belongs to the subscription manager's failure
	// domain; the reactor row is written regardless.
	if p.Registry != nil {
		if err := p.Registry.RegisterChild(ctx, SchemaReactor, payload.Reactor); err != nil {
			p.Logger.Warn("Failed to register reactor subscription",
				zap.String("reactor", payload.Reactor),
				zap.Error(err))
		}
	}

	reactor := &models.Reactor{
		Address:             payload.Reactor,
		PowerplantAddress:   meta.Address,
		LPTokenAddress:      payload.LPTokenAddress,
		ReactorIndex:        payload.ReactorIndex,
		Owner:               powerplant.Owner,
		TotalStaked:         decimal.Zero,
		Multiplier:          payload.Multiplier,
		Locked:              false,
		PenaltyDuration:     payload.PenaltyDuration,
		WithdrawPenalty:     payload.WithdrawPenalty,
		PenaltyReceiver:     payload.PenaltyReceiver,
		AuthorizedRewarders: []string{},
		ConfigHistory:       []models.ConfigChange{},
		ActiveRewards:       map[string]models.RewardState{},
		CreatedAt:           meta.Timestamp,
		UpdatedAt:           meta.Timestamp,
	}
	if err := p.Store.InsertReactor(ctx, reactor); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return err
		}
		p.Logger.Warn("Reactor already exists, replay ignored", zap.String("reactor", reactor.Address))
	}

	powerplant.ReactorCount++
	powerplant.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdatePowerplant(ctx, powerplant); err != nil {
		return err
	}

	p.Logger.Info("Reactor created",
		zap.String("reactor", payload.Reactor),
		zap.String("powerplant", meta.Address),
		zap.String("lp_token", payload.LPTokenAddress))
	return nil
}

func (p *Projector) onDeposit(ctx context.Context, meta events.Meta, payload *events.DepositPayload) error {
	reactor, err := p.Store.GetReactor(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "reactor", meta.Address, meta); skipped || err != nil {
		return err
	}

	// The event carries the authoritative pool total.
	reactor.TotalStaked = payload.TotalStaked
	reactor.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateReactor(ctx, reactor); err != nil {
		return err
	}

	stake, err := p.Store.GetUserStake(ctx, meta.Address, payload.UserAddress)
	switch {
	case errors.Is(err, store.ErrNotFound):
		stake = &models.UserStake{
			ReactorAddress:     meta.Address,
			UserAddress:        payload.UserAddress,
			StakedAmount:       payload.StakedAmount,
			PenaltyEndTime:     payload.PenaltyEndTime,
			RewardPerTokenPaid: map[string]decimal.Decimal{},
			Rewards:            map[string]decimal.Decimal{},
			CreatedAt:          meta.Timestamp,
			UpdatedAt:          meta.Timestamp,
		}
		if err := p.Store.InsertUserStake(ctx, stake); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		stake.StakedAmount = stake.StakedAmount.Add(payload.StakedAmount)
		stake.PenaltyEndTime = payload.PenaltyEndTime
		stake.UpdatedAt = meta.Timestamp
		if err := p.Store.UpdateUserStake(ctx, stake); err != nil {
			return err
		}
	}

	if err := p.Store.InsertStakeEvent(ctx, &models.StakeEvent{
		ReactorAddress: meta.Address,
		Block:          meta.Block,
		EventIndex:     meta.EventIndex,
		TxHash:         meta.TxHash,
		EventType:      models.StakeEventDeposit,
		UserAddress:    payload.UserAddress,
		StakedAmount:   payload.StakedAmount,
		PenaltyAmount:  decimal.Zero,
		CreatedAt:      meta.Timestamp,
	}); err != nil {
		return err
	}

	p.triggerFarming(ctx, meta.Address)
	return nil
}

func (p *Projector) onWithdraw(ctx context.Context, meta events.Meta, payload *events.WithdrawPayload) error {
	reactor, err := p.Store.GetReactor(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "reactor", meta.Address, meta); skipped || err != nil {
		return err
	}

	reactor.TotalStaked = reactor.TotalStaked.Sub(payload.StakedAmount)
	reactor.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateReactor(ctx, reactor); err != nil {
		return err
	}

	stake, err := p.Store.GetUserStake(ctx, meta.Address, payload.UserAddress)
	if errors.Is(err, store.ErrNotFound) {
		p.Logger.Warn("Stake not found for withdraw",
			zap.String("reactor", meta.Address),
			zap.String("user", payload.UserAddress),
			zap.Uint64("block", meta.Block))
		return nil
	}
	if err != nil {
		return err
	}

	stake.StakedAmount = stake.StakedAmount.Sub(payload.StakedAmount)
	stake.PenaltyEndTime = payload.PenaltyEndTime
	stake.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateUserStake(ctx, stake); err != nil {
		return err
	}

	if err := p.Store.InsertStakeEvent(ctx, &models.StakeEvent{
		ReactorAddress: meta.Address,
		Block:          meta.Block,
		EventIndex:     meta.EventIndex,
		TxHash:         meta.TxHash,
		EventType:      models.StakeEventWithdraw,
		UserAddress:    payload.UserAddress,
		StakedAmount:   payload.StakedAmount,
		PenaltyAmount:  payload.PenaltyAmount,
		CreatedAt:      meta.Timestamp,
	}); err != nil {
		return err
	}

	p.triggerFarming(ctx, meta.Address)
	return nil
}

func (p *Projector) onHarvest(ctx context.Context, meta events.Meta, payload *events.HarvestPayload) error {
	stake, err := p.Store.GetUserStake(ctx, meta.Address, payload.UserAddress)
	if skipped, err := p.skipMissing(err, "stake", meta.Address+"/"+payload.UserAddress, meta); skipped || err != nil {
		return err
	}
	if _, err := p.Store.GetReactor(ctx, meta.Address); err != nil {
		if skipped, err := p.skipMissing(err, "reactor", meta.Address, meta); skipped || err != nil {
			return err
		}
	}

	if stake.RewardPerTokenPaid == nil {
		stake.RewardPerTokenPaid = map[string]decimal.Decimal{}
	}
	stake.RewardPerTokenPaid[payload.RewardToken] = payload.RewardPerTokenStored
	if _, ok := stake.Rewards[payload.RewardToken]; ok {
		stake.Rewards[payload.RewardToken] = decimal.Zero
	}
	stake.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateUserStake(ctx, stake); err != nil {
		return err
	}

	return p.Store.InsertRewardEvent(ctx, &models.RewardEvent{
		ReactorAddress: meta.Address,
		Block:          meta.Block,
		EventIndex:     meta.EventIndex,
		TxHash:         meta.TxHash,
		EventType:      models.RewardEventHarvest,
		UserAddress:    payload.UserAddress,
		RewardToken:    payload.RewardToken,
		RewardAmount:   payload.RewardAmount,
		CreatedAt:      meta.Timestamp,
	})
}

func (p *Projector) onRewardAdded(ctx context.Context, meta events.Meta, payload *events.RewardAddedPayload) error {
	reactor, err := p.Store.GetReactor(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "reactor", meta.Address, meta); skipped || err != nil {
		return err
	}

	if reactor.ActiveRewards == nil {
		reactor.ActiveRewards = map[string]models.RewardState{}
	}
	// Whole schedule is replaced per token; a replay lands on the same state.
	reactor.ActiveRewards[payload.RewardToken] = models.RewardState{
		Rate:                 payload.RewardRate,
		RewardAmount:         payload.RewardAmount,
		Duration:             payload.RewardDuration,
		PeriodFinish:         payload.PeriodFinish,
		RewardPerTokenStored: payload.RewardPerTokenStored,
	}
	reactor.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateReactor(ctx, reactor); err != nil {
		return err
	}

	return p.Store.InsertRewardEvent(ctx, &models.RewardEvent{
		ReactorAddress: meta.Address,
		Block:          meta.Block,
		EventIndex:     meta.EventIndex,
		TxHash:         meta.TxHash,
		EventType:      models.RewardEventRewardAdded,
		UserAddress:    payload.Rewarder,
		RewardToken:    payload.RewardToken,
		RewardAmount:   payload.RewardAmount,
		RewardRate:     payload.RewardRate,
		RewardDuration: payload.RewardDuration,
		PeriodFinish:   payload.PeriodFinish,
		CreatedAt:      meta.Timestamp,
	})
}

func (p *Projector) onRewarderAdded(ctx context.Context, meta events.Meta, payload *events.RewarderPayload) error {
	reactor, err := p.Store.GetReactor(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "reactor", meta.Address, meta); skipped || err != nil {
		return err
	}

	found := false
	for _, r := range reactor.AuthorizedRewarders {
		if r == payload.Rewarder {
			found = true
			break
		}
	}
	if !found {
		reactor.AuthorizedRewarders = append(reactor.AuthorizedRewarders, payload.Rewarder)
	}
	reactor.UpdatedAt = meta.Timestamp
	return p.Store.UpdateReactor(ctx, reactor)
}

func (p *Projector) onRewarderRemoved(ctx context.Context, meta events.Meta, payload *events.RewarderPayload) error {
	reactor, err := p.Store.GetReactor(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "reactor", meta.Address, meta); skipped || err != nil {
		return err
	}

	kept := reactor.AuthorizedRewarders[:0]
	for _, r := range reactor.AuthorizedRewarders {
		if r != payload.Rewarder {
			kept = append(kept, r)
		}
	}
	reactor.AuthorizedRewarders = kept
	reactor.UpdatedAt = meta.Timestamp
	return p.Store.UpdateReactor(ctx, reactor)
}

func (p *Projector) onUnallocatedRewardsClaimed(ctx context.Context, meta events.Meta, payload *events.UnallocatedRewardsClaimedPayload) error {
	reactor, err := p.Store.GetReactor(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "reactor", meta.Address, meta); skipped || err != nil {
		return err
	}

	if state, ok := reactor.ActiveRewards[payload.RewardToken]; ok {
		unallocated := payload.UnallocatedRewards
		state.Unallocated = &unallocated
		reactor.ActiveRewards[payload.RewardToken] = state
	}
	reactor.UpdatedAt = meta.Timestamp
	return p.Store.UpdateReactor(ctx, reactor)
}

// Powerplant and reactor config events

func (p *Projector) onPowerplantOwnershipTransferred(ctx context.Context, meta events.Meta, payload *events.ConfigUpdatePayload) error {
	return p.updatePowerplantConfig(ctx, meta, "owner", payload, func(pp *models.Powerplant) {
		pp.Owner = payload.New
	})
}

func (p *Projector) onReactorClassHashUpdated(ctx context.Context, meta events.Meta, payload *events.ConfigUpdatePayload) error {
	return p.updatePowerplantConfig(ctx, meta, "reactor_class_hash", payload, func(pp *models.Powerplant) {
		pp.ReactorClassHash = payload.New
	})
}

func (p *Projector) updatePowerplantConfig(ctx context.Context, meta events.Meta, field string, payload *events.ConfigUpdatePayload, set func(*models.Powerplant)) error {
	powerplant, err := p.Store.GetPowerplant(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "powerplant", meta.Address, meta); skipped || err != nil {
		return err
	}

	set(powerplant)
	powerplant.ConfigHistory = append(powerplant.ConfigHistory, models.ConfigChange{
		Field:     field,
		OldValue:  payload.Previous,
		NewValue:  payload.New,
		Timestamp: meta.Timestamp,
	})
	powerplant.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdatePowerplant(ctx, powerplant); err != nil {
		return err
	}

	p.Logger.Info("Powerplant config updated",
		zap.String("powerplant", meta.Address),
		zap.String("field", field),
		zap.String("old", payload.Previous),
		zap.String("new", payload.New))
	return nil
}

func (p *Projector) onReactorOwnershipTransferred(ctx context.Context, meta events.Meta, payload *events.ConfigUpdatePayload) error {
	return p.updateReactorConfig(ctx, meta, "owner", payload, func(r *models.Reactor) {
		r.Owner = payload.New
	})
}

func (p *Projector) onPenaltyReceiverUpdated(ctx context.Context, meta events.Meta, payload *events.ConfigUpdatePayload) error {
	return p.updateReactorConfig(ctx, meta, "penalty_receiver", payload, func(r *models.Reactor) {
		r.PenaltyReceiver = payload.New
	})
}

func (p *Projector) updateReactorConfig(ctx context.Context, meta events.Meta, field string, payload *events.ConfigUpdatePayload, set func(*models.Reactor)) error {
	reactor, err := p.Store.GetReactor(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "reactor", meta.Address, meta); skipped || err != nil {
		return err
	}

	set(reactor)
	reactor.ConfigHistory = append(reactor.ConfigHistory, models.ConfigChange{
		Field:     field,
		OldValue:  payload.Previous,
		NewValue:  payload.New,
		Timestamp: meta.Timestamp,
	})
	reactor.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateReactor(ctx, reactor); err != nil {
		return err
	}

	p.Logger.Info("Reactor config updated",
		zap.String("reactor", meta.Address),
		zap.String("field", field),
		zap.String("old", payload.Previous),
		zap.String("new", payload.New))
	return nil
}
