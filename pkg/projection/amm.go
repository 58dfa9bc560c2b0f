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

func (p *Projector) onFactoryInitialized(ctx context.Context, meta events.Meta, payload *events.FactoryInitializedPayload) error {
	factory := &models.Factory{
		Address:             meta.Address,
		NumOfPairs:          0,
		TotalValueLockedUSD: decimal.Zero,
		Owner:               payload.Owner,
		FeeTo:               payload.FeeTo,
		PairClassHash:       payload.PairClassHash,
		ConfigHistory:       []models.ConfigChange{},
		CreatedAt:           meta.Timestamp,
		UpdatedAt:           meta.Timestamp,
	}
	if err := p.Store.InsertFactory(ctx, factory); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Expected under at-least-once delivery; anything else redelivering
			// a creation event is worth noticing.
			p.Logger.Warn("Factory already exists, replay ignored", zap.String("address", meta.Address))
			return nil
		}
		return err
	}
	p.Logger.Info("Factory initialized", zap.String("address", meta.Address), zap.String("owner", payload.Owner))
	return nil
}

func (p *Projector) onPairCreated(ctx context.Context, meta events.Meta, payload *events.PairCreatedPayload) error {
	factory, err := p.Store.GetFactory(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "factory", meta.Address, meta); skipped || err != nil {
		return err
	}

	// Registration failure belongs to the subscription manager's failure
	// domain; the pair row is written regardless.
	if p.Registry != nil {
		if err := p.Registry.RegisterChild(ctx, SchemaPair, payload.Pair); err != nil {
			p.Logger.Warn("Failed to register pair subscription",
				zap.String("pair", payload.Pair),
				zap.Error(err))
		}
	}

	pair := &models.Pair{
		Address:              payload.Pair,
		FactoryAddress:       meta.Address,
		Token0Address:        payload.Token0,
		Token1Address:        payload.Token1,
		Reserve0:             decimal.Zero,
		Reserve1:             decimal.Zero,
		TotalSupply:          decimal.Zero,
		KLast:                decimal.Zero,
		Price0CumulativeLast: decimal.Zero,
		Price1CumulativeLast: decimal.Zero,
		BlockTimestampLast:   meta.Timestamp,
		CreatedAt:            meta.Timestamp,
		UpdatedAt:            meta.Timestamp,
	}
	if err := p.Store.InsertPair(ctx, pair); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return err
		}
		p.Logger.Warn("Pair already exists, replay ignored", zap.String("pair", pair.Address))
	}

	// The event carries the authoritative pair count; overwrite, don't add.
	factory.NumOfPairs = payload.TotalPairs
	factory.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateFactory(ctx, factory); err != nil {
		return err
	}

	p.Logger.Info("Pair created",
		zap.String("pair", payload.Pair),
		zap.String("factory", meta.Address),
		zap.Int64("total_pairs", payload.TotalPairs))
	return nil
}

// updatePairReserves applies the authoritative reserve snapshot shared by
// Mint, Burn, Swap and Sync. klast is recomputed from the written reserves.
func updatePairReserves(pair *models.Pair, reserve0, reserve1 decimal.Decimal, timestamp int64) {
	pair.Reserve0 = reserve0
	pair.Reserve1 = reserve1
	pair.KLast = reserve0.Mul(reserve1)
	pair.BlockTimestampLast = timestamp
	pair.UpdatedAt = timestamp
}

func (p *Projector) onMint(ctx context.Context, meta events.Meta, payload *events.MintPayload) error {
	pair, err := p.Store.GetPair(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "pair", meta.Address, meta); skipped || err != nil {
		return err
	}

	pair.TotalSupply = payload.TotalSupply
	updatePairReserves(pair, payload.Reserve0, payload.Reserve1, meta.Timestamp)
	if err := p.Store.UpdatePair(ctx, pair); err != nil {
		return err
	}

	position, err := p.Store.GetLiquidityPosition(ctx, meta.Address, payload.Sender)
	switch {
	case errors.Is(err, store.ErrNotFound):
		position = &models.LiquidityPosition{
			PairAddress:       meta.Address,
			UserAddress:       payload.Sender,
			Liquidity:         payload.UserLiquidity,
			DepositsToken0:    payload.Amount0,
			DepositsToken1:    payload.Amount1,
			WithdrawalsToken0: decimal.Zero,
			WithdrawalsToken1: decimal.Zero,
			CreatedAt:         meta.Timestamp,
			UpdatedAt:         meta.Timestamp,
		}
		if err := p.Store.InsertLiquidityPosition(ctx, position); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		// Balance is authoritative from the event; deposits accumulate.
		position.Liquidity = payload.UserLiquidity
		position.DepositsToken0 = position.DepositsToken0.Add(payload.Amount0)
		position.DepositsToken1 = position.DepositsToken1.Add(payload.Amount1)
		position.UpdatedAt = meta.Timestamp
		if err := p.Store.UpdateLiquidityPosition(ctx, position); err != nil {
			return err
		}
	}

	return p.Store.InsertLiquidityEvent(ctx, &models.LiquidityEvent{
		PairAddress: meta.Address,
		Block:       meta.Block,
		EventIndex:  meta.EventIndex,
		TxHash:      meta.TxHash,
		EventType:   models.LiquidityEventMint,
		Sender:      payload.Sender,
		UserAddress: payload.Sender,
		Amount0:     payload.Amount0,
		Amount1:     payload.Amount1,
		Liquidity:   payload.TotalLiquidity,
		CreatedAt:   meta.Timestamp,
	})
}

func (p *Projector) onBurn(ctx context.Context, meta events.Meta, payload *events.BurnPayload) error {
	pair, err := p.Store.GetPair(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "pair", meta.Address, meta); skipped || err != nil {
		return err
	}

	pair.TotalSupply = payload.TotalSupply
	updatePairReserves(pair, payload.Reserve0, payload.Reserve1, meta.Timestamp)
	if err := p.Store.UpdatePair(ctx, pair); err != nil {
		return err
	}

	position, err := p.Store.GetLiquidityPosition(ctx, meta.Address, payload.Sender)
	if errors.Is(err, store.ErrNotFound) {
		// Pair state is already saved; without a position there is nothing
		// left to attribute the burn to.
		p.Logger.Warn("Liquidity position not found for burn",
			zap.String("pair", meta.Address),
			zap.String("user", payload.Sender),
			zap.Uint64("block", meta.Block))
		return nil
	}
	if err != nil {
		return err
	}

	position.Liquidity = payload.UserLiquidity
	position.WithdrawalsToken0 = position.WithdrawalsToken0.Add(payload.Amount0)
	position.WithdrawalsToken1 = position.WithdrawalsToken1.Add(payload.Amount1)
	position.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateLiquidityPosition(ctx, position); err != nil {
		return err
	}

	return p.Store.InsertLiquidityEvent(ctx, &models.LiquidityEvent{
		PairAddress: meta.Address,
		Block:       meta.Block,
		EventIndex:  meta.EventIndex,
		TxHash:      meta.TxHash,
		EventType:   models.LiquidityEventBurn,
		Sender:      payload.Sender,
		UserAddress: payload.Sender,
		Amount0:     payload.Amount0,
		Amount1:     payload.Amount1,
		Liquidity:   payload.TotalLiquidity,
		CreatedAt:   meta.Timestamp,
	})
}

func (p *Projector) onSwap(ctx context.Context, meta events.Meta, payload *events.SwapPayload) error {
	pair, err := p.Store.GetPair(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "pair", meta.Address, meta); skipped || err != nil {
		return err
	}

	updatePairReserves(pair, payload.Reserve0, payload.Reserve1, meta.Timestamp)

	// Swap fees accrue on the input side at the protocol rate.
	pair.AccumulatedFeesToken0 = pair.AccumulatedFeesToken0.Add(payload.Amount0In.Mul(models.TradingFeeRate))
	pair.AccumulatedFeesToken1 = pair.AccumulatedFeesToken1.Add(payload.Amount1In.Mul(models.TradingFeeRate))

	if err := p.Store.UpdatePair(ctx, pair); err != nil {
		return err
	}

	if err := p.Store.InsertSwapEvent(ctx, &models.SwapEvent{
		PairAddress: meta.Address,
		Block:       meta.Block,
		EventIndex:  meta.EventIndex,
		TxHash:      meta.TxHash,
		Sender:      payload.Sender,
		Amount0In:   payload.Amount0In,
		Amount1In:   payload.Amount1In,
		Amount0Out:  payload.Amount0Out,
		Amount1Out:  payload.Amount1Out,
		CreatedAt:   meta.Timestamp,
	}); err != nil {
		return err
	}

	p.triggerAmm(ctx, meta.Address)
	return nil
}

func (p *Projector) onSync(ctx context.Context, meta events.Meta, payload *events.SyncPayload) error {
	pair, err := p.Store.GetPair(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "pair", meta.Address, meta); skipped || err != nil {
		return err
	}

	updatePairReserves(pair, payload.Reserve0, payload.Reserve1, meta.Timestamp)
	pair.Price0CumulativeLast = payload.Price0CumulativeLast
	pair.Price1CumulativeLast = payload.Price1CumulativeLast
	if err := p.Store.UpdatePair(ctx, pair); err != nil {
		return err
	}

	p.triggerAmm(ctx, meta.Address)
	return nil
}

func (p *Projector) onSkim(_ context.Context, meta events.Meta, payload *events.SkimPayload) error {
	// Skim moves surplus balances without changing tracked state.
	p.Logger.Info("Skim observed",
		zap.String("pair", meta.Address),
		zap.String("to", payload.To),
		zap.String("amount0", payload.Amount0.String()),
		zap.String("amount1", payload.Amount1.String()))
	return nil
}

func (p *Projector) onERC20Recovered(_ context.Context, meta events.Meta, payload *events.ERC20RecoveredPayload) error {
	p.Logger.Info("ERC20 recovered from pair",
		zap.String("pair", meta.Address),
		zap.String("token", payload.Token),
		zap.String("to", payload.To),
		zap.String("amount", payload.Amount.String()))
	return nil
}

// Factory config events

func (p *Projector) onFactoryOwnerUpdated(ctx context.Context, meta events.Meta, payload *events.ConfigUpdatePayload) error {
	return p.updateFactoryConfig(ctx, meta, "owner", payload, func(f *models.Factory) {
		f.Owner = payload.New
	})
}

func (p *Projector) onFeesReceiverUpdated(ctx context.Context, meta events.Meta, payload *events.ConfigUpdatePayload) error {
	return p.updateFactoryConfig(ctx, meta, "fee_to", payload, func(f *models.Factory) {
		f.FeeTo = payload.New
	})
}

func (p *Projector) onPairClassHashUpdated(ctx context.Context, meta events.Meta, payload *events.ConfigUpdatePayload) error {
	return p.updateFactoryConfig(ctx, meta, "pair_contract_class_hash", payload, func(f *models.Factory) {
		f.PairClassHash = payload.New
	})
}

func (p *Projector) updateFactoryConfig(ctx context.Context, meta events.Meta, field string, payload *events.ConfigUpdatePayload, set func(*models.Factory)) error {
	factory, err := p.Store.GetFactory(ctx, meta.Address)
	if skipped, err := p.skipMissing(err, "factory", meta.Address, meta); skipped || err != nil {
		return err
	}

	set(factory)
	factory.ConfigHistory = append(factory.ConfigHistory, models.ConfigChange{
		Field:     field,
		OldValue:  payload.Previous,
		NewValue:  payload.New,
		Timestamp: meta.Timestamp,
	})
	factory.UpdatedAt = meta.Timestamp
	if err := p.Store.UpdateFactory(ctx, factory); err != nil {
		return err
	}

	p.Logger.Info("Factory config updated",
		zap.String("factory", meta.Address),
		zap.String("field", field),
		zap.String("old", payload.Previous),
		zap.String("new", payload.New))
	return nil
}
