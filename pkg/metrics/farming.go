package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

// RecalculateFarmingReactor refreshes one reactor's stake values.
func (e *Engine) RecalculateFarmingReactor(ctx context.Context, reactorAddress string) error {
	reactor, err := e.Store.GetReactor(ctx, reactorAddress)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.Warn("Reactor not found for metrics recalculation", zap.String("reactor", reactorAddress))
		return nil
	}
	if err != nil {
		return err
	}
	_, err = e.recalcReactor(ctx, reactor)
	return err
}

// RecalculateFarmingPowerplant refreshes every reactor under one powerplant
// and rolls the summed TVL up onto the powerplant row.
func (e *Engine) RecalculateFarmingPowerplant(ctx context.Context, powerplantAddress string) error {
	reactors, err := e.Store.ListReactorsByPowerplant(ctx, powerplantAddress)
	if err != nil {
		return err
	}

	total, err := e.recalcReactors(ctx, reactors)
	if err != nil {
		return err
	}

	powerplant, err := e.Store.GetPowerplant(ctx, powerplantAddress)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.Warn("Powerplant not found for TVL rollup", zap.String("powerplant", powerplantAddress))
		return nil
	}
	if err != nil {
		return err
	}
	powerplant.TotalValueLockedUSD = total
	return e.Store.UpdatePowerplant(ctx, powerplant)
}

// RecalculateFarmingAll refreshes every reactor in the store.
func (e *Engine) RecalculateFarmingAll(ctx context.Context) error {
	reactors, err := e.allReactors(ctx)
	if err != nil {
		return err
	}
	_, err = e.recalcReactors(ctx, reactors)
	return err
}

func (e *Engine) recalcReactors(ctx context.Context, reactors []*models.Reactor) (decimal.Decimal, error) {
	var mu sync.Mutex
	total := decimal.Zero

	pool := e.newPool()
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, reactor := range reactors {
		reactor := reactor
		group.SubmitErr(func() error {
			tvl, err := e.recalcReactor(groupCtx, reactor)
			if err != nil {
				return err
			}
			mu.Lock()
			total = total.Add(tvl)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return decimal.Zero, err
	}
	return total, nil
}

// recalcReactor values the staked LP tokens and distributes the TVL pro rata
// across user stakes. Returns the reactor's TVL contribution.
func (e *Engine) recalcReactor(ctx context.Context, reactor *models.Reactor) (decimal.Decimal, error) {
	pair, err := e.Store.GetPair(ctx, reactor.LPTokenAddress)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.Warn("Pair not found for reactor LP token, skipping",
			zap.String("reactor", reactor.Address),
			zap.String("lp_token", reactor.LPTokenAddress))
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	lpPrice, priced := e.priceUSD(ctx, pair.Address)

	var tvl decimal.Decimal
	if priced && lpPrice.IsPositive() {
		tvl = reactor.TotalStaked.Mul(lpPrice)
	} else if pair.TotalSupply.IsPositive() {
		// Value the LP tokens at their share of the pair's TVL.
		tvl = reactor.TotalStaked.Mul(pair.TVLUSD).Div(pair.TotalSupply)
	} else {
		tvl = decimal.Zero
	}

	stakes, err := e.Store.ListUserStakesByReactor(ctx, reactor.Address)
	if err != nil {
		return decimal.Zero, err
	}
	for _, stake := range stakes {
		share := decimal.Zero
		if reactor.TotalStaked.IsPositive() {
			share = stake.StakedAmount.Div(reactor.TotalStaked)
		}
		stake.USDValue = share.Mul(tvl)
		if err := e.Store.UpdateUserStake(ctx, stake); err != nil {
			return decimal.Zero, err
		}
	}

	return tvl, nil
}
