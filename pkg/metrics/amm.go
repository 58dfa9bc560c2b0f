package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

var daysPerYear = decimal.NewFromInt(365)

// RecalculateAmmPair refreshes the derived fields of a single pair.
func (e *Engine) RecalculateAmmPair(ctx context.Context, pairAddress string) error {
	pair, err := e.Store.GetPair(ctx, pairAddress)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.Warn("Pair not found for metrics recalculation", zap.String("pair", pairAddress))
		return nil
	}
	if err != nil {
		return err
	}
	_, err = e.recalcPair(ctx, pair)
	return err
}

// RecalculateAmmFactory refreshes every pair under one factory and rolls the
// summed TVL up onto the factory row.
func (e *Engine) RecalculateAmmFactory(ctx context.Context, factoryAddress string) error {
	pairs, err := e.Store.ListPairsByFactory(ctx, factoryAddress)
	if err != nil {
		return err
	}

	total, err := e.recalcPairs(ctx, pairs)
	if err != nil {
		return err
	}

	factory, err := e.Store.GetFactory(ctx, factoryAddress)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.Warn("Factory not found for TVL rollup", zap.String("factory", factoryAddress))
		return nil
	}
	if err != nil {
		return err
	}
	factory.TotalValueLockedUSD = total
	return e.Store.UpdateFactory(ctx, factory)
}

// RecalculateAmmAll refreshes every pair in the store.
func (e *Engine) RecalculateAmmAll(ctx context.Context) error {
	pairs, err := e.allPairs(ctx)
	if err != nil {
		return err
	}
	_, err = e.recalcPairs(ctx, pairs)
	return err
}

func (e *Engine) recalcPairs(ctx context.Context, pairs []*models.Pair) (decimal.Decimal, error) {
	var mu sync.Mutex
	total := decimal.Zero

	pool := e.newPool()
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, pair := range pairs {
		pair := pair
		group.SubmitErr(func() error {
			tvl, err := e.recalcPair(groupCtx, pair)
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

// recalcPair prices both tokens, derives TVL, trailing 24h volume and APY,
// and writes the pair. Without both prices the derived fields are left as
// they were. Returns the pair's TVL contribution.
func (e *Engine) recalcPair(ctx context.Context, pair *models.Pair) (decimal.Decimal, error) {
	price0, ok0 := e.priceUSD(ctx, pair.Token0Address)
	price1, ok1 := e.priceUSD(ctx, pair.Token1Address)

	contribution := decimal.Zero
	if ok0 && ok1 && price0.IsPositive() && price1.IsPositive() {
		pair.Token0PriceUSD = price0
		pair.Token1PriceUSD = price1

		tvl := pair.Reserve0.Mul(price0).Add(pair.Reserve1.Mul(price1))
		pair.TVLUSD = tvl
		contribution = tvl

		// Trailing 24h volume, valued single-sided in token0.
		since := time.Now().Add(-24 * time.Hour).Unix()
		vol0, _, err := e.Store.SwapVolumeSince(ctx, pair.Address, since)
		if err != nil {
			return decimal.Zero, err
		}
		volumeUSD := vol0.Mul(price0)
		pair.Volume24hUSD = volumeUSD

		if volumeUSD.IsPositive() {
			fees24h := volumeUSD.Mul(models.TradingFeeRate)
			if tvl.IsPositive() {
				pair.APY24h = fees24h.Mul(daysPerYear).Div(tvl)
			} else {
				pair.APY24h = decimal.Zero
			}
		}
	} else {
		e.Logger.Debug("No USD price for pair tokens, leaving derived fields untouched",
			zap.String("pair", pair.Address),
			zap.Bool("token0_priced", ok0),
			zap.Bool("token1_priced", ok1))
	}

	if err := e.Store.UpdatePair(ctx, pair); err != nil {
		return decimal.Zero, err
	}
	return contribution, nil
}
