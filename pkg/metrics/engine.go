// Package metrics recalculates the derived USD fields (prices, TVL, volume,
// APY, stake values) that event projection leaves untouched. Recalculation is
// idempotent: rerunning over unchanged state writes the same values.
package metrics

import (
	"context"

	"github.com/alitto/pond/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
	"github.com/defi-space/indexer/pkg/utils"
)

// PriceSource resolves a token's USD price. The bool is false when no market
// quotes the token; that is not an error.
type PriceSource interface {
	TokenPriceUSD(ctx context.Context, tokenAddress string) (decimal.Decimal, bool, error)
}

// Engine runs the recalculation passes. Per-entity work fans out over a
// bounded pool; totals accumulate under a lock (decimal addition is exact, so
// completion order cannot change the result).
type Engine struct {
	Logger *zap.Logger
	Store  store.Store
	Prices PriceSource

	concurrency int
	pageSize    int
}

func NewEngine(logger *zap.Logger, st store.Store, prices PriceSource) *Engine {
	return &Engine{
		Logger:      logger,
		Store:       st,
		Prices:      prices,
		concurrency: utils.EnvInt("METRICS_CONCURRENCY", 8),
		pageSize:    utils.EnvInt("METRICS_PAGE_SIZE", 500),
	}
}

func (e *Engine) newPool() pond.Pool {
	return pond.NewPool(e.concurrency, pond.WithQueueSize(e.concurrency*4))
}

// priceUSD resolves a token price, degrading lookup failures to "no price" so
// one unreachable token cannot abort the rest of a recalculation scope.
func (e *Engine) priceUSD(ctx context.Context, token string) (decimal.Decimal, bool) {
	price, ok, err := e.Prices.TokenPriceUSD(ctx, token)
	if err != nil {
		e.Logger.Warn("Price lookup failed, treating token as unpriced",
			zap.String("token", token),
			zap.Error(err))
		return decimal.Zero, false
	}
	return price, ok
}

// allPairs pages through every pair in the store.
func (e *Engine) allPairs(ctx context.Context) ([]*models.Pair, error) {
	var out []*models.Pair
	cursor := ""
	for {
		pairs, err := e.Store.ListPairs(ctx, cursor, e.pageSize)
		if err != nil {
			return nil, err
		}
		if len(pairs) == 0 {
			return out, nil
		}
		out = append(out, pairs...)
		cursor = pairs[len(pairs)-1].Address
		if len(pairs) < e.pageSize {
			return out, nil
		}
	}
}

// allReactors pages through every reactor in the store.
func (e *Engine) allReactors(ctx context.Context) ([]*models.Reactor, error) {
	var out []*models.Reactor
	cursor := ""
	for {
		reactors, err := e.Store.ListReactors(ctx, cursor, e.pageSize)
		if err != nil {
			return nil, err
		}
		if len(reactors) == 0 {
			return out, nil
		}
		out = append(out, reactors...)
		cursor = reactors[len(reactors)-1].Address
		if len(reactors) < e.pageSize {
			return out, nil
		}
	}
}
