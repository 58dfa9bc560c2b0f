package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

// stubPrices serves fixed USD prices per token address.
type stubPrices struct {
	prices map[string]decimal.Decimal
}

func (s *stubPrices) TokenPriceUSD(_ context.Context, tokenAddress string) (decimal.Decimal, bool, error) {
	price, ok := s.prices[tokenAddress]
	return price, ok, nil
}

// erroringPrices fails lookups for the listed tokens and serves fixed prices
// for the rest.
type erroringPrices struct {
	prices  map[string]decimal.Decimal
	failing map[string]bool
}

func (s *erroringPrices) TokenPriceUSD(_ context.Context, tokenAddress string) (decimal.Decimal, bool, error) {
	if s.failing[tokenAddress] {
		return decimal.Zero, false, errors.New("connection refused")
	}
	price, ok := s.prices[tokenAddress]
	return price, ok, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T, st store.Store, prices map[string]decimal.Decimal) *Engine {
	t.Helper()
	return NewEngine(zaptest.NewLogger(t), st, &stubPrices{prices: prices})
}

func seedAmmPair(t *testing.T, st store.Store, address, factory string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.InsertFactory(ctx, &models.Factory{Address: factory}))
	require.NoError(t, st.InsertPair(ctx, &models.Pair{
		Address:        address,
		FactoryAddress: factory,
		Token0Address:  "0xtok0",
		Token1Address:  "0xtok1",
		Reserve0:       dec("100"),
		Reserve1:       dec("200"),
		TotalSupply:    dec("141"),
	}))
}

func TestRecalculateAmmPairDerivesUSDFields(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedAmmPair(t, st, "0xpair", "0xfac")

	// One swap inside the 24h window: 10 in + 5 out of token0.
	now := time.Now().Unix()
	require.NoError(t, st.InsertSwapEvent(ctx, &models.SwapEvent{
		PairAddress: "0xpair", Block: 5, EventIndex: 0,
		Amount0In: dec("10"), Amount0Out: dec("5"),
		CreatedAt: now,
	}))
	// And one outside it that must not count.
	require.NoError(t, st.InsertSwapEvent(ctx, &models.SwapEvent{
		PairAddress: "0xpair", Block: 1, EventIndex: 0,
		Amount0In: dec("1000"),
		CreatedAt: now - 48*3600,
	}))

	engine := newTestEngine(t, st, map[string]decimal.Decimal{
		"0xtok0": dec("2"),
		"0xtok1": dec("1"),
	})
	require.NoError(t, engine.RecalculateAmmPair(ctx, "0xpair"))

	pair, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
	require.True(t, pair.Token0PriceUSD.Equal(dec("2")))
	require.True(t, pair.Token1PriceUSD.Equal(dec("1")))
	// 100*2 + 200*1
	require.True(t, pair.TVLUSD.Equal(dec("400")), "tvl %s", pair.TVLUSD)
	// (10+5) * 2
	require.True(t, pair.Volume24hUSD.Equal(dec("30")), "volume %s", pair.Volume24hUSD)
	// 30 * 0.003 * 365 / 400
	expectedAPY := dec("30").Mul(models.TradingFeeRate).Mul(dec("365")).Div(dec("400"))
	require.True(t, pair.APY24h.Equal(expectedAPY), "apy %s", pair.APY24h)
}

func TestRecalculateAmmPairWithoutPricesLeavesFieldsUntouched(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedAmmPair(t, st, "0xpair", "0xfac")

	// Pre-existing derived values from an earlier priced run.
	pair, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
	pair.TVLUSD = dec("400")
	pair.Volume24hUSD = dec("30")
	require.NoError(t, st.UpdatePair(ctx, pair))

	// Only token0 is priced.
	engine := newTestEngine(t, st, map[string]decimal.Decimal{"0xtok0": dec("2")})
	require.NoError(t, engine.RecalculateAmmPair(ctx, "0xpair"))

	pair, err = st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
	require.True(t, pair.TVLUSD.Equal(dec("400")))
	require.True(t, pair.Volume24hUSD.Equal(dec("30")))
	require.True(t, pair.Token1PriceUSD.IsZero())
}

func TestRecalculateAmmPairMissingPairIsNotAnError(t *testing.T) {
	st := store.NewMemoryStore()
	engine := newTestEngine(t, st, nil)
	require.NoError(t, engine.RecalculateAmmPair(context.Background(), "0xghost"))
}

func TestRecalculateAmmFactoryRollsUpTVL(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.InsertFactory(ctx, &models.Factory{Address: "0xfac"}))
	require.NoError(t, st.InsertPair(ctx, &models.Pair{
		Address: "0xpair1", FactoryAddress: "0xfac",
		Token0Address: "0xtok0", Token1Address: "0xtok1",
		Reserve0: dec("100"), Reserve1: dec("200"), TotalSupply: dec("141"),
	}))
	require.NoError(t, st.InsertPair(ctx, &models.Pair{
		Address: "0xpair2", FactoryAddress: "0xfac",
		Token0Address: "0xtok0", Token1Address: "0xtok1",
		Reserve0: dec("50"), Reserve1: dec("100"), TotalSupply: dec("70"),
	}))

	engine := newTestEngine(t, st, map[string]decimal.Decimal{
		"0xtok0": dec("2"),
		"0xtok1": dec("1"),
	})
	require.NoError(t, engine.RecalculateAmmFactory(ctx, "0xfac"))

	factory, err := st.GetFactory(ctx, "0xfac")
	require.NoError(t, err)
	// pair1: 400, pair2: 200
	require.True(t, factory.TotalValueLockedUSD.Equal(dec("600")), "tvl %s", factory.TotalValueLockedUSD)
}

func TestRecalculateAmmFactorySurvivesPriceLookupFailure(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.InsertFactory(ctx, &models.Factory{Address: "0xfac"}))
	require.NoError(t, st.InsertPair(ctx, &models.Pair{
		Address: "0xpair1", FactoryAddress: "0xfac",
		Token0Address: "0xdead", Token1Address: "0xtok1",
		Reserve0: dec("100"), Reserve1: dec("200"), TotalSupply: dec("141"),
	}))
	require.NoError(t, st.InsertPair(ctx, &models.Pair{
		Address: "0xpair2", FactoryAddress: "0xfac",
		Token0Address: "0xtok0", Token1Address: "0xtok1",
		Reserve0: dec("50"), Reserve1: dec("100"), TotalSupply: dec("70"),
	}))

	engine := NewEngine(zaptest.NewLogger(t), st, &erroringPrices{
		prices:  map[string]decimal.Decimal{"0xtok0": dec("2"), "0xtok1": dec("1")},
		failing: map[string]bool{"0xdead": true},
	})

	// One unreachable token must not abort the rest of the scope.
	require.NoError(t, engine.RecalculateAmmFactory(ctx, "0xfac"))

	pair1, err := st.GetPair(ctx, "0xpair1")
	require.NoError(t, err)
	require.True(t, pair1.TVLUSD.IsZero())

	pair2, err := st.GetPair(ctx, "0xpair2")
	require.NoError(t, err)
	require.True(t, pair2.TVLUSD.Equal(dec("200")), "tvl %s", pair2.TVLUSD)

	factory, err := st.GetFactory(ctx, "0xfac")
	require.NoError(t, err)
	require.True(t, factory.TotalValueLockedUSD.Equal(dec("200")), "tvl %s", factory.TotalValueLockedUSD)
}

func TestRecalculateAmmIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedAmmPair(t, st, "0xpair", "0xfac")

	engine := newTestEngine(t, st, map[string]decimal.Decimal{
		"0xtok0": dec("2"),
		"0xtok1": dec("1"),
	})

	require.NoError(t, engine.RecalculateAmmAll(ctx))
	first, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)

	require.NoError(t, engine.RecalculateAmmAll(ctx))
	second, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)

	require.True(t, first.TVLUSD.Equal(second.TVLUSD))
	require.True(t, first.Volume24hUSD.Equal(second.Volume24hUSD))
	require.True(t, first.APY24h.Equal(second.APY24h))
}
