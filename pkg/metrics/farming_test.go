package metrics

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

func seedFarm(t *testing.T, st store.Store, totalStaked decimal.Decimal) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.InsertPowerplant(ctx, &models.Powerplant{Address: "0xplant"}))
	require.NoError(t, st.InsertPair(ctx, &models.Pair{
		Address:       "0xpair",
		Token0Address: "0xtok0",
		Token1Address: "0xtok1",
		TotalSupply:   dec("1000"),
		TVLUSD:        dec("5000"),
	}))
	require.NoError(t, st.InsertReactor(ctx, &models.Reactor{
		Address:           "0xreactor",
		PowerplantAddress: "0xplant",
		LPTokenAddress:    "0xpair",
		TotalStaked:       totalStaked,
	}))
}

func TestRecalculateFarmingReactorProRata(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedFarm(t, st, dec("100"))

	require.NoError(t, st.InsertUserStake(ctx, &models.UserStake{
		ReactorAddress: "0xreactor", UserAddress: "0xalice", StakedAmount: dec("60"),
	}))
	require.NoError(t, st.InsertUserStake(ctx, &models.UserStake{
		ReactorAddress: "0xreactor", UserAddress: "0xbob", StakedAmount: dec("40"),
	}))

	// The LP token itself has a quoted price.
	engine := newTestEngine(t, st, map[string]decimal.Decimal{"0xpair": dec("3")})
	require.NoError(t, engine.RecalculateFarmingReactor(ctx, "0xreactor"))

	// tvl = 100 * 3
	alice, err := st.GetUserStake(ctx, "0xreactor", "0xalice")
	require.NoError(t, err)
	require.True(t, alice.USDValue.Equal(dec("180")), "alice %s", alice.USDValue)

	bob, err := st.GetUserStake(ctx, "0xreactor", "0xbob")
	require.NoError(t, err)
	require.True(t, bob.USDValue.Equal(dec("120")), "bob %s", bob.USDValue)

	require.True(t, alice.USDValue.Add(bob.USDValue).Equal(dec("300")))
}

func TestRecalculateFarmingFallsBackToPairTVL(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedFarm(t, st, dec("100"))

	require.NoError(t, st.InsertUserStake(ctx, &models.UserStake{
		ReactorAddress: "0xreactor", UserAddress: "0xalice", StakedAmount: dec("100"),
	}))

	// No quote for the LP token; value it at its share of the pair TVL.
	engine := newTestEngine(t, st, nil)
	require.NoError(t, engine.RecalculateFarmingReactor(ctx, "0xreactor"))

	// 100 * 5000 / 1000
	alice, err := st.GetUserStake(ctx, "0xreactor", "0xalice")
	require.NoError(t, err)
	require.True(t, alice.USDValue.Equal(dec("500")), "alice %s", alice.USDValue)
}

func TestRecalculateFarmingSurvivesPriceLookupFailure(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedFarm(t, st, dec("100"))

	require.NoError(t, st.InsertUserStake(ctx, &models.UserStake{
		ReactorAddress: "0xreactor", UserAddress: "0xalice", StakedAmount: dec("100"),
	}))

	// Oracle down for the LP token: degrade to the pair-TVL fallback.
	engine := NewEngine(zaptest.NewLogger(t), st, &erroringPrices{
		failing: map[string]bool{"0xpair": true},
	})
	require.NoError(t, engine.RecalculateFarmingReactor(ctx, "0xreactor"))

	// 100 * 5000 / 1000
	alice, err := st.GetUserStake(ctx, "0xreactor", "0xalice")
	require.NoError(t, err)
	require.True(t, alice.USDValue.Equal(dec("500")), "alice %s", alice.USDValue)
}

func TestRecalculateFarmingZeroTotalStaked(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedFarm(t, st, decimal.Zero)

	require.NoError(t, st.InsertUserStake(ctx, &models.UserStake{
		ReactorAddress: "0xreactor", UserAddress: "0xalice", StakedAmount: decimal.Zero,
		USDValue: dec("123"),
	}))

	engine := newTestEngine(t, st, map[string]decimal.Decimal{"0xpair": dec("3")})
	require.NoError(t, engine.RecalculateFarmingReactor(ctx, "0xreactor"))

	// Zero share of a zero pool.
	alice, err := st.GetUserStake(ctx, "0xreactor", "0xalice")
	require.NoError(t, err)
	require.True(t, alice.USDValue.IsZero())
}

func TestRecalculateFarmingPowerplantRollsUpTVL(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedFarm(t, st, dec("100"))

	// A second reactor whose LP pair was never indexed contributes zero.
	require.NoError(t, st.InsertReactor(ctx, &models.Reactor{
		Address:           "0xreactor2",
		PowerplantAddress: "0xplant",
		LPTokenAddress:    "0xmissing",
		TotalStaked:       dec("50"),
	}))

	engine := newTestEngine(t, st, map[string]decimal.Decimal{"0xpair": dec("3")})
	require.NoError(t, engine.RecalculateFarmingPowerplant(ctx, "0xplant"))

	powerplant, err := st.GetPowerplant(ctx, "0xplant")
	require.NoError(t, err)
	require.True(t, powerplant.TotalValueLockedUSD.Equal(dec("300")), "tvl %s", powerplant.TotalValueLockedUSD)
}
