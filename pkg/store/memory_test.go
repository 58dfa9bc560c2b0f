package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/defi-space/indexer/pkg/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInsertRejectsDuplicates(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.InsertPair(ctx, &models.Pair{Address: "0xpair"}))
	err := st.InsertPair(ctx, &models.Pair{Address: "0xpair"})
	require.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, st.InsertUserStake(ctx, &models.UserStake{ReactorAddress: "0xr", UserAddress: "0xu"}))
	err = st.InsertUserStake(ctx, &models.UserStake{ReactorAddress: "0xr", UserAddress: "0xu"})
	require.ErrorIs(t, err, ErrDuplicate)

	// Different user, same reactor, is a distinct row.
	require.NoError(t, st.InsertUserStake(ctx, &models.UserStake{ReactorAddress: "0xr", UserAddress: "0xv"}))
}

func TestGetReturnsNotFound(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, err := st.GetFactory(ctx, "0xmissing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = st.GetLiquidityPosition(ctx, "0xpair", "0xuser")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadsAreIsolatedFromCallerMutation(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.InsertReactor(ctx, &models.Reactor{
		Address:             "0xreactor",
		AuthorizedRewarders: []string{"0xa"},
		ActiveRewards:       map[string]models.RewardState{"0xrwd": {Rate: dec("1")}},
	}))

	got, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	got.AuthorizedRewarders[0] = "0xmutated"
	got.ActiveRewards["0xrwd"] = models.RewardState{Rate: dec("999")}

	fresh, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	require.Equal(t, "0xa", fresh.AuthorizedRewarders[0])
	require.True(t, fresh.ActiveRewards["0xrwd"].Rate.Equal(dec("1")))
}

func TestListPairsCursorPaging(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	for _, addr := range []string{"0xc", "0xa", "0xb"} {
		require.NoError(t, st.InsertPair(ctx, &models.Pair{Address: addr}))
	}

	page1, err := st.ListPairs(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, "0xa", page1[0].Address)
	require.Equal(t, "0xb", page1[1].Address)

	page2, err := st.ListPairs(ctx, page1[len(page1)-1].Address, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	require.Equal(t, "0xc", page2[0].Address)
}

func TestEventCursorPaging(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	// Inserted out of order; pages must come back in chain order.
	coords := []struct {
		block uint64
		index uint32
	}{{12, 3}, {10, 0}, {11, 7}, {12, 0}}
	for _, c := range coords {
		require.NoError(t, st.InsertSwapEvent(ctx, &models.SwapEvent{
			PairAddress: "0xpair", Block: c.block, EventIndex: c.index,
		}))
	}
	// An event for another pair must never leak in.
	require.NoError(t, st.InsertSwapEvent(ctx, &models.SwapEvent{
		PairAddress: "0xother", Block: 10, EventIndex: 1,
	}))

	page1, err := st.ListSwapEventsByPair(ctx, "0xpair", "", 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, uint64(10), page1[0].Block)
	require.Equal(t, uint64(11), page1[1].Block)

	cursor := EventCursor(page1[1].Block, page1[1].EventIndex)
	page2, err := st.ListSwapEventsByPair(ctx, "0xpair", cursor, 10)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Equal(t, uint64(12), page2[0].Block)
	require.Equal(t, uint32(0), page2[0].EventIndex)
	require.Equal(t, uint32(3), page2[1].EventIndex)
}

func TestEventInsertIsReplaySafe(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	e := &models.StakeEvent{ReactorAddress: "0xr", Block: 5, EventIndex: 2, StakedAmount: dec("10")}
	require.NoError(t, st.InsertStakeEvent(ctx, e))
	require.NoError(t, st.InsertStakeEvent(ctx, e))

	rows, err := st.ListStakeEventsByReactor(ctx, "0xr", "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSwapVolumeSinceWindow(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.InsertSwapEvent(ctx, &models.SwapEvent{
		PairAddress: "0xpair", Block: 1, EventIndex: 0,
		Amount0In: dec("10"), Amount1Out: dec("20"), CreatedAt: 1000,
	}))
	require.NoError(t, st.InsertSwapEvent(ctx, &models.SwapEvent{
		PairAddress: "0xpair", Block: 2, EventIndex: 0,
		Amount0Out: dec("5"), Amount1In: dec("8"), CreatedAt: 2000,
	}))
	require.NoError(t, st.InsertSwapEvent(ctx, &models.SwapEvent{
		PairAddress: "0xother", Block: 3, EventIndex: 0,
		Amount0In: dec("100"), CreatedAt: 2000,
	}))

	vol0, vol1, err := st.SwapVolumeSince(ctx, "0xpair", 1500)
	require.NoError(t, err)
	require.True(t, vol0.Equal(dec("5")), "vol0 %s", vol0)
	require.True(t, vol1.Equal(dec("8")), "vol1 %s", vol1)

	vol0, vol1, err = st.SwapVolumeSince(ctx, "0xpair", 0)
	require.NoError(t, err)
	require.True(t, vol0.Equal(dec("15")))
	require.True(t, vol1.Equal(dec("28")))
}

func TestEventCursorRoundTrip(t *testing.T) {
	cursor := EventCursor(123456, 78)
	block, index, err := ParseEventCursor(cursor)
	require.NoError(t, err)
	require.Equal(t, uint64(123456), block)
	require.Equal(t, uint32(78), index)

	block, index, err = ParseEventCursor("")
	require.NoError(t, err)
	require.Zero(t, block)
	require.Zero(t, index)

	_, _, err = ParseEventCursor("garbage")
	require.Error(t, err)
}
