package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/defi-space/indexer/pkg/events"
	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

func seedReactor(t *testing.T, p *Projector) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindPowerplantInitialized, "0xplant", 10, 0, 1000, events.PowerplantInitializedPayload{
		Owner:            "0xadmin",
		ReactorClassHash: "0xclass",
	})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindReactorCreated, "0xplant", 11, 0, 1010, events.ReactorCreatedPayload{
		Reactor:         "0xreactor",
		LPTokenAddress:  "0xpair",
		ReactorIndex:    0,
		Multiplier:      2,
		PenaltyDuration: 86400,
		WithdrawPenalty: 500,
		PenaltyReceiver: "0xpenalty",
	})))
}

func TestReactorCreatedInheritsOwnerAndCountsUp(t *testing.T) {
	p, st, registrar, _ := newTestProjector(t)
	ctx := context.Background()
	seedReactor(t, p)

	reactor, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	require.Equal(t, "0xadmin", reactor.Owner, "owner comes from the powerplant")
	require.Equal(t, "0xpair", reactor.LPTokenAddress)
	require.False(t, reactor.Locked)
	require.Empty(t, reactor.AuthorizedRewarders)

	powerplant, err := st.GetPowerplant(ctx, "0xplant")
	require.NoError(t, err)
	require.Equal(t, int64(1), powerplant.ReactorCount)

	require.Contains(t, registrar.registered, "reactor:0xreactor")
}

func TestDepositThenWithdraw(t *testing.T) {
	p, st, _, trigger := newTestProjector(t)
	ctx := context.Background()
	seedReactor(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindDeposit, "0xreactor", 12, 0, 1020, events.DepositPayload{
		UserAddress:    "0xuser",
		StakedAmount:   dec("100"),
		TotalStaked:    dec("100"),
		PenaltyEndTime: 2000,
	})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindWithdraw, "0xreactor", 13, 0, 1030, events.WithdrawPayload{
		UserAddress:    "0xuser",
		StakedAmount:   dec("40"),
		PenaltyAmount:  dec("2"),
		PenaltyEndTime: 2000,
	})))

	reactor, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	require.True(t, reactor.TotalStaked.Equal(dec("60")))

	stake, err := st.GetUserStake(ctx, "0xreactor", "0xuser")
	require.NoError(t, err)
	require.True(t, stake.StakedAmount.Equal(dec("60")))
	require.Equal(t, int64(2000), stake.PenaltyEndTime)

	rows, err := st.ListStakeEventsByReactor(ctx, "0xreactor", "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, models.StakeEventDeposit, rows[0].EventType)
	require.Equal(t, models.StakeEventWithdraw, rows[1].EventType)
	require.True(t, rows[1].PenaltyAmount.Equal(dec("2")))

	require.Equal(t, []string{"0xreactor", "0xreactor"}, trigger.reactors)
}

func TestWithdrawWithoutStakeSkipsStakeUpdate(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedReactor(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindWithdraw, "0xreactor", 13, 0, 1030, events.WithdrawPayload{
		UserAddress:  "0xghost",
		StakedAmount: dec("40"),
	})))

	// The pool total still reflects the event.
	reactor, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	require.True(t, reactor.TotalStaked.Equal(dec("-40")))

	_, err = st.GetUserStake(ctx, "0xreactor", "0xghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRewardAddedAndHarvest(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedReactor(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindDeposit, "0xreactor", 12, 0, 1020, events.DepositPayload{
		UserAddress: "0xuser", StakedAmount: dec("100"), TotalStaked: dec("100"),
	})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindRewardAdded, "0xreactor", 13, 0, 1030, events.RewardAddedPayload{
		Rewarder:             "0xrewarder",
		RewardToken:          "0xrwd",
		RewardAmount:         dec("1000"),
		RewardRate:           dec("0.1"),
		RewardDuration:       10000,
		PeriodFinish:         11030,
		RewardPerTokenStored: dec("0"),
	})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindHarvest, "0xreactor", 14, 0, 1040, events.HarvestPayload{
		UserAddress:          "0xuser",
		RewardToken:          "0xrwd",
		RewardAmount:         dec("5"),
		RewardPerTokenStored: dec("0.05"),
	})))

	reactor, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	state, ok := reactor.ActiveRewards["0xrwd"]
	require.True(t, ok)
	require.True(t, state.Rate.Equal(dec("0.1")))
	require.Equal(t, int64(11030), state.PeriodFinish)

	stake, err := st.GetUserStake(ctx, "0xreactor", "0xuser")
	require.NoError(t, err)
	require.True(t, stake.RewardPerTokenPaid["0xrwd"].Equal(dec("0.05")))

	rows, err := st.ListRewardEventsByReactor(ctx, "0xreactor", "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, models.RewardEventRewardAdded, rows[0].EventType)
	require.Equal(t, models.RewardEventHarvest, rows[1].EventType)
}

func TestRewarderAddIsIdempotent(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedReactor(t, p)

	add := mkEnv(t, events.KindRewarderAdded, "0xreactor", 12, 0, 1020, events.RewarderPayload{Rewarder: "0xrewarder"})
	require.NoError(t, p.Apply(ctx, add))
	require.NoError(t, p.Apply(ctx, add))

	reactor, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	require.Equal(t, []string{"0xrewarder"}, reactor.AuthorizedRewarders)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindRewarderRemoved, "0xreactor", 13, 0, 1030, events.RewarderPayload{Rewarder: "0xrewarder"})))
	reactor, err = st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	require.Empty(t, reactor.AuthorizedRewarders)
}

func TestUnallocatedRewardsClaimed(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedReactor(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindRewardAdded, "0xreactor", 12, 0, 1020, events.RewardAddedPayload{
		Rewarder: "0xrewarder", RewardToken: "0xrwd", RewardAmount: dec("1000"), RewardRate: dec("0.1"),
	})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindUnallocatedRewardsClaimed, "0xreactor", 13, 0, 1030, events.UnallocatedRewardsClaimedPayload{
		RewardToken:        "0xrwd",
		To:                 "0xrewarder",
		Amount:             dec("100"),
		UnallocatedRewards: dec("900"),
	})))

	reactor, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	state := reactor.ActiveRewards["0xrwd"]
	require.NotNil(t, state.Unallocated)
	require.True(t, state.Unallocated.Equal(dec("900")))
}

func TestReactorConfigHistory(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedReactor(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindPenaltyReceiverUpdated, "0xreactor", 12, 0, 1020, events.ConfigUpdatePayload{
		Previous: "0xpenalty", New: "0xpenalty2",
	})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindReactorOwnershipTransferred, "0xreactor", 13, 0, 1030, events.ConfigUpdatePayload{
		Previous: "0xadmin", New: "0xadmin2",
	})))

	reactor, err := st.GetReactor(ctx, "0xreactor")
	require.NoError(t, err)
	require.Equal(t, "0xpenalty2", reactor.PenaltyReceiver)
	require.Equal(t, "0xadmin2", reactor.Owner)
	require.Len(t, reactor.ConfigHistory, 2)
	require.Equal(t, "penalty_receiver", reactor.ConfigHistory[0].Field)
}

func TestPowerplantConfigHistory(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedReactor(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindReactorClassHashUpdated, "0xplant", 12, 0, 1020, events.ConfigUpdatePayload{
		Previous: "0xclass", New: "0xclass2",
	})))

	powerplant, err := st.GetPowerplant(ctx, "0xplant")
	require.NoError(t, err)
	require.Equal(t, "0xclass2", powerplant.ReactorClassHash)
	require.Len(t, powerplant.ConfigHistory, 1)
	require.Equal(t, "reactor_class_hash", powerplant.ConfigHistory[0].Field)
}
