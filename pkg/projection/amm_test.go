package projection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/defi-space/indexer/pkg/events"
	"github.com/defi-space/indexer/pkg/store"
)

// recordingRegistrar captures child registrations.
type recordingRegistrar struct {
	registered []string
}

func (r *recordingRegistrar) RegisterChild(_ context.Context, kind SchemaKind, address string) error {
	r.registered = append(r.registered, string(kind)+":"+address)
	return nil
}

// recordingTrigger captures metrics triggers.
type recordingTrigger struct {
	ammPairs []string
	reactors []string
}

func (r *recordingTrigger) TriggerAmmMetrics(_ context.Context, pairAddress string) error {
	r.ammPairs = append(r.ammPairs, pairAddress)
	return nil
}

func (r *recordingTrigger) TriggerFarmingMetrics(_ context.Context, reactorAddress string) error {
	r.reactors = append(r.reactors, reactorAddress)
	return nil
}

func newTestProjector(t *testing.T) (*Projector, *store.MemoryStore, *recordingRegistrar, *recordingTrigger) {
	t.Helper()
	st := store.NewMemoryStore()
	registrar := &recordingRegistrar{}
	trigger := &recordingTrigger{}
	p := New(zaptest.NewLogger(t), st, registrar, trigger)
	return p, st, registrar, trigger
}

func mkEnv(t *testing.T, kind events.Kind, address string, block uint64, eventIndex uint32, ts int64, payload interface{}) *events.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &events.Envelope{
		Kind: kind,
		Meta: events.Meta{
			Address:    address,
			TxHash:     "0xtx",
			Block:      block,
			EventIndex: eventIndex,
			Timestamp:  ts,
		},
		Payload: raw,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFactoryInitializedAndReplay(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()

	env := mkEnv(t, events.KindFactoryInitialized, "0xfac", 10, 0, 1000, events.FactoryInitializedPayload{
		Owner:         "0xowner",
		FeeTo:         "0xfee",
		PairClassHash: "0xhash",
	})
	require.NoError(t, p.Apply(ctx, env))

	factory, err := st.GetFactory(ctx, "0xfac")
	require.NoError(t, err)
	require.Equal(t, "0xowner", factory.Owner)
	require.Equal(t, int64(0), factory.NumOfPairs)

	// Redelivery must be a no-op, not an error.
	require.NoError(t, p.Apply(ctx, env))
}

func TestCreationReplayIsVisibleAtWarn(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	st := store.NewMemoryStore()
	p := New(zap.New(core), st, &recordingRegistrar{}, &recordingTrigger{})
	ctx := context.Background()

	env := mkEnv(t, events.KindFactoryInitialized, "0xfac", 10, 0, 1000, events.FactoryInitializedPayload{Owner: "0xowner"})
	require.NoError(t, p.Apply(ctx, env))
	require.NoError(t, p.Apply(ctx, env))

	require.NotEmpty(t, logs.FilterMessage("Factory already exists, replay ignored").All())
}

func TestPairCreatedRegistersChildAndOverwritesCount(t *testing.T) {
	p, st, registrar, _ := newTestProjector(t)
	ctx := context.Background()

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindFactoryInitialized, "0xfac", 10, 0, 1000, events.FactoryInitializedPayload{Owner: "0xowner"})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindPairCreated, "0xfac", 11, 0, 1010, events.PairCreatedPayload{
		Pair:       "0xpair",
		Token0:     "0xtok0",
		Token1:     "0xtok1",
		TotalPairs: 7,
	})))

	require.Equal(t, []string{"pair:0xpair"}, registrar.registered)

	pair, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
	require.Equal(t, "0xfac", pair.FactoryAddress)
	require.True(t, pair.Reserve0.IsZero())
	require.True(t, pair.TotalSupply.IsZero())

	factory, err := st.GetFactory(ctx, "0xfac")
	require.NoError(t, err)
	require.Equal(t, int64(7), factory.NumOfPairs)
}

// failingRegistrar always errors; registration failures must not block
// entity creation.
type failingRegistrar struct{}

func (failingRegistrar) RegisterChild(context.Context, SchemaKind, string) error {
	return errors.New("subscriptions stream unavailable")
}

func TestPairCreatedSurvivesRegistrationFailure(t *testing.T) {
	st := store.NewMemoryStore()
	trigger := &recordingTrigger{}
	p := New(zaptest.NewLogger(t), st, failingRegistrar{}, trigger)
	ctx := context.Background()

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindFactoryInitialized, "0xfac", 10, 0, 1000, events.FactoryInitializedPayload{Owner: "0xowner"})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindPairCreated, "0xfac", 11, 0, 1010, events.PairCreatedPayload{
		Pair:       "0xpair",
		TotalPairs: 1,
	})))

	_, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
}

func TestPairCreatedMissingFactorySkipped(t *testing.T) {
	p, st, registrar, _ := newTestProjector(t)
	ctx := context.Background()

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindPairCreated, "0xnope", 11, 0, 1010, events.PairCreatedPayload{Pair: "0xpair"})))
	require.Empty(t, registrar.registered)

	_, err := st.GetPair(ctx, "0xpair")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func seedPair(t *testing.T, p *Projector) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindFactoryInitialized, "0xfac", 10, 0, 1000, events.FactoryInitializedPayload{Owner: "0xowner"})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindPairCreated, "0xfac", 11, 0, 1010, events.PairCreatedPayload{
		Pair: "0xpair", Token0: "0xtok0", Token1: "0xtok1", TotalPairs: 1,
	})))
}

func TestMintUpdatesPairPositionAndHistory(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedPair(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindMint, "0xpair", 12, 1, 1020, events.MintPayload{
		Sender:         "0xuser",
		Amount0:        dec("100"),
		Amount1:        dec("200"),
		Reserve0:       dec("100"),
		Reserve1:       dec("200"),
		TotalSupply:    dec("141"),
		UserLiquidity:  dec("141"),
		TotalLiquidity: dec("141"),
	})))

	pair, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
	require.True(t, pair.Reserve0.Equal(dec("100")))
	require.True(t, pair.TotalSupply.Equal(dec("141")))
	require.True(t, pair.KLast.Equal(pair.Reserve0.Mul(pair.Reserve1)))

	position, err := st.GetLiquidityPosition(ctx, "0xpair", "0xuser")
	require.NoError(t, err)
	require.True(t, position.Liquidity.Equal(dec("141")))
	require.True(t, position.DepositsToken0.Equal(dec("100")))

	// Second mint overwrites the balance and accumulates deposits.
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindMint, "0xpair", 13, 0, 1030, events.MintPayload{
		Sender:         "0xuser",
		Amount0:        dec("50"),
		Amount1:        dec("100"),
		Reserve0:       dec("150"),
		Reserve1:       dec("300"),
		TotalSupply:    dec("212"),
		UserLiquidity:  dec("212"),
		TotalLiquidity: dec("212"),
	})))

	position, err = st.GetLiquidityPosition(ctx, "0xpair", "0xuser")
	require.NoError(t, err)
	require.True(t, position.Liquidity.Equal(dec("212")))
	require.True(t, position.DepositsToken0.Equal(dec("150")))
	require.True(t, position.WithdrawalsToken0.IsZero())

	rows, err := st.ListLiquidityEventsByPair(ctx, "0xpair", "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, rows[0].Liquidity.Equal(dec("141")))
}

func TestBurnWithoutPositionKeepsPairState(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedPair(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindBurn, "0xpair", 12, 0, 1020, events.BurnPayload{
		Sender:      "0xstranger",
		Amount0:     dec("10"),
		Amount1:     dec("20"),
		Reserve0:    dec("90"),
		Reserve1:    dec("180"),
		TotalSupply: dec("120"),
	})))

	// The pair snapshot still lands even when the position is unknown.
	pair, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
	require.True(t, pair.Reserve0.Equal(dec("90")))
	require.True(t, pair.TotalSupply.Equal(dec("120")))

	rows, err := st.ListLiquidityEventsByPair(ctx, "0xpair", "", 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestSwapAccumulatesFeesAndTriggersMetrics(t *testing.T) {
	p, st, _, trigger := newTestProjector(t)
	ctx := context.Background()
	seedPair(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindSwap, "0xpair", 12, 0, 1020, events.SwapPayload{
		Sender:     "0xtrader",
		Amount0In:  dec("1000"),
		Amount1Out: dec("1990"),
		Reserve0:   dec("1100"),
		Reserve1:   dec("180"),
	})))

	pair, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
	require.True(t, pair.AccumulatedFeesToken0.Equal(dec("3")), "0.3%% of 1000 in")
	require.True(t, pair.AccumulatedFeesToken1.IsZero())
	require.True(t, pair.KLast.Equal(pair.Reserve0.Mul(pair.Reserve1)))

	swaps, err := st.ListSwapEventsByPair(ctx, "0xpair", "", 10)
	require.NoError(t, err)
	require.Len(t, swaps, 1)

	require.Equal(t, []string{"0xpair"}, trigger.ammPairs)
}

func TestSyncUpdatesTWAPWithoutEventRow(t *testing.T) {
	p, st, _, trigger := newTestProjector(t)
	ctx := context.Background()
	seedPair(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindSync, "0xpair", 12, 0, 1020, events.SyncPayload{
		Reserve0:             dec("500"),
		Reserve1:             dec("1000"),
		Price0CumulativeLast: dec("123456"),
		Price1CumulativeLast: dec("654321"),
	})))

	pair, err := st.GetPair(ctx, "0xpair")
	require.NoError(t, err)
	require.True(t, pair.Price0CumulativeLast.Equal(dec("123456")))
	require.True(t, pair.KLast.Equal(dec("500000")))

	rows, err := st.ListLiquidityEventsByPair(ctx, "0xpair", "", 10)
	require.NoError(t, err)
	require.Empty(t, rows)
	swaps, err := st.ListSwapEventsByPair(ctx, "0xpair", "", 10)
	require.NoError(t, err)
	require.Empty(t, swaps)

	require.Equal(t, []string{"0xpair"}, trigger.ammPairs)
}

func TestFactoryConfigHistoryGrows(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()
	seedPair(t, p)

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindOwnerUpdated, "0xfac", 12, 0, 1020, events.ConfigUpdatePayload{
		Previous: "0xowner", New: "0xowner2",
	})))
	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindFeesReceiverUpdated, "0xfac", 13, 0, 1030, events.ConfigUpdatePayload{
		Previous: "", New: "0xfee2",
	})))

	factory, err := st.GetFactory(ctx, "0xfac")
	require.NoError(t, err)
	require.Equal(t, "0xowner2", factory.Owner)
	require.Equal(t, "0xfee2", factory.FeeTo)
	require.Len(t, factory.ConfigHistory, 2)
	require.Equal(t, "owner", factory.ConfigHistory[0].Field)
	require.Equal(t, "0xowner2", factory.ConfigHistory[0].NewValue)
}

func TestUnknownKindIsSkipped(t *testing.T) {
	p, _, _, _ := newTestProjector(t)
	env := mkEnv(t, events.Kind("SomethingNew"), "0xaddr", 1, 0, 100, map[string]string{})
	require.NoError(t, p.Apply(context.Background(), env))
}

func TestMalformedPayloadReturnsError(t *testing.T) {
	p, _, _, _ := newTestProjector(t)
	env := &events.Envelope{
		Kind:    events.KindMint,
		Meta:    events.Meta{Address: "0xpair", Block: 1},
		Payload: json.RawMessage(`{"amount0": [not json`),
	}
	require.Error(t, p.Apply(context.Background(), env))
}

func TestMintOnUnknownPairSkipped(t *testing.T) {
	p, st, _, _ := newTestProjector(t)
	ctx := context.Background()

	require.NoError(t, p.Apply(ctx, mkEnv(t, events.KindMint, "0xghost", 12, 0, 1020, events.MintPayload{
		Sender: "0xuser", TotalSupply: dec("1"),
	})))

	_, err := st.GetLiquidityPosition(ctx, "0xghost", "0xuser")
	require.ErrorIs(t, err, store.ErrNotFound)
}
