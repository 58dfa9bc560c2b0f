package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/shopspring/decimal"

	"github.com/defi-space/indexer/pkg/models"
)

// MemoryStore is a concurrent in-memory Store. It backs tests and local runs
// where ClickHouse is not available; semantics match the ClickHouse store
// (full-row overwrite on update, duplicate-key rejection on insert).
type MemoryStore struct {
	factories   *xsync.Map[string, *models.Factory]
	pairs       *xsync.Map[string, *models.Pair]
	positions   *xsync.Map[string, *models.LiquidityPosition]
	liqEvents   *xsync.Map[string, *models.LiquidityEvent]
	swapEvents  *xsync.Map[string, *models.SwapEvent]
	powerplants *xsync.Map[string, *models.Powerplant]
	reactors    *xsync.Map[string, *models.Reactor]
	stakes      *xsync.Map[string, *models.UserStake]
	stakeEvents *xsync.Map[string, *models.StakeEvent]
	rwdEvents   *xsync.Map[string, *models.RewardEvent]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		factories:   xsync.NewMap[string, *models.Factory](),
		pairs:       xsync.NewMap[string, *models.Pair](),
		positions:   xsync.NewMap[string, *models.LiquidityPosition](),
		liqEvents:   xsync.NewMap[string, *models.LiquidityEvent](),
		swapEvents:  xsync.NewMap[string, *models.SwapEvent](),
		powerplants: xsync.NewMap[string, *models.Powerplant](),
		reactors:    xsync.NewMap[string, *models.Reactor](),
		stakes:      xsync.NewMap[string, *models.UserStake](),
		stakeEvents: xsync.NewMap[string, *models.StakeEvent](),
		rwdEvents:   xsync.NewMap[string, *models.RewardEvent](),
	}
}

func pairUserKey(pair, user string) string {
	return pair + "/" + user
}

// eventKey builds a lexicographically sortable key so cursor pagination walks
// rows in chain order.
func eventKey(parent string, block uint64, eventIndex uint32) string {
	return fmt.Sprintf("%s/%020d/%010d", parent, block, eventIndex)
}

// Factories

func (m *MemoryStore) GetFactory(_ context.Context, address string) (*models.Factory, error) {
	f, ok := m.factories.Load(address)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFactory(f), nil
}

func (m *MemoryStore) InsertFactory(_ context.Context, f *models.Factory) error {
	if _, loaded := m.factories.LoadOrStore(f.Address, cloneFactory(f)); loaded {
		return fmt.Errorf("factory %s: %w", f.Address, ErrDuplicate)
	}
	return nil
}

func (m *MemoryStore) UpdateFactory(_ context.Context, f *models.Factory) error {
	m.factories.Store(f.Address, cloneFactory(f))
	return nil
}

func (m *MemoryStore) ListFactories(_ context.Context, cursor string, limit int) ([]*models.Factory, error) {
	return listPage(m.factories, cursor, limit, cloneFactory), nil
}

// Pairs

func (m *MemoryStore) GetPair(_ context.Context, address string) (*models.Pair, error) {
	p, ok := m.pairs.Load(address)
	if !ok {
		return nil, ErrNotFound
	}
	return clonePair(p), nil
}

func (m *MemoryStore) InsertPair(_ context.Context, p *models.Pair) error {
	if _, loaded := m.pairs.LoadOrStore(p.Address, clonePair(p)); loaded {
		return fmt.Errorf("pair %s: %w", p.Address, ErrDuplicate)
	}
	return nil
}

func (m *MemoryStore) UpdatePair(_ context.Context, p *models.Pair) error {
	m.pairs.Store(p.Address, clonePair(p))
	return nil
}

func (m *MemoryStore) ListPairs(_ context.Context, cursor string, limit int) ([]*models.Pair, error) {
	return listPage(m.pairs, cursor, limit, clonePair), nil
}

func (m *MemoryStore) ListPairsByFactory(_ context.Context, factory string) ([]*models.Pair, error) {
	return listWhere(m.pairs, clonePair, func(p *models.Pair) bool {
		return p.FactoryAddress == factory
	}), nil
}

// Liquidity positions

func (m *MemoryStore) GetLiquidityPosition(_ context.Context, pair, user string) (*models.LiquidityPosition, error) {
	p, ok := m.positions.Load(pairUserKey(pair, user))
	if !ok {
		return nil, ErrNotFound
	}
	return clonePosition(p), nil
}

func (m *MemoryStore) InsertLiquidityPosition(_ context.Context, p *models.LiquidityPosition) error {
	key := pairUserKey(p.PairAddress, p.UserAddress)
	if _, loaded := m.positions.LoadOrStore(key, clonePosition(p)); loaded {
		return fmt.Errorf("position %s: %w", key, ErrDuplicate)
	}
	return nil
}

func (m *MemoryStore) UpdateLiquidityPosition(_ context.Context, p *models.LiquidityPosition) error {
	m.positions.Store(pairUserKey(p.PairAddress, p.UserAddress), clonePosition(p))
	return nil
}

func (m *MemoryStore) ListLiquidityPositionsByPair(_ context.Context, pair string) ([]*models.LiquidityPosition, error) {
	return listWhere(m.positions, clonePosition, func(p *models.LiquidityPosition) bool {
		return p.PairAddress == pair
	}), nil
}

func (m *MemoryStore) ListLiquidityPositionsByUser(_ context.Context, user string) ([]*models.LiquidityPosition, error) {
	return listWhere(m.positions, clonePosition, func(p *models.LiquidityPosition) bool {
		return p.UserAddress == user
	}), nil
}

// Event history

func (m *MemoryStore) InsertLiquidityEvent(_ context.Context, e *models.LiquidityEvent) error {
	m.liqEvents.Store(eventKey(e.PairAddress, e.Block, e.EventIndex), cloneLiquidityEvent(e))
	return nil
}

func (m *MemoryStore) ListLiquidityEventsByPair(_ context.Context, pair string, cursor string, limit int) ([]*models.LiquidityEvent, error) {
	return listEventPage(m.liqEvents, pair, cursor, limit, cloneLiquidityEvent), nil
}

func (m *MemoryStore) InsertSwapEvent(_ context.Context, e *models.SwapEvent) error {
	m.swapEvents.Store(eventKey(e.PairAddress, e.Block, e.EventIndex), cloneSwapEvent(e))
	return nil
}

func (m *MemoryStore) ListSwapEventsByPair(_ context.Context, pair string, cursor string, limit int) ([]*models.SwapEvent, error) {
	return listEventPage(m.swapEvents, pair, cursor, limit, cloneSwapEvent), nil
}

func (m *MemoryStore) SwapVolumeSince(_ context.Context, pair string, since int64) (decimal.Decimal, decimal.Decimal, error) {
	vol0, vol1 := decimal.Zero, decimal.Zero
	m.swapEvents.Range(func(_ string, e *models.SwapEvent) bool {
		if e.PairAddress == pair && e.CreatedAt >= since {
			vol0 = vol0.Add(e.Amount0In).Add(e.Amount0Out)
			vol1 = vol1.Add(e.Amount1In).Add(e.Amount1Out)
		}
		return true
	})
	return vol0, vol1, nil
}

// Powerplants

func (m *MemoryStore) GetPowerplant(_ context.Context, address string) (*models.Powerplant, error) {
	p, ok := m.powerplants.Load(address)
	if !ok {
		return nil, ErrNotFound
	}
	return clonePowerplant(p), nil
}

func (m *MemoryStore) InsertPowerplant(_ context.Context, p *models.Powerplant) error {
	if _, loaded := m.powerplants.LoadOrStore(p.Address, clonePowerplant(p)); loaded {
		return fmt.Errorf("powerplant %s: %w", p.Address, ErrDuplicate)
	}
	return nil
}

func (m *MemoryStore) UpdatePowerplant(_ context.Context, p *models.Powerplant) error {
	m.powerplants.Store(p.Address, clonePowerplant(p))
	return nil
}

func (m *MemoryStore) ListPowerplants(_ context.Context, cursor string, limit int) ([]*models.Powerplant, error) {
	return listPage(m.powerplants, cursor, limit, clonePowerplant), nil
}

// Reactors

func (m *MemoryStore) GetReactor(_ context.Context, address string) (*models.Reactor, error) {
	r, ok := m.reactors.Load(address)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReactor(r), nil
}

func (m *MemoryStore) InsertReactor(_ context.Context, r *models.Reactor) error {
	if _, loaded := m.reactors.LoadOrStore(r.Address, cloneReactor(r)); loaded {
		return fmt.Errorf("reactor %s: %w", r.Address, ErrDuplicate)
	}
	return nil
}

func (m *MemoryStore) UpdateReactor(_ context.Context, r *models.Reactor) error {
	m.reactors.Store(r.Address, cloneReactor(r))
	return nil
}

func (m *MemoryStore) ListReactors(_ context.Context, cursor string, limit int) ([]*models.Reactor, error) {
	return listPage(m.reactors, cursor, limit, cloneReactor), nil
}

func (m *MemoryStore) ListReactorsByPowerplant(_ context.Context, powerplant string) ([]*models.Reactor, error) {
	return listWhere(m.reactors, cloneReactor, func(r *models.Reactor) bool {
		return r.PowerplantAddress == powerplant
	}), nil
}

// User stakes

func (m *MemoryStore) GetUserStake(_ context.Context, reactor, user string) (*models.UserStake, error) {
	s, ok := m.stakes.Load(pairUserKey(reactor, user))
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUserStake(s), nil
}

func (m *MemoryStore) InsertUserStake(_ context.Context, s *models.UserStake) error {
	key := pairUserKey(s.ReactorAddress, s.UserAddress)
	if _, loaded := m.stakes.LoadOrStore(key, cloneUserStake(s)); loaded {
		return fmt.Errorf("stake %s: %w", key, ErrDuplicate)
	}
	return nil
}

func (m *MemoryStore) UpdateUserStake(_ context.Context, s *models.UserStake) error {
	m.stakes.Store(pairUserKey(s.ReactorAddress, s.UserAddress), cloneUserStake(s))
	return nil
}

func (m *MemoryStore) ListUserStakesByReactor(_ context.Context, reactor string) ([]*models.UserStake, error) {
	return listWhere(m.stakes, cloneUserStake, func(s *models.UserStake) bool {
		return s.ReactorAddress == reactor
	}), nil
}

func (m *MemoryStore) ListUserStakesByUser(_ context.Context, user string) ([]*models.UserStake, error) {
	return listWhere(m.stakes, cloneUserStake, func(s *models.UserStake) bool {
		return s.UserAddress == user
	}), nil
}

func (m *MemoryStore) InsertStakeEvent(_ context.Context, e *models.StakeEvent) error {
	m.stakeEvents.Store(eventKey(e.ReactorAddress, e.Block, e.EventIndex), cloneStakeEvent(e))
	return nil
}

func (m *MemoryStore) ListStakeEventsByReactor(_ context.Context, reactor string, cursor string, limit int) ([]*models.StakeEvent, error) {
	return listEventPage(m.stakeEvents, reactor, cursor, limit, cloneStakeEvent), nil
}

func (m *MemoryStore) InsertRewardEvent(_ context.Context, e *models.RewardEvent) error {
	m.rwdEvents.Store(eventKey(e.ReactorAddress, e.Block, e.EventIndex), cloneRewardEvent(e))
	return nil
}

func (m *MemoryStore) ListRewardEventsByReactor(_ context.Context, reactor string, cursor string, limit int) ([]*models.RewardEvent, error) {
	return listEventPage(m.rwdEvents, reactor, cursor, limit, cloneRewardEvent), nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// listPage returns up to limit entities with key > cursor, ascending by key.
func listPage[V any](mp *xsync.Map[string, V], cursor string, limit int, clone func(V) V) []V {
	type kv struct {
		k string
		v V
	}
	var all []kv
	mp.Range(func(k string, v V) bool {
		if k > cursor {
			all = append(all, kv{k, v})
		}
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].k < all[j].k })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]V, 0, len(all))
	for _, e := range all {
		out = append(out, clone(e.v))
	}
	return out
}

func listWhere[V any](mp *xsync.Map[string, V], clone func(V) V, keep func(V) bool) []V {
	type kv struct {
		k string
		v V
	}
	var all []kv
	mp.Range(func(k string, v V) bool {
		if keep(v) {
			all = append(all, kv{k, v})
		}
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].k < all[j].k })
	out := make([]V, 0, len(all))
	for _, e := range all {
		out = append(out, clone(e.v))
	}
	return out
}

// listEventPage pages one parent's event rows in chain order; cursor is the
// last key of the previous page.
func listEventPage[V any](mp *xsync.Map[string, V], parent, cursor string, limit int, clone func(V) V) []V {
	prefix := parent + "/"
	type kv struct {
		k string
		v V
	}
	var all []kv
	mp.Range(func(k string, v V) bool {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix && k > prefix+cursor {
			all = append(all, kv{k, v})
		}
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].k < all[j].k })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]V, 0, len(all))
	for _, e := range all {
		out = append(out, clone(e.v))
	}
	return out
}
