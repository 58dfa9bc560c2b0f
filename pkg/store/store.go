package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/defi-space/indexer/pkg/models"
)

// ErrNotFound is returned by every Get* when the entity does not exist.
// Callers distinguish it from infrastructure failures with errors.Is.
var ErrNotFound = errors.New("entity not found")

// ErrDuplicate is returned by Insert* when the key is already present.
var ErrDuplicate = errors.New("entity already exists")

// Store is the persistence boundary for projected state. Inserts create,
// updates overwrite the full row; both are idempotent-friendly so replayed
// events converge on the same state.
type Store interface {
	// Factories
	GetFactory(ctx context.Context, address string) (*models.Factory, error)
	InsertFactory(ctx context.Context, f *models.Factory) error
	UpdateFactory(ctx context.Context, f *models.Factory) error
	ListFactories(ctx context.Context, cursor string, limit int) ([]*models.Factory, error)

	// Pairs
	GetPair(ctx context.Context, address string) (*models.Pair, error)
	InsertPair(ctx context.Context, p *models.Pair) error
	UpdatePair(ctx context.Context, p *models.Pair) error
	ListPairs(ctx context.Context, cursor string, limit int) ([]*models.Pair, error)
	ListPairsByFactory(ctx context.Context, factory string) ([]*models.Pair, error)

	// Liquidity positions, unique per (pair, user)
	GetLiquidityPosition(ctx context.Context, pair, user string) (*models.LiquidityPosition, error)
	InsertLiquidityPosition(ctx context.Context, p *models.LiquidityPosition) error
	UpdateLiquidityPosition(ctx context.Context, p *models.LiquidityPosition) error
	ListLiquidityPositionsByPair(ctx context.Context, pair string) ([]*models.LiquidityPosition, error)
	ListLiquidityPositionsByUser(ctx context.Context, user string) ([]*models.LiquidityPosition, error)

	// Event history (append-only, replay-safe on the natural key)
	InsertLiquidityEvent(ctx context.Context, e *models.LiquidityEvent) error
	ListLiquidityEventsByPair(ctx context.Context, pair string, cursor string, limit int) ([]*models.LiquidityEvent, error)
	InsertSwapEvent(ctx context.Context, e *models.SwapEvent) error
	ListSwapEventsByPair(ctx context.Context, pair string, cursor string, limit int) ([]*models.SwapEvent, error)

	// SwapVolumeSince sums per-token swap volume (in + out) for one pair over
	// rows created at or after since (unix seconds).
	SwapVolumeSince(ctx context.Context, pair string, since int64) (vol0, vol1 decimal.Decimal, err error)

	// Powerplants
	GetPowerplant(ctx context.Context, address string) (*models.Powerplant, error)
	InsertPowerplant(ctx context.Context, p *models.Powerplant) error
	UpdatePowerplant(ctx context.Context, p *models.Powerplant) error
	ListPowerplants(ctx context.Context, cursor string, limit int) ([]*models.Powerplant, error)

	// Reactors
	GetReactor(ctx context.Context, address string) (*models.Reactor, error)
	InsertReactor(ctx context.Context, r *models.Reactor) error
	UpdateReactor(ctx context.Context, r *models.Reactor) error
	ListReactors(ctx context.Context, cursor string, limit int) ([]*models.Reactor, error)
	ListReactorsByPowerplant(ctx context.Context, powerplant string) ([]*models.Reactor, error)

	// User stakes, unique per (reactor, user)
	GetUserStake(ctx context.Context, reactor, user string) (*models.UserStake, error)
	InsertUserStake(ctx context.Context, s *models.UserStake) error
	UpdateUserStake(ctx context.Context, s *models.UserStake) error
	ListUserStakesByReactor(ctx context.Context, reactor string) ([]*models.UserStake, error)
	ListUserStakesByUser(ctx context.Context, user string) ([]*models.UserStake, error)

	InsertStakeEvent(ctx context.Context, e *models.StakeEvent) error
	ListStakeEventsByReactor(ctx context.Context, reactor string, cursor string, limit int) ([]*models.StakeEvent, error)
	InsertRewardEvent(ctx context.Context, e *models.RewardEvent) error
	ListRewardEventsByReactor(ctx context.Context, reactor string, cursor string, limit int) ([]*models.RewardEvent, error)

	Ping(ctx context.Context) error
	Close() error
}
