package clickhouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/utils"
)

// DB is the ClickHouse-backed Store. Entity tables are ReplacingMergeTree
// versioned by updated_at so inserts and updates are both plain INSERTs and a
// replayed event converges on the same row. Reads always use FINAL.
type DB struct {
	Client
	Name string
}

// New connects to ClickHouse, ensures the target database and all tables
// exist, and returns the store.
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	dbName := SanitizeName(utils.Env("CLICKHOUSE_DB", "defi_space"))

	client, err := Connect(ctx, logger.With(zap.String("db", dbName)))
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: dbName}
	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// InitializeDB creates the database and every projection table.
func (db *DB) InitializeDB(ctx context.Context) error {
	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return err
	}

	inits := []func(context.Context) error{
		db.initFactories,
		db.initPairs,
		db.initLiquidityPositions,
		db.initLiquidityEvents,
		db.initSwapEvents,
		db.initPowerplants,
		db.initReactors,
		db.initUserStakes,
		db.initStakeEvents,
		db.initRewardEvents,
	}
	for _, init := range inits {
		if err := init(ctx); err != nil {
			return err
		}
	}

	db.Logger.Info("ClickHouse tables initialized", zap.String("database", db.Name))
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Db.Ping(ctx)
}

func (db *DB) Close() error {
	return db.Db.Close()
}

func (db *DB) initFactories(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			address String,
			num_of_pairs Int64,
			total_value_locked_usd Decimal(76, 18),
			owner String,
			fee_to String,
			pair_class_hash String,
			config_history String,
			created_at Int64,
			updated_at Int64
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY address
	`, db.Name, models.FactoriesTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.FactoriesTableName, err)
	}
	return nil
}

func (db *DB) initPairs(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			address String,
			factory_address String,
			token0_address String,
			token1_address String,
			reserve0 Decimal(76, 18),
			reserve1 Decimal(76, 18),
			total_supply Decimal(76, 18),
			klast Decimal(76, 18),
			price0_cumulative_last Decimal(76, 18),
			price1_cumulative_last Decimal(76, 18),
			block_timestamp_last Int64,
			token0_price_usd Decimal(76, 18),
			token1_price_usd Decimal(76, 18),
			volume_24h_usd Decimal(76, 18),
			tvl_usd Decimal(76, 18),
			apy_24h Decimal(76, 18),
			accumulated_fees_token0 Decimal(76, 18),
			accumulated_fees_token1 Decimal(76, 18),
			created_at Int64,
			updated_at Int64
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY address
	`, db.Name, models.PairsTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.PairsTableName, err)
	}
	return nil
}

func (db *DB) initLiquidityPositions(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			pair_address String,
			user_address String,
			liquidity Decimal(76, 18),
			deposits_token0 Decimal(76, 18),
			deposits_token1 Decimal(76, 18),
			withdrawals_token0 Decimal(76, 18),
			withdrawals_token1 Decimal(76, 18),
			usd_value Decimal(76, 18),
			created_at Int64,
			updated_at Int64
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (pair_address, user_address)
	`, db.Name, models.LiquidityPositionsTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.LiquidityPositionsTableName, err)
	}
	return nil
}

func (db *DB) initLiquidityEvents(ctx context.Context) error {
	// Keyed by chain coordinates so a replayed event overwrites its own row.
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			pair_address String,
			block UInt64,
			event_index UInt32,
			tx_hash String,
			event_type String,
			sender String,
			user_address String,
			amount0 Decimal(76, 18),
			amount1 Decimal(76, 18),
			liquidity Decimal(76, 18),
			created_at Int64
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY (pair_address, block, event_index)
	`, db.Name, models.LiquidityEventsTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.LiquidityEventsTableName, err)
	}
	return nil
}

func (db *DB) initSwapEvents(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			pair_address String,
			block UInt64,
			event_index UInt32,
			tx_hash String,
			sender String,
			amount0_in Decimal(76, 18),
			amount1_in Decimal(76, 18),
			amount0_out Decimal(76, 18),
			amount1_out Decimal(76, 18),
			created_at Int64
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY (pair_address, block, event_index)
	`, db.Name, models.SwapEventsTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.SwapEventsTableName, err)
	}
	return nil
}

func (db *DB) initPowerplants(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			address String,
			reactor_count Int64,
			total_value_locked_usd Decimal(76, 18),
			owner String,
			reactor_class_hash String,
			config_history String,
			created_at Int64,
			updated_at Int64
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY address
	`, db.Name, models.PowerplantsTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.PowerplantsTableName, err)
	}
	return nil
}

func (db *DB) initReactors(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			address String,
			powerplant_address String,
			lp_token_address String,
			reactor_index Int64,
			owner String,
			total_staked Decimal(76, 18),
			multiplier Int64,
			locked Bool,
			penalty_duration Int64,
			withdraw_penalty Int64,
			penalty_receiver String,
			config_history String,
			authorized_rewarders String,
			active_rewards String,
			created_at Int64,
			updated_at Int64
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY address
	`, db.Name, models.ReactorsTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.ReactorsTableName, err)
	}
	return nil
}

func (db *DB) initUserStakes(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			reactor_address String,
			user_address String,
			staked_amount Decimal(76, 18),
			penalty_end_time Int64,
			reward_per_token_paid String,
			rewards String,
			usd_value Decimal(76, 18),
			created_at Int64,
			updated_at Int64
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (reactor_address, user_address)
	`, db.Name, models.UserStakesTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.UserStakesTableName, err)
	}
	return nil
}

func (db *DB) initStakeEvents(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			reactor_address String,
			block UInt64,
			event_index UInt32,
			tx_hash String,
			event_type String,
			user_address String,
			staked_amount Decimal(76, 18),
			penalty_amount Decimal(76, 18),
			created_at Int64
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY (reactor_address, block, event_index)
	`, db.Name, models.StakeEventsTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.StakeEventsTableName, err)
	}
	return nil
}

func (db *DB) initRewardEvents(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			reactor_address String,
			block UInt64,
			event_index UInt32,
			tx_hash String,
			event_type String,
			user_address String,
			reward_token String,
			reward_amount Decimal(76, 18),
			reward_rate Decimal(76, 18),
			reward_duration Int64,
			period_finish Int64,
			created_at Int64
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY (reactor_address, block, event_index)
	`, db.Name, models.RewardEventsTableName)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.RewardEventsTableName, err)
	}
	return nil
}
