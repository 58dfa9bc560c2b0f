package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

// Factories

func (db *DB) GetFactory(ctx context.Context, address string) (*models.Factory, error) {
	var rows []*factoryRow
	query := fmt.Sprintf(`SELECT * FROM "%s"."%s" FINAL WHERE address = ? LIMIT 1`, db.Name, models.FactoriesTableName)
	if err := db.SelectWithFinal(ctx, &rows, query, address); err != nil {
		return nil, fmt.Errorf("get factory %s: %w", address, err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].toModel()
}

func (db *DB) InsertFactory(ctx context.Context, f *models.Factory) error {
	return db.writeFactory(ctx, f)
}

func (db *DB) UpdateFactory(ctx context.Context, f *models.Factory) error {
	return db.writeFactory(ctx, f)
}

func (db *DB) writeFactory(ctx context.Context, f *models.Factory) error {
	history, err := historyJSON(f.ConfigHistory)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (address, num_of_pairs, total_value_locked_usd, owner, fee_to, pair_class_hash, config_history, created_at, updated_at) VALUES`,
		db.Name, models.FactoriesTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		f.Address,
		f.NumOfPairs,
		f.TotalValueLockedUSD,
		f.Owner,
		f.FeeTo,
		f.PairClassHash,
		history,
		f.CreatedAt,
		f.UpdatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListFactories(ctx context.Context, cursor string, limit int) ([]*models.Factory, error) {
	var rows []*factoryRow
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE address > ? ORDER BY address LIMIT ?`,
		db.Name, models.FactoriesTableName,
	)
	if err := db.SelectWithFinal(ctx, &rows, query, cursor, limit); err != nil {
		return nil, fmt.Errorf("list factories: %w", err)
	}
	out := make([]*models.Factory, 0, len(rows))
	for _, r := range rows {
		f, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Pairs

func (db *DB) GetPair(ctx context.Context, address string) (*models.Pair, error) {
	var pairs []*models.Pair
	query := fmt.Sprintf(`SELECT * FROM "%s"."%s" FINAL WHERE address = ? LIMIT 1`, db.Name, models.PairsTableName)
	if err := db.SelectWithFinal(ctx, &pairs, query, address); err != nil {
		return nil, fmt.Errorf("get pair %s: %w", address, err)
	}
	if len(pairs) == 0 {
		return nil, store.ErrNotFound
	}
	return pairs[0], nil
}

func (db *DB) InsertPair(ctx context.Context, p *models.Pair) error {
	return db.writePair(ctx, p)
}

func (db *DB) UpdatePair(ctx context.Context, p *models.Pair) error {
	return db.writePair(ctx, p)
}

func (db *DB) writePair(ctx context.Context, p *models.Pair) error {
	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (address, factory_address, token0_address, token1_address, reserve0, reserve1, total_supply, klast, price0_cumulative_last, price1_cumulative_last, block_timestamp_last, token0_price_usd, token1_price_usd, volume_24h_usd, tvl_usd, apy_24h, accumulated_fees_token0, accumulated_fees_token1, created_at, updated_at) VALUES`,
		db.Name, models.PairsTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		p.Address,
		p.FactoryAddress,
		p.Token0Address,
		p.Token1Address,
		p.Reserve0,
		p.Reserve1,
		p.TotalSupply,
		p.KLast,
		p.Price0CumulativeLast,
		p.Price1CumulativeLast,
		p.BlockTimestampLast,
		p.Token0PriceUSD,
		p.Token1PriceUSD,
		p.Volume24hUSD,
		p.TVLUSD,
		p.APY24h,
		p.AccumulatedFeesToken0,
		p.AccumulatedFeesToken1,
		p.CreatedAt,
		p.UpdatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListPairs(ctx context.Context, cursor string, limit int) ([]*models.Pair, error) {
	var pairs []*models.Pair
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE address > ? ORDER BY address LIMIT ?`,
		db.Name, models.PairsTableName,
	)
	if err := db.SelectWithFinal(ctx, &pairs, query, cursor, limit); err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	return pairs, nil
}

func (db *DB) ListPairsByFactory(ctx context.Context, factory string) ([]*models.Pair, error) {
	var pairs []*models.Pair
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE factory_address = ? ORDER BY address`,
		db.Name, models.PairsTableName,
	)
	if err := db.SelectWithFinal(ctx, &pairs, query, factory); err != nil {
		return nil, fmt.Errorf("list pairs by factory %s: %w", factory, err)
	}
	return pairs, nil
}

// Liquidity positions

func (db *DB) GetLiquidityPosition(ctx context.Context, pair, user string) (*models.LiquidityPosition, error) {
	var positions []*models.LiquidityPosition
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE pair_address = ? AND user_address = ? LIMIT 1`,
		db.Name, models.LiquidityPositionsTableName,
	)
	if err := db.SelectWithFinal(ctx, &positions, query, pair, user); err != nil {
		return nil, fmt.Errorf("get position %s/%s: %w", pair, user, err)
	}
	if len(positions) == 0 {
		return nil, store.ErrNotFound
	}
	return positions[0], nil
}

func (db *DB) InsertLiquidityPosition(ctx context.Context, p *models.LiquidityPosition) error {
	return db.writeLiquidityPosition(ctx, p)
}

func (db *DB) UpdateLiquidityPosition(ctx context.Context, p *models.LiquidityPosition) error {
	return db.writeLiquidityPosition(ctx, p)
}

func (db *DB) writeLiquidityPosition(ctx context.Context, p *models.LiquidityPosition) error {
	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (pair_address, user_address, liquidity, deposits_token0, deposits_token1, withdrawals_token0, withdrawals_token1, usd_value, created_at, updated_at) VALUES`,
		db.Name, models.LiquidityPositionsTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		p.PairAddress,
		p.UserAddress,
		p.Liquidity,
		p.DepositsToken0,
		p.DepositsToken1,
		p.WithdrawalsToken0,
		p.WithdrawalsToken1,
		p.USDValue,
		p.CreatedAt,
		p.UpdatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListLiquidityPositionsByPair(ctx context.Context, pair string) ([]*models.LiquidityPosition, error) {
	var positions []*models.LiquidityPosition
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE pair_address = ? ORDER BY user_address`,
		db.Name, models.LiquidityPositionsTableName,
	)
	if err := db.SelectWithFinal(ctx, &positions, query, pair); err != nil {
		return nil, fmt.Errorf("list positions by pair %s: %w", pair, err)
	}
	return positions, nil
}

func (db *DB) ListLiquidityPositionsByUser(ctx context.Context, user string) ([]*models.LiquidityPosition, error) {
	var positions []*models.LiquidityPosition
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE user_address = ? ORDER BY pair_address`,
		db.Name, models.LiquidityPositionsTableName,
	)
	if err := db.SelectWithFinal(ctx, &positions, query, user); err != nil {
		return nil, fmt.Errorf("list positions by user %s: %w", user, err)
	}
	return positions, nil
}

// Event history

func (db *DB) InsertLiquidityEvent(ctx context.Context, e *models.LiquidityEvent) error {
	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (pair_address, block, event_index, tx_hash, event_type, sender, user_address, amount0, amount1, liquidity, created_at) VALUES`,
		db.Name, models.LiquidityEventsTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		e.PairAddress,
		e.Block,
		e.EventIndex,
		e.TxHash,
		string(e.EventType),
		e.Sender,
		e.UserAddress,
		e.Amount0,
		e.Amount1,
		e.Liquidity,
		e.CreatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListLiquidityEventsByPair(ctx context.Context, pair string, cursor string, limit int) ([]*models.LiquidityEvent, error) {
	block, eventIndex, err := store.ParseEventCursor(cursor)
	if err != nil {
		return nil, err
	}
	var events []*models.LiquidityEvent
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE pair_address = ? AND (block, event_index) > (?, ?) ORDER BY block, event_index LIMIT ?`,
		db.Name, models.LiquidityEventsTableName,
	)
	if err := db.SelectWithFinal(ctx, &events, query, pair, block, eventIndex, limit); err != nil {
		return nil, fmt.Errorf("list liquidity events for %s: %w", pair, err)
	}
	return events, nil
}

func (db *DB) InsertSwapEvent(ctx context.Context, e *models.SwapEvent) error {
	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (pair_address, block, event_index, tx_hash, sender, amount0_in, amount1_in, amount0_out, amount1_out, created_at) VALUES`,
		db.Name, models.SwapEventsTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		e.PairAddress,
		e.Block,
		e.EventIndex,
		e.TxHash,
		e.Sender,
		e.Amount0In,
		e.Amount1In,
		e.Amount0Out,
		e.Amount1Out,
		e.CreatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListSwapEventsByPair(ctx context.Context, pair string, cursor string, limit int) ([]*models.SwapEvent, error) {
	block, eventIndex, err := store.ParseEventCursor(cursor)
	if err != nil {
		return nil, err
	}
	var events []*models.SwapEvent
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE pair_address = ? AND (block, event_index) > (?, ?) ORDER BY block, event_index LIMIT ?`,
		db.Name, models.SwapEventsTableName,
	)
	if err := db.SelectWithFinal(ctx, &events, query, pair, block, eventIndex, limit); err != nil {
		return nil, fmt.Errorf("list swap events for %s: %w", pair, err)
	}
	return events, nil
}

func (db *DB) SwapVolumeSince(ctx context.Context, pair string, since int64) (decimal.Decimal, decimal.Decimal, error) {
	var rows []struct {
		Vol0 decimal.Decimal `ch:"vol0"`
		Vol1 decimal.Decimal `ch:"vol1"`
	}
	query := fmt.Sprintf(`
		SELECT
			sum(amount0_in + amount0_out) AS vol0,
			sum(amount1_in + amount1_out) AS vol1
		FROM "%s"."%s" FINAL
		WHERE pair_address = ? AND created_at >= ?
	`, db.Name, models.SwapEventsTableName)
	if err := db.SelectWithFinal(ctx, &rows, query, pair, since); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("swap volume for %s: %w", pair, err)
	}
	if len(rows) == 0 {
		return decimal.Zero, decimal.Zero, nil
	}
	return rows[0].Vol0, rows[0].Vol1, nil
}
