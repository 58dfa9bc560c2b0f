package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

// Powerplants

func (db *DB) GetPowerplant(ctx context.Context, address string) (*models.Powerplant, error) {
	var rows []*powerplantRow
	query := fmt.Sprintf(`SELECT * FROM "%s"."%s" FINAL WHERE address = ? LIMIT 1`, db.Name, models.PowerplantsTableName)
	if err := db.SelectWithFinal(ctx, &rows, query, address); err != nil {
		return nil, fmt.Errorf("get powerplant %s: %w", address, err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].toModel()
}

func (db *DB) InsertPowerplant(ctx context.Context, p *models.Powerplant) error {
	return db.writePowerplant(ctx, p)
}

func (db *DB) UpdatePowerplant(ctx context.Context, p *models.Powerplant) error {
	return db.writePowerplant(ctx, p)
}

func (db *DB) writePowerplant(ctx context.Context, p *models.Powerplant) error {
	history, err := historyJSON(p.ConfigHistory)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (address, reactor_count, total_value_locked_usd, owner, reactor_class_hash, config_history, created_at, updated_at) VALUES`,
		db.Name, models.PowerplantsTableName,
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
		p.ReactorCount,
		p.TotalValueLockedUSD,
		p.Owner,
		p.ReactorClassHash,
		history,
		p.CreatedAt,
		p.UpdatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListPowerplants(ctx context.Context, cursor string, limit int) ([]*models.Powerplant, error) {
	var rows []*powerplantRow
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE address > ? ORDER BY address LIMIT ?`,
		db.Name, models.PowerplantsTableName,
	)
	if err := db.SelectWithFinal(ctx, &rows, query, cursor, limit); err != nil {
		return nil, fmt.Errorf("list powerplants: %w", err)
	}
	out := make([]*models.Powerplant, 0, len(rows))
	for _, r := range rows {
		p, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Reactors

func (db *DB) GetReactor(ctx context.Context, address string) (*models.Reactor, error) {
	var rows []*reactorRow
	query := fmt.Sprintf(`SELECT * FROM "%s"."%s" FINAL WHERE address = ? LIMIT 1`, db.Name, models.ReactorsTableName)
	if err := db.SelectWithFinal(ctx, &rows, query, address); err != nil {
		return nil, fmt.Errorf("get reactor %s: %w", address, err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].toModel()
}

func (db *DB) InsertReactor(ctx context.Context, r *models.Reactor) error {
	return db.writeReactor(ctx, r)
}

func (db *DB) UpdateReactor(ctx context.Context, r *models.Reactor) error {
	return db.writeReactor(ctx, r)
}

func (db *DB) writeReactor(ctx context.Context, r *models.Reactor) error {
	history, err := historyJSON(r.ConfigHistory)
	if err != nil {
		return err
	}
	rewarders := r.AuthorizedRewarders
	if rewarders == nil {
		rewarders = []string{}
	}
	rewardersJSON, err := marshalField(rewarders, "authorized_rewarders")
	if err != nil {
		return err
	}
	rewards := r.ActiveRewards
	if rewards == nil {
		rewards = map[string]models.RewardState{}
	}
	rewardsJSON, err := marshalField(rewards, "active_rewards")
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (address, powerplant_address, lp_token_address, reactor_index, owner, total_staked, multiplier, locked, penalty_duration, withdraw_penalty, penalty_receiver, config_history, authorized_rewarders, active_rewards, created_at, updated_at) VALUES`,
		db.Name, models.ReactorsTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		r.Address,
		r.PowerplantAddress,
		r.LPTokenAddress,
		r.ReactorIndex,
		r.Owner,
		r.TotalStaked,
		r.Multiplier,
		r.Locked,
		r.PenaltyDuration,
		r.WithdrawPenalty,
		r.PenaltyReceiver,
		history,
		rewardersJSON,
		rewardsJSON,
		r.CreatedAt,
		r.UpdatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListReactors(ctx context.Context, cursor string, limit int) ([]*models.Reactor, error) {
	var rows []*reactorRow
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE address > ? ORDER BY address LIMIT ?`,
		db.Name, models.ReactorsTableName,
	)
	if err := db.SelectWithFinal(ctx, &rows, query, cursor, limit); err != nil {
		return nil, fmt.Errorf("list reactors: %w", err)
	}
	out := make([]*models.Reactor, 0, len(rows))
	for _, r := range rows {
		rc, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

func (db *DB) ListReactorsByPowerplant(ctx context.Context, powerplant string) ([]*models.Reactor, error) {
	var rows []*reactorRow
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE powerplant_address = ? ORDER BY address`,
		db.Name, models.ReactorsTableName,
	)
	if err := db.SelectWithFinal(ctx, &rows, query, powerplant); err != nil {
		return nil, fmt.Errorf("list reactors by powerplant %s: %w", powerplant, err)
	}
	out := make([]*models.Reactor, 0, len(rows))
	for _, r := range rows {
		rc, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

// User stakes

func (db *DB) GetUserStake(ctx context.Context, reactor, user string) (*models.UserStake, error) {
	var rows []*userStakeRow
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE reactor_address = ? AND user_address = ? LIMIT 1`,
		db.Name, models.UserStakesTableName,
	)
	if err := db.SelectWithFinal(ctx, &rows, query, reactor, user); err != nil {
		return nil, fmt.Errorf("get stake %s/%s: %w", reactor, user, err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].toModel()
}

func (db *DB) InsertUserStake(ctx context.Context, s *models.UserStake) error {
	return db.writeUserStake(ctx, s)
}

func (db *DB) UpdateUserStake(ctx context.Context, s *models.UserStake) error {
	return db.writeUserStake(ctx, s)
}

func (db *DB) writeUserStake(ctx context.Context, s *models.UserStake) error {
	paid := s.RewardPerTokenPaid
	if paid == nil {
		paid = map[string]decimal.Decimal{}
	}
	paidJSON, err := marshalField(paid, "reward_per_token_paid")
	if err != nil {
		return err
	}
	rewards := s.Rewards
	if rewards == nil {
		rewards = map[string]decimal.Decimal{}
	}
	rewardsJSON, err := marshalField(rewards, "rewards")
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (reactor_address, user_address, staked_amount, penalty_end_time, reward_per_token_paid, rewards, usd_value, created_at, updated_at) VALUES`,
		db.Name, models.UserStakesTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		s.ReactorAddress,
		s.UserAddress,
		s.StakedAmount,
		s.PenaltyEndTime,
		paidJSON,
		rewardsJSON,
		s.USDValue,
		s.CreatedAt,
		s.UpdatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListUserStakesByReactor(ctx context.Context, reactor string) ([]*models.UserStake, error) {
	var rows []*userStakeRow
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE reactor_address = ? ORDER BY user_address`,
		db.Name, models.UserStakesTableName,
	)
	if err := db.SelectWithFinal(ctx, &rows, query, reactor); err != nil {
		return nil, fmt.Errorf("list stakes by reactor %s: %w", reactor, err)
	}
	out := make([]*models.UserStake, 0, len(rows))
	for _, r := range rows {
		s, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (db *DB) ListUserStakesByUser(ctx context.Context, user string) ([]*models.UserStake, error) {
	var rows []*userStakeRow
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE user_address = ? ORDER BY reactor_address`,
		db.Name, models.UserStakesTableName,
	)
	if err := db.SelectWithFinal(ctx, &rows, query, user); err != nil {
		return nil, fmt.Errorf("list stakes by user %s: %w", user, err)
	}
	out := make([]*models.UserStake, 0, len(rows))
	for _, r := range rows {
		s, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Stake and reward events

func (db *DB) InsertStakeEvent(ctx context.Context, e *models.StakeEvent) error {
	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (reactor_address, block, event_index, tx_hash, event_type, user_address, staked_amount, penalty_amount, created_at) VALUES`,
		db.Name, models.StakeEventsTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		e.ReactorAddress,
		e.Block,
		e.EventIndex,
		e.TxHash,
		string(e.EventType),
		e.UserAddress,
		e.StakedAmount,
		e.PenaltyAmount,
		e.CreatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListStakeEventsByReactor(ctx context.Context, reactor string, cursor string, limit int) ([]*models.StakeEvent, error) {
	block, eventIndex, err := store.ParseEventCursor(cursor)
	if err != nil {
		return nil, err
	}
	var events []*models.StakeEvent
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE reactor_address = ? AND (block, event_index) > (?, ?) ORDER BY block, event_index LIMIT ?`,
		db.Name, models.StakeEventsTableName,
	)
	if err := db.SelectWithFinal(ctx, &events, query, reactor, block, eventIndex, limit); err != nil {
		return nil, fmt.Errorf("list stake events for %s: %w", reactor, err)
	}
	return events, nil
}

func (db *DB) InsertRewardEvent(ctx context.Context, e *models.RewardEvent) error {
	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (reactor_address, block, event_index, tx_hash, event_type, user_address, reward_token, reward_amount, reward_rate, reward_duration, period_finish, created_at) VALUES`,
		db.Name, models.RewardEventsTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	if err := batch.Append(
		e.ReactorAddress,
		e.Block,
		e.EventIndex,
		e.TxHash,
		string(e.EventType),
		e.UserAddress,
		e.RewardToken,
		e.RewardAmount,
		e.RewardRate,
		e.RewardDuration,
		e.PeriodFinish,
		e.CreatedAt,
	); err != nil {
		return err
	}
	return batch.Send()
}

func (db *DB) ListRewardEventsByReactor(ctx context.Context, reactor string, cursor string, limit int) ([]*models.RewardEvent, error) {
	block, eventIndex, err := store.ParseEventCursor(cursor)
	if err != nil {
		return nil, err
	}
	var events []*models.RewardEvent
	query := fmt.Sprintf(
		`SELECT * FROM "%s"."%s" FINAL WHERE reactor_address = ? AND (block, event_index) > (?, ?) ORDER BY block, event_index LIMIT ?`,
		db.Name, models.RewardEventsTableName,
	)
	if err := db.SelectWithFinal(ctx, &events, query, reactor, block, eventIndex, limit); err != nil {
		return nil, fmt.Errorf("list reward events for %s: %w", reactor, err)
	}
	return events, nil
}
