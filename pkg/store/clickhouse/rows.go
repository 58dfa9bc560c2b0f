package clickhouse

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/defi-space/indexer/pkg/models"
)

// Row types for entities whose nested fields (config history, reward maps)
// are stored as JSON strings. Flat entities scan straight into their model.

type factoryRow struct {
	Address             string          `ch:"address"`
	NumOfPairs          int64           `ch:"num_of_pairs"`
	TotalValueLockedUSD decimal.Decimal `ch:"total_value_locked_usd"`
	Owner               string          `ch:"owner"`
	FeeTo               string          `ch:"fee_to"`
	PairClassHash       string          `ch:"pair_class_hash"`
	ConfigHistory       string          `ch:"config_history"`
	CreatedAt           int64           `ch:"created_at"`
	UpdatedAt           int64           `ch:"updated_at"`
}

type powerplantRow struct {
	Address             string          `ch:"address"`
	ReactorCount        int64           `ch:"reactor_count"`
	TotalValueLockedUSD decimal.Decimal `ch:"total_value_locked_usd"`
	Owner               string          `ch:"owner"`
	ReactorClassHash    string          `ch:"reactor_class_hash"`
	ConfigHistory       string          `ch:"config_history"`
	CreatedAt           int64           `ch:"created_at"`
	UpdatedAt           int64           `ch:"updated_at"`
}

type reactorRow struct {
	Address             string          `ch:"address"`
	PowerplantAddress   string          `ch:"powerplant_address"`
	LPTokenAddress      string          `ch:"lp_token_address"`
	ReactorIndex        int64           `ch:"reactor_index"`
	Owner               string          `ch:"owner"`
	TotalStaked         decimal.Decimal `ch:"total_staked"`
	Multiplier          int64           `ch:"multiplier"`
	Locked              bool            `ch:"locked"`
	PenaltyDuration     int64           `ch:"penalty_duration"`
	WithdrawPenalty     int64           `ch:"withdraw_penalty"`
	PenaltyReceiver     string          `ch:"penalty_receiver"`
	ConfigHistory       string          `ch:"config_history"`
	AuthorizedRewarders string          `ch:"authorized_rewarders"`
	ActiveRewards       string          `ch:"active_rewards"`
	CreatedAt           int64           `ch:"created_at"`
	UpdatedAt           int64           `ch:"updated_at"`
}

type userStakeRow struct {
	ReactorAddress     string          `ch:"reactor_address"`
	UserAddress        string          `ch:"user_address"`
	StakedAmount       decimal.Decimal `ch:"staked_amount"`
	PenaltyEndTime     int64           `ch:"penalty_end_time"`
	RewardPerTokenPaid string          `ch:"reward_per_token_paid"`
	Rewards            string          `ch:"rewards"`
	USDValue           decimal.Decimal `ch:"usd_value"`
	CreatedAt          int64           `ch:"created_at"`
	UpdatedAt          int64           `ch:"updated_at"`
}

func marshalField(v interface{}, field string) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", field, err)
	}
	return string(raw), nil
}

func unmarshalField(raw string, v interface{}, field string) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", field, err)
	}
	return nil
}

func historyJSON(h []models.ConfigChange) (string, error) {
	if h == nil {
		h = []models.ConfigChange{}
	}
	return marshalField(h, "config_history")
}

func (r *factoryRow) toModel() (*models.Factory, error) {
	f := &models.Factory{
		Address:             r.Address,
		NumOfPairs:          r.NumOfPairs,
		TotalValueLockedUSD: r.TotalValueLockedUSD,
		Owner:               r.Owner,
		FeeTo:               r.FeeTo,
		PairClassHash:       r.PairClassHash,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if err := unmarshalField(r.ConfigHistory, &f.ConfigHistory, "config_history"); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *powerplantRow) toModel() (*models.Powerplant, error) {
	p := &models.Powerplant{
		Address:             r.Address,
		ReactorCount:        r.ReactorCount,
		TotalValueLockedUSD: r.TotalValueLockedUSD,
		Owner:               r.Owner,
		ReactorClassHash:    r.ReactorClassHash,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if err := unmarshalField(r.ConfigHistory, &p.ConfigHistory, "config_history"); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *reactorRow) toModel() (*models.Reactor, error) {
	rc := &models.Reactor{
		Address:           r.Address,
		PowerplantAddress: r.PowerplantAddress,
		LPTokenAddress:    r.LPTokenAddress,
		ReactorIndex:      r.ReactorIndex,
		Owner:             r.Owner,
		TotalStaked:       r.TotalStaked,
		Multiplier:        r.Multiplier,
		Locked:            r.Locked,
		PenaltyDuration:   r.PenaltyDuration,
		WithdrawPenalty:   r.WithdrawPenalty,
		PenaltyReceiver:   r.PenaltyReceiver,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if err := unmarshalField(r.ConfigHistory, &rc.ConfigHistory, "config_history"); err != nil {
		return nil, err
	}
	if err := unmarshalField(r.AuthorizedRewarders, &rc.AuthorizedRewarders, "authorized_rewarders"); err != nil {
		return nil, err
	}
	if err := unmarshalField(r.ActiveRewards, &rc.ActiveRewards, "active_rewards"); err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *userStakeRow) toModel() (*models.UserStake, error) {
	s := &models.UserStake{
		ReactorAddress: r.ReactorAddress,
		UserAddress:    r.UserAddress,
		StakedAmount:   r.StakedAmount,
		PenaltyEndTime: r.PenaltyEndTime,
		USDValue:       r.USDValue,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if err := unmarshalField(r.RewardPerTokenPaid, &s.RewardPerTokenPaid, "reward_per_token_paid"); err != nil {
		return nil, err
	}
	if err := unmarshalField(r.Rewards, &s.Rewards, "rewards"); err != nil {
		return nil, err
	}
	return s, nil
}
