package models

import "github.com/shopspring/decimal"

const PowerplantsTableName = "powerplants"
const ReactorsTableName = "reactors"
const UserStakesTableName = "user_stakes"
const StakeEventsTableName = "stake_events"
const RewardEventsTableName = "reward_events"

// Powerplant is the root contract of a farming deployment; mirrors Factory.
type Powerplant struct {
	Address string `ch:"address" json:"address"`

	ReactorCount        int64           `ch:"reactor_count" json:"reactor_count"`
	TotalValueLockedUSD decimal.Decimal `ch:"total_value_locked_usd" json:"total_value_locked_usd"`

	// Config with history
	Owner            string         `ch:"owner" json:"owner"`
	ReactorClassHash string         `ch:"reactor_class_hash" json:"reactor_class_hash"`
	ConfigHistory    []ConfigChange `json:"config_history"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
	UpdatedAt int64 `ch:"updated_at" json:"updated_at"`
}

// Reactor is one staking pool owned by a Powerplant. It stakes a single LP
// token and distributes one or more reward tokens.
type Reactor struct {
	Address string `ch:"address" json:"address"`

	PowerplantAddress string `ch:"powerplant_address" json:"powerplant_address"`
	LPTokenAddress    string `ch:"lp_token_address" json:"lp_token_address"`
	ReactorIndex      int64  `ch:"reactor_index" json:"reactor_index"`

	Owner       string          `ch:"owner" json:"owner"`
	TotalStaked decimal.Decimal `ch:"total_staked" json:"total_staked"`
	Multiplier  int64           `ch:"multiplier" json:"multiplier"`
	Locked      bool            `ch:"locked" json:"locked"`

	// Penalty config with history
	PenaltyDuration int64          `ch:"penalty_duration" json:"penalty_duration"`
	WithdrawPenalty int64          `ch:"withdraw_penalty" json:"withdraw_penalty"`
	PenaltyReceiver string         `ch:"penalty_receiver" json:"penalty_receiver"`
	ConfigHistory   []ConfigChange `json:"config_history"`

	// Set semantics over insertion order; add/remove are idempotent.
	AuthorizedRewarders []string `json:"authorized_rewarders"`

	// reward token -> full reward schedule; RewardAdded replaces per token.
	ActiveRewards map[string]RewardState `json:"active_rewards"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
	UpdatedAt int64 `ch:"updated_at" json:"updated_at"`
}

// UserStake tracks one user's stake in one reactor.
// Unique per (reactor_address, user_address).
type UserStake struct {
	ReactorAddress string `ch:"reactor_address" json:"reactor_address"`
	UserAddress    string `ch:"user_address" json:"user_address"`

	StakedAmount   decimal.Decimal `ch:"staked_amount" json:"staked_amount"`
	PenaltyEndTime int64           `ch:"penalty_end_time" json:"penalty_end_time"`

	// reward token -> accumulator / pending balance
	RewardPerTokenPaid map[string]decimal.Decimal `json:"reward_per_token_paid"`
	Rewards            map[string]decimal.Decimal `json:"rewards"`

	USDValue decimal.Decimal `ch:"usd_value" json:"usd_value"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
	UpdatedAt int64 `ch:"updated_at" json:"updated_at"`
}

type StakeEventType string

const (
	StakeEventDeposit  StakeEventType = "DEPOSIT"
	StakeEventWithdraw StakeEventType = "WITHDRAW"
)

// StakeEvent is an append-only audit row, one per Deposit/Withdraw.
type StakeEvent struct {
	ReactorAddress string `ch:"reactor_address" json:"reactor_address"`
	Block          uint64 `ch:"block" json:"block"`
	EventIndex     uint32 `ch:"event_index" json:"event_index"`

	TxHash        string          `ch:"tx_hash" json:"tx_hash"`
	EventType     StakeEventType  `ch:"event_type" json:"event_type"`
	UserAddress   string          `ch:"user_address" json:"user_address"`
	StakedAmount  decimal.Decimal `ch:"staked_amount" json:"staked_amount"`
	PenaltyAmount decimal.Decimal `ch:"penalty_amount" json:"penalty_amount"` // withdrawals only

	CreatedAt int64 `ch:"created_at" json:"created_at"`
}

type RewardEventType string

const (
	RewardEventHarvest     RewardEventType = "HARVEST"
	RewardEventRewardAdded RewardEventType = "REWARD_ADDED"
)

// RewardEvent is an append-only audit row for Harvest and RewardAdded.
type RewardEvent struct {
	ReactorAddress string `ch:"reactor_address" json:"reactor_address"`
	Block          uint64 `ch:"block" json:"block"`
	EventIndex     uint32 `ch:"event_index" json:"event_index"`

	TxHash       string          `ch:"tx_hash" json:"tx_hash"`
	EventType    RewardEventType `ch:"event_type" json:"event_type"`
	UserAddress  string          `ch:"user_address" json:"user_address"` // harvester or rewarder
	RewardToken  string          `ch:"reward_token" json:"reward_token"`
	RewardAmount decimal.Decimal `ch:"reward_amount" json:"reward_amount"`

	// REWARD_ADDED only
	RewardRate     decimal.Decimal `ch:"reward_rate" json:"reward_rate"`
	RewardDuration int64           `ch:"reward_duration" json:"reward_duration"`
	PeriodFinish   int64           `ch:"period_finish" json:"period_finish"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
}
