package events

import "github.com/shopspring/decimal"

// Factory payloads

type FactoryInitializedPayload struct {
	Owner         string `json:"owner"`
	FeeTo         string `json:"fee_to"`
	PairClassHash string `json:"pair_contract_class_hash"`
}

type PairCreatedPayload struct {
	Pair       string `json:"pair"`
	Token0     string `json:"token0"`
	Token1     string `json:"token1"`
	TotalPairs int64  `json:"total_pairs"`
}

// ConfigUpdatePayload is shared by every old-value/new-value config event
// (owner, fee receiver, class hash, penalty receiver transitions).
type ConfigUpdatePayload struct {
	Previous string `json:"previous"`
	New      string `json:"new"`
}

// Pair payloads

type MintPayload struct {
	Sender         string          `json:"sender"`
	Amount0        decimal.Decimal `json:"amount0"`
	Amount1        decimal.Decimal `json:"amount1"`
	Reserve0       decimal.Decimal `json:"reserve0"`
	Reserve1       decimal.Decimal `json:"reserve1"`
	TotalSupply    decimal.Decimal `json:"total_supply"`
	UserLiquidity  decimal.Decimal `json:"user_liquidity"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"`
}

type BurnPayload struct {
	Sender         string          `json:"sender"`
	To             string          `json:"to"`
	Amount0        decimal.Decimal `json:"amount0"`
	Amount1        decimal.Decimal `json:"amount1"`
	Reserve0       decimal.Decimal `json:"reserve0"`
	Reserve1       decimal.Decimal `json:"reserve1"`
	TotalSupply    decimal.Decimal `json:"total_supply"`
	UserLiquidity  decimal.Decimal `json:"user_liquidity"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"`
}

type SwapPayload struct {
	Sender     string          `json:"sender"`
	To         string          `json:"to"`
	Amount0In  decimal.Decimal `json:"amount0_in"`
	Amount1In  decimal.Decimal `json:"amount1_in"`
	Amount0Out decimal.Decimal `json:"amount0_out"`
	Amount1Out decimal.Decimal `json:"amount1_out"`
	Reserve0   decimal.Decimal `json:"reserve0"`
	Reserve1   decimal.Decimal `json:"reserve1"`
}

type SyncPayload struct {
	Reserve0             decimal.Decimal `json:"reserve0"`
	Reserve1             decimal.Decimal `json:"reserve1"`
	Price0CumulativeLast decimal.Decimal `json:"price_0_cumulative_last"`
	Price1CumulativeLast decimal.Decimal `json:"price_1_cumulative_last"`
}

type SkimPayload struct {
	Sender  string          `json:"sender"`
	To      string          `json:"to"`
	Amount0 decimal.Decimal `json:"amount0"`
	Amount1 decimal.Decimal `json:"amount1"`
}

type ERC20RecoveredPayload struct {
	Token  string          `json:"token"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// Powerplant payloads

type PowerplantInitializedPayload struct {
	Owner            string `json:"owner"`
	ReactorClassHash string `json:"reactor_class_hash"`
}

type ReactorCreatedPayload struct {
	Reactor         string `json:"reactor"`
	LPTokenAddress  string `json:"lp_token"`
	ReactorIndex    int64  `json:"reactor_index"`
	Multiplier      int64  `json:"multiplier"`
	PenaltyDuration int64  `json:"penalty_duration"`
	WithdrawPenalty int64  `json:"withdraw_penalty"`
	PenaltyReceiver string `json:"penalty_receiver"`
}

// Reactor payloads

type DepositPayload struct {
	UserAddress    string          `json:"user_address"`
	StakedAmount   decimal.Decimal `json:"staked_amount"`
	TotalStaked    decimal.Decimal `json:"total_staked"`
	PenaltyEndTime int64           `json:"penalty_end_time"`
}

type WithdrawPayload struct {
	UserAddress    string          `json:"user_address"`
	StakedAmount   decimal.Decimal `json:"staked_amount"`
	PenaltyAmount  decimal.Decimal `json:"penalty_amount"`
	PenaltyEndTime int64           `json:"penalty_end_time"`
}

type HarvestPayload struct {
	UserAddress          string          `json:"user_address"`
	RewardToken          string          `json:"reward_token"`
	RewardAmount         decimal.Decimal `json:"reward_amount"`
	RewardPerTokenStored decimal.Decimal `json:"reward_per_token_stored"`
}

type RewardAddedPayload struct {
	Rewarder             string          `json:"rewarder"`
	RewardToken          string          `json:"reward_token"`
	RewardAmount         decimal.Decimal `json:"reward_amount"`
	RewardRate           decimal.Decimal `json:"reward_rate"`
	RewardDuration       int64           `json:"reward_duration"`
	PeriodFinish         int64           `json:"period_finish"`
	RewardPerTokenStored decimal.Decimal `json:"reward_per_token_stored"`
}

type RewarderPayload struct {
	Rewarder string `json:"rewarder"`
}

type UnallocatedRewardsClaimedPayload struct {
	RewardToken        string          `json:"reward_token"`
	To                 string          `json:"to"`
	Amount             decimal.Decimal `json:"amount"`
	UnallocatedRewards decimal.Decimal `json:"unallocated_rewards"`
}
