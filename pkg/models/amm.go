package models

import "github.com/shopspring/decimal"

const FactoriesTableName = "factories"
const PairsTableName = "pairs"
const LiquidityPositionsTableName = "liquidity_positions"
const LiquidityEventsTableName = "liquidity_events"
const SwapEventsTableName = "swap_events"

// TradingFeeRate is the protocol swap fee (0.3%) used for accumulated fees and
// 24h APY derivation.
var TradingFeeRate = decimal.RequireFromString("0.003")

// Factory is the root contract of an AMM deployment. One row per factory
// address, created once on FactoryInitialized and never deleted.
type Factory struct {
	Address string `ch:"address" json:"address"`

	NumOfPairs          int64           `ch:"num_of_pairs" json:"num_of_pairs"`
	TotalValueLockedUSD decimal.Decimal `ch:"total_value_locked_usd" json:"total_value_locked_usd"`

	// Config with history
	Owner         string         `ch:"owner" json:"owner"`
	FeeTo         string         `ch:"fee_to" json:"fee_to"`
	PairClassHash string         `ch:"pair_class_hash" json:"pair_class_hash"`
	ConfigHistory []ConfigChange `json:"config_history"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
	UpdatedAt int64 `ch:"updated_at" json:"updated_at"`
}

// Pair is one two-token liquidity pool owned by a Factory.
//
// Reserves, total supply and the TWAP accumulators are overwritten with the
// authoritative values carried by each event; klast is recomputed as
// reserve0*reserve1 from the newly written reserves on every reserve-mutating
// event. The derived USD fields are written only by the metrics engine.
type Pair struct {
	Address string `ch:"address" json:"address"`

	FactoryAddress string `ch:"factory_address" json:"factory_address"`
	Token0Address  string `ch:"token0_address" json:"token0_address"`
	Token1Address  string `ch:"token1_address" json:"token1_address"`

	Reserve0    decimal.Decimal `ch:"reserve0" json:"reserve0"`
	Reserve1    decimal.Decimal `ch:"reserve1" json:"reserve1"`
	TotalSupply decimal.Decimal `ch:"total_supply" json:"total_supply"`
	KLast       decimal.Decimal `ch:"klast" json:"klast"`

	// TWAP data
	Price0CumulativeLast decimal.Decimal `ch:"price0_cumulative_last" json:"price0_cumulative_last"`
	Price1CumulativeLast decimal.Decimal `ch:"price1_cumulative_last" json:"price1_cumulative_last"`
	BlockTimestampLast   int64           `ch:"block_timestamp_last" json:"block_timestamp_last"`

	// Derived metrics (metrics engine only)
	Token0PriceUSD        decimal.Decimal `ch:"token0_price_usd" json:"token0_price_usd"`
	Token1PriceUSD        decimal.Decimal `ch:"token1_price_usd" json:"token1_price_usd"`
	Volume24hUSD          decimal.Decimal `ch:"volume_24h_usd" json:"volume_24h_usd"`
	TVLUSD                decimal.Decimal `ch:"tvl_usd" json:"tvl_usd"`
	APY24h                decimal.Decimal `ch:"apy_24h" json:"apy_24h"`
	AccumulatedFeesToken0 decimal.Decimal `ch:"accumulated_fees_token0" json:"accumulated_fees_token0"`
	AccumulatedFeesToken1 decimal.Decimal `ch:"accumulated_fees_token1" json:"accumulated_fees_token1"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
	UpdatedAt int64 `ch:"updated_at" json:"updated_at"`
}

// LiquidityPosition tracks one user's LP balance in one pair.
// Unique per (pair_address, user_address).
type LiquidityPosition struct {
	PairAddress string `ch:"pair_address" json:"pair_address"`
	UserAddress string `ch:"user_address" json:"user_address"`

	// Current LP token balance, overwritten from each Mint/Burn payload.
	Liquidity decimal.Decimal `ch:"liquidity" json:"liquidity"`

	// Cumulative lifetime amounts.
	DepositsToken0    decimal.Decimal `ch:"deposits_token0" json:"deposits_token0"`
	DepositsToken1    decimal.Decimal `ch:"deposits_token1" json:"deposits_token1"`
	WithdrawalsToken0 decimal.Decimal `ch:"withdrawals_token0" json:"withdrawals_token0"`
	WithdrawalsToken1 decimal.Decimal `ch:"withdrawals_token1" json:"withdrawals_token1"`

	USDValue decimal.Decimal `ch:"usd_value" json:"usd_value"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
	UpdatedAt int64 `ch:"updated_at" json:"updated_at"`
}

type LiquidityEventType string

const (
	LiquidityEventMint LiquidityEventType = "MINT"
	LiquidityEventBurn LiquidityEventType = "BURN"
)

// LiquidityEvent is an append-only audit row, one per on-chain Mint/Burn.
// Keyed by (pair_address, block, event_index) so a replayed event lands on the
// same row instead of duplicating history.
type LiquidityEvent struct {
	PairAddress string `ch:"pair_address" json:"pair_address"`
	Block       uint64 `ch:"block" json:"block"`
	EventIndex  uint32 `ch:"event_index" json:"event_index"`

	TxHash      string             `ch:"tx_hash" json:"tx_hash"`
	EventType   LiquidityEventType `ch:"event_type" json:"event_type"`
	Sender      string             `ch:"sender" json:"sender"`
	UserAddress string             `ch:"user_address" json:"user_address"`
	Amount0     decimal.Decimal    `ch:"amount0" json:"amount0"`
	Amount1     decimal.Decimal    `ch:"amount1" json:"amount1"`
	Liquidity   decimal.Decimal    `ch:"liquidity" json:"liquidity"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
}

// SwapEvent is an append-only audit row, one per on-chain Swap.
type SwapEvent struct {
	PairAddress string `ch:"pair_address" json:"pair_address"`
	Block       uint64 `ch:"block" json:"block"`
	EventIndex  uint32 `ch:"event_index" json:"event_index"`

	TxHash     string          `ch:"tx_hash" json:"tx_hash"`
	Sender     string          `ch:"sender" json:"sender"`
	Amount0In  decimal.Decimal `ch:"amount0_in" json:"amount0_in"`
	Amount1In  decimal.Decimal `ch:"amount1_in" json:"amount1_in"`
	Amount0Out decimal.Decimal `ch:"amount0_out" json:"amount0_out"`
	Amount1Out decimal.Decimal `ch:"amount1_out" json:"amount1_out"`

	CreatedAt int64 `ch:"created_at" json:"created_at"`
}
