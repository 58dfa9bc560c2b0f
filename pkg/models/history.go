package models

import "github.com/shopspring/decimal"

// ConfigChange is a single append-only entry in an entity's config history.
// Old/new values come straight from the event payload, not from a diff against
// stored state.
type ConfigChange struct {
	Field     string `json:"field"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	Timestamp int64  `json:"timestamp"`
}

// RewardState is the full reward schedule for one reward token on a reactor.
// A RewardAdded event replaces the whole record for its token.
type RewardState struct {
	Rate                 decimal.Decimal  `json:"rate"`
	RewardAmount         decimal.Decimal  `json:"reward_amount"`
	Duration             int64            `json:"duration"`
	PeriodFinish         int64            `json:"period_finish"`
	RewardPerTokenStored decimal.Decimal  `json:"reward_per_token_stored"`
	Unallocated          *decimal.Decimal `json:"unallocated,omitempty"`
}
