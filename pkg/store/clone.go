package store

import (
	"github.com/shopspring/decimal"

	"github.com/defi-space/indexer/pkg/models"
)

// Deep copies keep stored rows isolated from caller mutation. Decimal values
// are immutable so only slices and maps need copying.

func cloneHistory(h []models.ConfigChange) []models.ConfigChange {
	if h == nil {
		return nil
	}
	out := make([]models.ConfigChange, len(h))
	copy(out, h)
	return out
}

func cloneDecimalMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneRewards(m map[string]models.RewardState) map[string]models.RewardState {
	if m == nil {
		return nil
	}
	out := make(map[string]models.RewardState, len(m))
	for k, v := range m {
		if v.Unallocated != nil {
			u := *v.Unallocated
			v.Unallocated = &u
		}
		out[k] = v
	}
	return out
}

func cloneFactory(f *models.Factory) *models.Factory {
	c := *f
	c.ConfigHistory = cloneHistory(f.ConfigHistory)
	return &c
}

func clonePair(p *models.Pair) *models.Pair {
	c := *p
	return &c
}

func clonePosition(p *models.LiquidityPosition) *models.LiquidityPosition {
	c := *p
	return &c
}

func cloneLiquidityEvent(e *models.LiquidityEvent) *models.LiquidityEvent {
	c := *e
	return &c
}

func cloneSwapEvent(e *models.SwapEvent) *models.SwapEvent {
	c := *e
	return &c
}

func clonePowerplant(p *models.Powerplant) *models.Powerplant {
	c := *p
	c.ConfigHistory = cloneHistory(p.ConfigHistory)
	return &c
}

func cloneReactor(r *models.Reactor) *models.Reactor {
	c := *r
	c.ConfigHistory = cloneHistory(r.ConfigHistory)
	if r.AuthorizedRewarders != nil {
		c.AuthorizedRewarders = make([]string, len(r.AuthorizedRewarders))
		copy(c.AuthorizedRewarders, r.AuthorizedRewarders)
	}
	c.ActiveRewards = cloneRewards(r.ActiveRewards)
	return &c
}

func cloneUserStake(s *models.UserStake) *models.UserStake {
	c := *s
	c.RewardPerTokenPaid = cloneDecimalMap(s.RewardPerTokenPaid)
	c.Rewards = cloneDecimalMap(s.Rewards)
	return &c
}

func cloneStakeEvent(e *models.StakeEvent) *models.StakeEvent {
	c := *e
	return &c
}

func cloneRewardEvent(e *models.RewardEvent) *models.RewardEvent {
	c := *e
	return &c
}
