/*

This file contains the protocol parameters for the staking vault.

The rates are flat: a staked position accrues StakeRateBps of its USD value
over RewardDuration regardless of how much has been funded into the matching
pool. Pool sufficiency is checked only at payout time, so an under-funded
pool makes the payout fail loudly instead of silently shorting the user.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

const (
	// BasisPoints is the denominator for all rate constants (10000 = 100%).
	BasisPoints = 10_000

	// StakeRateBps is the flat staking accrual rate over RewardDuration.
	StakeRateBps = 5_000

	// DepositorRateBps is the flat idle-deposit accrual rate over
	// RewardDuration.
	DepositorRateBps = 1_000

	// RewardDuration is the horizon of both accrual formulas and the length
	// of a NotifyReward funding schedule.
	RewardDuration = 200 * 24 * time.Hour

	// Cooldown is the mandatory delay between finalizing an unstake and
	// being allowed to withdraw its payout.
	Cooldown = 24 * time.Hour

	// KeeperDeviationBps is the cached-vs-live price deviation at which the
	// keeper refreshes its snapshot (200 bps = 2%).
	KeeperDeviationBps = 200
)

// PriceScale is the fixed-point scale of oracle prices and USD values
// (18 decimals).
var PriceScale = sdkmath.NewIntWithDecimal(1, 18)

// Bounds holds the per-asset deposit and stake limits. Native deposits are
// bounded on their USD-normalized value; token deposits are bounded on raw
// units since the token is USD-pegged 1:1. Stake bounds are always
// USD-normalized.
type Bounds struct {
	MinDepositUSD   sdkmath.Int `json:"min_deposit_usd"`
	MaxDepositUSD   sdkmath.Int `json:"max_deposit_usd"`
	MinDepositToken sdkmath.Int `json:"min_deposit_token"`
	MaxDepositToken sdkmath.Int `json:"max_deposit_token"`
	MinStakeUSD     sdkmath.Int `json:"min_stake_usd"`
	MaxStakeUSD     sdkmath.Int `json:"max_stake_usd"`
}

// DefaultBounds returns the baseline limits, all expressed at PriceScale.
func DefaultBounds() Bounds {
	return Bounds{
		MinDepositUSD:   sdkmath.NewIntWithDecimal(10, 18),
		MaxDepositUSD:   sdkmath.NewIntWithDecimal(1_000_000, 18),
		MinDepositToken: sdkmath.NewIntWithDecimal(10, 18),
		MaxDepositToken: sdkmath.NewIntWithDecimal(1_000_000, 18),
		MinStakeUSD:     sdkmath.NewIntWithDecimal(10, 18),
		MaxStakeUSD:     sdkmath.NewIntWithDecimal(500_000, 18),
	}
}

// Validate checks the limits are internally consistent.
func (b Bounds) Validate() error {
	pairs := []struct {
		name     string
		min, max sdkmath.Int
	}{
		{"deposit_usd", b.MinDepositUSD, b.MaxDepositUSD},
		{"deposit_token", b.MinDepositToken, b.MaxDepositToken},
		{"stake_usd", b.MinStakeUSD, b.MaxStakeUSD},
	}
	for _, p := range pairs {
		if p.min.IsNil() || p.max.IsNil() {
			return errBoundsNil(p.name)
		}
		if p.min.IsNegative() || p.max.LT(p.min) {
			return errBoundsOrder(p.name)
		}
	}
	return nil
}
