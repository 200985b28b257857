/*

This file contains the accrual engine. Yield is computed lazily, on demand,
from elapsed wall time against a fixed flat rate; nothing is accumulated per
tick. The rate is deliberately decoupled from pool funding: sufficiency is
checked only at payout time, so an under-funded pool makes the payout fail
loudly rather than silently shorting the position.

*/

package ledger

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeward/stakeward/internal/types"
)

// accrue computes value * rateBps * elapsed / (BasisPoints * RewardDuration)
// with truncating integer division. Zero for non-positive value, zero rate,
// or non-positive elapsed time, and monotone non-decreasing in elapsed.
func accrue(value sdkmath.Int, rateBps int64, elapsed time.Duration) sdkmath.Int {
	if value.IsNil() || !value.IsPositive() || rateBps == 0 || elapsed <= 0 {
		return sdkmath.ZeroInt()
	}
	num := value.MulRaw(rateBps).MulRaw(int64(elapsed / time.Second))
	den := sdkmath.NewInt(types.BasisPoints).MulRaw(int64(types.RewardDuration / time.Second))
	return num.Quo(den)
}

// stakingReward returns the pending staking yield for the account at the
// given instant. Caller must hold the guard.
func stakingReward(acct *types.Account, now time.Time) sdkmath.Int {
	if !acct.IsStaker || acct.StakeTimestamp.IsZero() {
		return sdkmath.ZeroInt()
	}
	return accrue(acct.StakedValueUSD, types.StakeRateBps, now.Sub(acct.StakeTimestamp))
}

// depositorReward returns the idle-deposit yield for the account at the
// given instant, in the units of the account's idle balance.
func depositorReward(acct *types.Account, asset types.AssetType, now time.Time) sdkmath.Int {
	if !acct.IsDepositor || acct.DepositTimestamp.IsZero() {
		return sdkmath.ZeroInt()
	}
	return accrue(acct.IdleBalance(asset), types.DepositorRateBps, now.Sub(acct.DepositTimestamp))
}

// PendingReward returns the staking yield the principal would be owed if
// they unstaked now. Read-only: zero when not staking, nothing staked, zero
// rate, or no elapsed time.
func (l *Ledger) PendingReward(principal string) (sdkmath.Int, error) {
	if err := l.enter(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer l.exit()

	acct, ok := l.accounts[principal]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return stakingReward(acct, l.clock.Now()), nil
}
