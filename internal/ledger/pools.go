/*

This file contains the reward pool manager surface.

NotifyReward drives the funding schedule of a staking pool: initial funding,
a leftover-decaying extension while the schedule is live, or an override once
it has elapsed. The schedule counters are bookkeeping for finish-time and
override events only; the payable balance is a separate counter credited
additively by every funding path and debited by payouts, so no schedule
branch can ever destroy funds a payout depends on.

*/

package ledger

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeward/stakeward/internal/types"
)

// NotifyReward tops up or overrides a staking pool's funding schedule.
// Owner-only, rejected while paused and for zero amounts.
func (l *Ledger) NotifyReward(caller string, asset types.AssetType, amount sdkmath.Int) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	if caller != l.owner {
		return ErrUnauthorized
	}
	if l.paused.Load() {
		return ErrPaused
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroReward
	}

	pool := l.stakingPools[asset]
	now := l.clock.Now()
	opID := newOpID()

	switch {
	case pool.Scheduled.IsZero():
		// Initial funding of an empty schedule.
		pool.Scheduled = amount
		pool.ScheduleEnd = now.Add(types.RewardDuration)
		l.emit(opID, types.EventRewardAdded, caller, asset, amount, nil)

	case pool.ScheduleEnd.After(now):
		// Extend a live schedule: linearly decay the unspent portion, then
		// restart the clock with the combined total.
		leftover := scheduleLeftover(pool.Scheduled, pool.ScheduleEnd.Sub(now))
		pool.Scheduled = leftover.Add(amount)
		pool.ScheduleEnd = now.Add(types.RewardDuration)
		l.emit(opID, types.EventRewardExtended, caller, asset, pool.Scheduled,
			map[string]string{
				"leftover":     leftover.String(),
				"schedule_end": pool.ScheduleEnd.UTC().Format(time.RFC3339),
			})

	default:
		// Schedule elapsed; residual bookkeeping is overwritten. The payable
		// counter below is untouched by this branch.
		pool.Scheduled = amount
		pool.ScheduleEnd = now.Add(types.RewardDuration)
		l.emit(opID, types.EventRewardAdded, caller, asset, amount, nil)
	}

	pool.Remaining = pool.Remaining.Add(amount)
	pool.LastUpdate = now
	return nil
}

// scheduleLeftover computes remaining * timeLeft / RewardDuration with
// truncating integer division.
func scheduleLeftover(scheduled sdkmath.Int, timeLeft time.Duration) sdkmath.Int {
	if !scheduled.IsPositive() || timeLeft <= 0 {
		return sdkmath.ZeroInt()
	}
	return scheduled.
		MulRaw(int64(timeLeft / time.Second)).
		QuoRaw(int64(types.RewardDuration / time.Second))
}

// FundStakingPool unconditionally credits a staking pool's payable balance
// with no schedule bookkeeping.
func (l *Ledger) FundStakingPool(caller string, asset types.AssetType, amount sdkmath.Int) error {
	return l.fundPool(caller, types.PoolStaking, asset, amount)
}

// FundDepositorPool unconditionally credits a depositor pool's payable
// balance.
func (l *Ledger) FundDepositorPool(caller string, asset types.AssetType, amount sdkmath.Int) error {
	return l.fundPool(caller, types.PoolDepositor, asset, amount)
}

func (l *Ledger) fundPool(caller string, kind types.PoolKind, asset types.AssetType, amount sdkmath.Int) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	if caller != l.owner {
		return ErrUnauthorized
	}
	if l.paused.Load() {
		return ErrPaused
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrZeroReward
	}

	pool := l.stakingPools[asset]
	if kind == types.PoolDepositor {
		pool = l.depositorPools[asset]
	}
	pool.Remaining = pool.Remaining.Add(amount)
	pool.LastUpdate = l.clock.Now()

	l.emit(newOpID(), types.EventPoolFunded, caller, asset, amount,
		map[string]string{"pool": kind.String()})
	return nil
}
