/*

This file contains the state-transition controller: the public mutating
surface over the account store and the reward pools.

Discipline shared by every operation here: acquire the non-reentrant guard
first, validate everything next, mutate internal state before any external
transfer (checks-effects-interactions), and on a failed outbound transfer
restore the pre-call snapshot exactly so no partial state ever commits.

*/

package ledger

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeward/stakeward/internal/types"
)

// nullTime is the "unset" instant for timestamp fields.
func nullTime() time.Time { return time.Time{} }

// clearDepositorIfEmpty drops the depositor state only once no idle balance
// remains in either asset, so paying out one asset never strands a balance
// still held in the other.
func clearDepositorIfEmpty(acct *types.Account) {
	if acct.NativeBalance.IsZero() && acct.TokenBalance.IsZero() {
		acct.DepositTimestamp = nullTime()
		acct.IsDepositor = false
	}
}

// Deposit credits the principal's idle balance. Native deposits arrive as
// the operation's transferred value; token deposits are pulled through the
// collaborator's transfer-from primitive and fail the whole operation when
// the pull does not succeed. The deposit timestamp resets on every deposit,
// not only the first.
func (l *Ledger) Deposit(ctx context.Context, principal string, asset types.AssetType, amount sdkmath.Int) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	if l.paused.Load() {
		return ErrPaused
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}

	d := l.descriptor(asset)
	price, err := l.fetchPrice(ctx, d)
	if err != nil {
		return err
	}
	checkValue, err := d.depositCheckValue(amount, price)
	if err != nil {
		return err
	}
	if checkValue.LT(d.minDeposit) || checkValue.GT(d.maxDeposit) {
		return ErrDepositOutOfBounds
	}

	if asset == types.AssetToken {
		ok, err := l.token.TransferFrom(ctx, principal, l.vault, amount)
		if err != nil || !ok {
			l.logger.Warn().Err(err).Str("principal", principal).Msg("Token pull failed on deposit")
			return ErrTransferFromFailed
		}
	} else {
		// Native value is only credited once the settlement service confirms
		// it has collected the funds into the vault account.
		ok, err := l.native.Collect(ctx, principal, amount)
		if err != nil || !ok {
			l.logger.Warn().Err(err).Str("principal", principal).Msg("Native collect failed on deposit")
			return ErrNativeCollectFailed
		}
	}

	acct := l.account(principal)
	acct.IsDepositor = true
	acct.DepositTimestamp = l.clock.Now()
	acct.SetIdleBalance(asset, acct.IdleBalance(asset).Add(amount))

	l.emit(newOpID(), types.EventDeposited, principal, asset, amount, nil)
	return nil
}

// Stake relabels idle balance as staked value. The first stake starts the
// accrual clock; a top-up stake while already staking keeps the original
// stake timestamp so already-accruing value never loses its clock.
func (l *Ledger) Stake(ctx context.Context, principal string, asset types.AssetType, amount sdkmath.Int) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	if l.paused.Load() {
		return ErrPaused
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}

	acct, ok := l.accounts[principal]
	if !ok || !acct.IsDepositor {
		return ErrNotDepositor
	}
	// One staked position per account: topping up in a different asset would
	// silently merge two positions into one USD total.
	if acct.IsStaker && acct.Asset != asset {
		return ErrStakeAssetMismatch
	}
	// Also rejects staking an asset type the account never deposited.
	if acct.IdleBalance(asset).LT(amount) {
		return ErrInsufficientFunds
	}

	d := l.descriptor(asset)
	price, err := l.fetchPrice(ctx, d)
	if err != nil {
		return err
	}
	stakeUSD, err := d.toStakeUSD(amount, price)
	if err != nil {
		return err
	}
	if stakeUSD.LT(l.bounds.MinStakeUSD) || stakeUSD.GT(l.bounds.MaxStakeUSD) {
		return ErrStakeLimitExceeded
	}

	if !acct.IsStaker {
		acct.IsStaker = true
		acct.StakeTimestamp = l.clock.Now()
	}
	acct.SetIdleBalance(asset, acct.IdleBalance(asset).Sub(amount))
	acct.StakedValueUSD = acct.StakedValueUSD.Add(stakeUSD)
	acct.Asset = asset

	l.emit(newOpID(), types.EventStaked, principal, asset, amount,
		map[string]string{"stake_value_usd": stakeUSD.String()})
	return nil
}

// Unstake finalizes the staked position: the pending reward is debited from
// the asset-matching staking pool (or the whole call fails with no state
// change), principal plus reward are converted back to the account's native
// unit and frozen as the finalized payout, and the cooldown starts.
func (l *Ledger) Unstake(ctx context.Context, principal string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	if l.paused.Load() {
		return ErrPaused
	}

	acct, ok := l.accounts[principal]
	if !ok || !acct.IsStaker {
		return ErrNotStaker
	}

	now := l.clock.Now()
	reward := stakingReward(acct, now)

	d := l.descriptor(acct.Asset)
	price, err := l.fetchPrice(ctx, d)
	if err != nil {
		return err
	}

	pool := l.stakingPools[acct.Asset]
	if reward.GT(pool.Remaining) {
		return ErrInsufficientRewardPool
	}

	payout, err := d.fromStakeUSD(acct.StakedValueUSD.Add(reward), price)
	if err != nil {
		return err
	}

	pool.Remaining = pool.Remaining.Sub(reward)
	// Accumulate rather than overwrite: a second unstake before the first
	// payout is collected must not destroy the frozen amount.
	acct.FinalizedReward = acct.FinalizedReward.Add(payout)
	acct.StakedValueUSD = sdkmath.ZeroInt()
	acct.StakeTimestamp = nullTime()
	acct.IsStaker = false
	acct.UnstakeReadyAt = now.Add(types.Cooldown)

	l.emit(newOpID(), types.EventUnstaked, principal, d.asset, payout,
		map[string]string{
			"reward":           reward.String(),
			"unstake_ready_at": acct.UnstakeReadyAt.UTC().Format(time.RFC3339),
		})
	return nil
}

// Withdraw pays the principal out. The branch is selected by account state,
// not caller intent: a finalized unstake waiting behind its cooldown wins;
// otherwise an idle depositor is paid principal plus depositor yield from
// the asset-matching depositor pool.
func (l *Ledger) Withdraw(ctx context.Context, principal string, asset types.AssetType) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	if l.paused.Load() {
		return ErrPaused
	}

	acct, ok := l.accounts[principal]
	if !ok {
		return ErrNotDepositorOrStaker
	}

	d := l.descriptor(asset)
	now := l.clock.Now()

	if acct.Asset == asset && acct.FinalizedReward.IsPositive() {
		return l.withdrawFinalized(ctx, d, acct, now)
	}
	if acct.IsDepositor {
		return l.withdrawIdle(ctx, d, acct, now)
	}
	return ErrNotDepositorOrStaker
}

// withdrawFinalized pays out idle balance plus the finalized unstake payout
// in one transfer, after the cooldown.
func (l *Ledger) withdrawFinalized(ctx context.Context, d assetDescriptor, acct *types.Account, now time.Time) error {
	if now.Before(acct.UnstakeReadyAt) {
		return ErrCooldownActive
	}

	payout := acct.IdleBalance(d.asset).Add(acct.FinalizedReward)

	snapshot := acct.Clone()
	acct.SetIdleBalance(d.asset, sdkmath.ZeroInt())
	acct.FinalizedReward = sdkmath.ZeroInt()
	acct.UnstakeReadyAt = nullTime()
	clearDepositorIfEmpty(acct)

	ok, err := l.payOut(ctx, d, acct.Principal, payout)
	if err != nil || !ok {
		*acct = *snapshot
		l.logger.Warn().Err(err).Str("principal", acct.Principal).Msg("Outbound transfer failed on finalized withdraw")
		return ErrWithdrawFailed
	}

	l.emit(newOpID(), types.EventWithdrawn, acct.Principal, d.asset, payout,
		map[string]string{"branch": "finalized"})
	l.reap(acct)
	return nil
}

// withdrawIdle pays out idle balance plus the depositor yield, debited from
// the asset-matching depositor pool with the same insufficiency semantics as
// staking payouts.
func (l *Ledger) withdrawIdle(ctx context.Context, d assetDescriptor, acct *types.Account, now time.Time) error {
	// A depositor must hold a position in the requested asset. Without this
	// check a zero-amount payout would still clear the depositor flag and
	// strand any balance held in the other asset.
	if !acct.IdleBalance(d.asset).IsPositive() {
		return ErrInsufficientFunds
	}

	reward := depositorReward(acct, d.asset, now)

	pool := l.depositorPools[d.asset]
	if reward.GT(pool.Remaining) {
		return ErrInsufficientRewardPool
	}

	payout := acct.IdleBalance(d.asset).Add(reward)

	snapshot := acct.Clone()
	poolSnapshot := pool.Clone()
	pool.Remaining = pool.Remaining.Sub(reward)
	acct.SetIdleBalance(d.asset, sdkmath.ZeroInt())
	clearDepositorIfEmpty(acct)

	ok, err := l.payOut(ctx, d, acct.Principal, payout)
	if err != nil || !ok {
		*acct = *snapshot
		*pool = *poolSnapshot
		l.logger.Warn().Err(err).Str("principal", acct.Principal).Msg("Outbound transfer failed on idle withdraw")
		return ErrWithdrawFailed
	}

	l.emit(newOpID(), types.EventWithdrawn, acct.Principal, d.asset, payout,
		map[string]string{"branch": "depositor", "reward": reward.String()})
	l.reap(acct)
	return nil
}
