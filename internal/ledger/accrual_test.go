package ledger

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/stakeward/stakeward/internal/types"
)

func TestAccrueTruncates(t *testing.T) {
	// 3 * 5000 * 1s / (10000 * 200d) truncates to zero.
	got := accrue(sdkmath.NewInt(3), types.StakeRateBps, time.Second)
	require.True(t, got.IsZero())

	// A full duration at the full rate yields exactly rate/10000 of the value.
	got = accrue(units(100), types.StakeRateBps, types.RewardDuration)
	require.Equal(t, units(50), got)
}

func TestAccrueZeroCases(t *testing.T) {
	require.True(t, accrue(sdkmath.ZeroInt(), types.StakeRateBps, time.Hour).IsZero())
	require.True(t, accrue(units(100), 0, time.Hour).IsZero())
	require.True(t, accrue(units(100), types.StakeRateBps, 0).IsZero())
	require.True(t, accrue(units(100), types.StakeRateBps, -time.Hour).IsZero())
}

func TestAccrueMonotone(t *testing.T) {
	prev := sdkmath.ZeroInt()
	for _, elapsed := range []time.Duration{
		time.Minute, time.Hour, 24 * time.Hour, 30 * 24 * time.Hour, types.RewardDuration,
	} {
		got := accrue(units(1234), types.StakeRateBps, elapsed)
		require.True(t, got.GTE(prev), "accrual must not decrease as time passes")
		prev = got
	}
}

func TestPendingRewardAbsentAndIdle(t *testing.T) {
	h := newTestHarness(t)

	pending, err := h.ledger.PendingReward("nobody")
	require.NoError(t, err)
	require.True(t, pending.IsZero())

	// Depositing without staking accrues no staking yield.
	h.mustDeposit(t, alice, types.AssetNative, units(2))
	h.clock.Advance(10 * 24 * time.Hour)
	pending, err = h.ledger.PendingReward(alice)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
}

func TestPendingRewardZeroElapsed(t *testing.T) {
	h := newTestHarness(t)
	h.mustDeposit(t, alice, types.AssetNative, units(2))
	h.mustStake(t, alice, types.AssetNative, units(1))

	pending, err := h.ledger.PendingReward(alice)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
}

// Deposit 2 native units, stake 1 at a fixed $2,000 price, wait 50 days:
// the pending reward is stakeValueUsd * 5000 * 50d / (10000 * 200d), exactly
// one eighth of the staked value. Funding the pool then lets the unstake
// freeze principal plus reward back in native units and start the cooldown.
func TestFiftyDayAccrualLifecycle(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	h.mustDeposit(t, alice, types.AssetNative, units(2))
	h.mustStake(t, alice, types.AssetNative, units(1))

	h.clock.Advance(50 * 24 * time.Hour)

	stakeUSD := units(2000)
	want := stakeUSD.
		MulRaw(types.StakeRateBps).
		MulRaw(int64((50 * 24 * time.Hour) / time.Second)).
		Quo(sdkmath.NewInt(types.BasisPoints).MulRaw(int64(types.RewardDuration / time.Second)))
	require.Equal(t, units(250), want)

	pending, err := h.ledger.PendingReward(alice)
	require.NoError(t, err)
	require.Equal(t, want, pending)

	// Unfunded pool: the payout must fail loudly with no state change.
	err = h.ledger.Unstake(ctx, alice)
	require.ErrorIs(t, err, ErrInsufficientRewardPool)

	require.NoError(t, h.ledger.FundStakingPool(testOwner, types.AssetNative, units(300)))
	require.NoError(t, h.ledger.Unstake(ctx, alice))

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.False(t, acct.IsStaker)
	require.True(t, acct.StakedValueUSD.IsZero())
	require.True(t, acct.StakeTimestamp.IsZero())
	// ($2,000 + $250) / $2,000 = 1.125 native units frozen.
	require.Equal(t, sdkmath.NewIntWithDecimal(1125, 15), acct.FinalizedReward)
	require.Equal(t, h.clock.Now().Add(types.Cooldown), acct.UnstakeReadyAt)

	// The pool was debited by the reward, not the payout.
	pools, err := h.ledger.PoolSnapshots()
	require.NoError(t, err)
	for _, p := range pools {
		if p.Kind == types.PoolStaking.String() && p.Asset == types.AssetNative.String() {
			require.Equal(t, units(50), p.Remaining)
		}
	}
}

func TestUnstakeRequiresStaker(t *testing.T) {
	h := newTestHarness(t)
	err := h.ledger.Unstake(context.Background(), alice)
	require.ErrorIs(t, err, ErrNotStaker)

	h.mustDeposit(t, alice, types.AssetNative, units(2))
	err = h.ledger.Unstake(context.Background(), alice)
	require.ErrorIs(t, err, ErrNotStaker)
}

func TestUnstakeAccumulatesFinalizedReward(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	h.mustDeposit(t, alice, types.AssetNative, units(4))
	h.mustStake(t, alice, types.AssetNative, units(1))
	require.NoError(t, h.ledger.Unstake(ctx, alice))

	first, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, units(1), first.FinalizedReward)

	// Re-stake and unstake again before collecting: the second finalized
	// amount stacks on the first instead of overwriting it.
	h.mustStake(t, alice, types.AssetNative, units(1))
	require.NoError(t, h.ledger.Unstake(ctx, alice))

	second, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, units(2), second.FinalizedReward)
}

func TestTokenStakeAccruesWithoutOracle(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	h.mustDeposit(t, alice, types.AssetToken, units(1000))
	h.mustStake(t, alice, types.AssetToken, units(400))

	h.clock.Advance(types.RewardDuration)

	// Full duration at 5000 bps: half the staked value.
	pending, err := h.ledger.PendingReward(alice)
	require.NoError(t, err)
	require.Equal(t, units(200), pending)

	require.NoError(t, h.ledger.FundStakingPool(testOwner, types.AssetToken, units(200)))
	require.NoError(t, h.ledger.Unstake(ctx, alice))

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	// Token positions are USD 1:1, so the frozen payout is principal + reward.
	require.Equal(t, units(600), acct.FinalizedReward)
	require.Equal(t, units(600), acct.TokenBalance)
}
