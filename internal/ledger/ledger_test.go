package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/stakeward/stakeward/internal/oracle"
	"github.com/stakeward/stakeward/internal/types"
)

const (
	testOwner = "owner"
	testVault = "vault"
	alice     = "alice"
)

// $2,000 per native unit, 18-decimal scaled.
var testPrice = sdkmath.NewIntWithDecimal(2000, 18)

func units(n int64) sdkmath.Int { return sdkmath.NewIntWithDecimal(n, 18) }

type fakeToken struct {
	mu         sync.Mutex
	pullOK     bool
	pullErr    error
	payOK      bool
	payErr     error
	onTransfer func()
	pulled     []sdkmath.Int
	paid       []sdkmath.Int
}

func newFakeToken() *fakeToken {
	return &fakeToken{pullOK: true, payOK: true}
}

func (f *fakeToken) TransferFrom(_ context.Context, _, _ string, amount sdkmath.Int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullErr != nil || !f.pullOK {
		return false, f.pullErr
	}
	f.pulled = append(f.pulled, amount)
	return true, nil
}

func (f *fakeToken) Transfer(_ context.Context, _ string, amount sdkmath.Int) (bool, error) {
	if f.onTransfer != nil {
		f.onTransfer()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payErr != nil || !f.payOK {
		return false, f.payErr
	}
	f.paid = append(f.paid, amount)
	return true, nil
}

func (f *fakeToken) BalanceOf(context.Context, string) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), nil
}

type fakeSettler struct {
	collectOK  bool
	collectErr error
	payOK      bool
	payErr     error
	onTransfer func()
	collected  []sdkmath.Int
	paid       []sdkmath.Int
}

func newFakeSettler() *fakeSettler { return &fakeSettler{collectOK: true, payOK: true} }

func (f *fakeSettler) Collect(_ context.Context, _ string, amount sdkmath.Int) (bool, error) {
	if f.collectErr != nil || !f.collectOK {
		return false, f.collectErr
	}
	f.collected = append(f.collected, amount)
	return true, nil
}

func (f *fakeSettler) Transfer(_ context.Context, _ string, amount sdkmath.Int) (bool, error) {
	if f.onTransfer != nil {
		f.onTransfer()
	}
	if f.payErr != nil || !f.payOK {
		return false, f.payErr
	}
	f.paid = append(f.paid, amount)
	return true, nil
}

type captureRecorder struct {
	events []types.Event
}

func (c *captureRecorder) RecordEvent(evt types.Event) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *captureRecorder) lastOfType(eventType string) (types.Event, bool) {
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == eventType {
			return c.events[i], true
		}
	}
	return types.Event{}, false
}

type testHarness struct {
	ledger   *Ledger
	clock    *clockwork.FakeClock
	token    *fakeToken
	settler  *fakeSettler
	recorder *captureRecorder
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	token := newFakeToken()
	settler := newFakeSettler()
	recorder := &captureRecorder{}

	l, err := New(Config{
		Owner:        testOwner,
		VaultAddress: testVault,
		Bounds:       types.DefaultBounds(),
		PriceSource:  oracle.NewStatic(testPrice),
		Token:        token,
		Native:       settler,
		Recorder:     recorder,
		Clock:        clock,
	})
	require.NoError(t, err)
	return &testHarness{ledger: l, clock: clock, token: token, settler: settler, recorder: recorder}
}

func (h *testHarness) mustDeposit(t *testing.T, principal string, asset types.AssetType, amount sdkmath.Int) {
	t.Helper()
	require.NoError(t, h.ledger.Deposit(context.Background(), principal, asset, amount))
}

func (h *testHarness) mustStake(t *testing.T, principal string, asset types.AssetType, amount sdkmath.Int) {
	t.Helper()
	require.NoError(t, h.ledger.Stake(context.Background(), principal, asset, amount))
}

func TestDepositCreditsIdleBalance(t *testing.T) {
	h := newTestHarness(t)

	h.mustDeposit(t, alice, types.AssetNative, units(2))

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.True(t, acct.IsDepositor)
	require.Equal(t, units(2), acct.NativeBalance)
	require.Equal(t, h.clock.Now(), acct.DepositTimestamp)

	evt, ok := h.recorder.lastOfType(types.EventDeposited)
	require.True(t, ok)
	require.Equal(t, alice, evt.Principal)
	require.Equal(t, units(2), evt.Amount)
}

func TestDepositResetsTimestampEveryTime(t *testing.T) {
	h := newTestHarness(t)

	h.mustDeposit(t, alice, types.AssetNative, units(2))
	first := h.clock.Now()

	h.clock.Advance(48 * time.Hour)
	h.mustDeposit(t, alice, types.AssetNative, units(1))

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, units(3), acct.NativeBalance)
	require.True(t, acct.DepositTimestamp.After(first))
}

func TestDepositBounds(t *testing.T) {
	h := newTestHarness(t)

	// 0.001 native units = $2, below the $10 USD floor.
	tiny := sdkmath.NewIntWithDecimal(1, 15)
	err := h.ledger.Deposit(context.Background(), alice, types.AssetNative, tiny)
	require.ErrorIs(t, err, ErrDepositOutOfBounds)

	// Token bounds are raw units, not USD-normalized.
	err = h.ledger.Deposit(context.Background(), alice, types.AssetToken, units(9))
	require.ErrorIs(t, err, ErrDepositOutOfBounds)

	err = h.ledger.Deposit(context.Background(), alice, types.AssetToken, units(2_000_000))
	require.ErrorIs(t, err, ErrDepositOutOfBounds)

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.False(t, acct.IsDepositor)
}

func TestDepositTokenPullsViaCollaborator(t *testing.T) {
	h := newTestHarness(t)

	h.mustDeposit(t, alice, types.AssetToken, units(100))

	require.Len(t, h.token.pulled, 1)
	require.Equal(t, units(100), h.token.pulled[0])

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, units(100), acct.TokenBalance)
	require.True(t, acct.NativeBalance.IsZero())
}

func TestDepositTokenPullFailureAborts(t *testing.T) {
	h := newTestHarness(t)
	h.token.pullOK = false

	err := h.ledger.Deposit(context.Background(), alice, types.AssetToken, units(100))
	require.ErrorIs(t, err, ErrTransferFromFailed)

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.False(t, acct.IsDepositor)
	require.True(t, acct.TokenBalance.IsZero())
}

func TestDepositNativeCollectsBeforeCrediting(t *testing.T) {
	h := newTestHarness(t)

	h.mustDeposit(t, alice, types.AssetNative, units(2))

	require.Len(t, h.settler.collected, 1)
	require.Equal(t, units(2), h.settler.collected[0])
}

func TestDepositNativeCollectFailureAborts(t *testing.T) {
	h := newTestHarness(t)
	h.settler.collectOK = false

	err := h.ledger.Deposit(context.Background(), alice, types.AssetNative, units(2))
	require.ErrorIs(t, err, ErrNativeCollectFailed)

	// No balance is credited on an unconfirmed collection.
	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.False(t, acct.IsDepositor)
	require.True(t, acct.NativeBalance.IsZero())
}

func TestDepositZeroAmountRejected(t *testing.T) {
	h := newTestHarness(t)
	err := h.ledger.Deposit(context.Background(), alice, types.AssetNative, sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestStakeRequiresDepositor(t *testing.T) {
	h := newTestHarness(t)
	err := h.ledger.Stake(context.Background(), alice, types.AssetNative, units(1))
	require.ErrorIs(t, err, ErrNotDepositor)
}

func TestStakeInsufficientFunds(t *testing.T) {
	h := newTestHarness(t)
	h.mustDeposit(t, alice, types.AssetNative, units(2))

	err := h.ledger.Stake(context.Background(), alice, types.AssetNative, units(3))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Staking an asset type the account never deposited is the same failure.
	err = h.ledger.Stake(context.Background(), alice, types.AssetToken, units(1))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestStakeSecondAssetRejected(t *testing.T) {
	h := newTestHarness(t)
	h.mustDeposit(t, alice, types.AssetNative, units(2))
	h.mustDeposit(t, alice, types.AssetToken, units(100))
	h.mustStake(t, alice, types.AssetNative, units(1))

	// A staked position is single-asset; topping up in the other asset would
	// merge two positions into one USD total.
	err := h.ledger.Stake(context.Background(), alice, types.AssetToken, units(50))
	require.ErrorIs(t, err, ErrStakeAssetMismatch)

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, types.AssetNative, acct.Asset)
	require.Equal(t, units(2000), acct.StakedValueUSD)
	require.Equal(t, units(100), acct.TokenBalance)

	// Same-asset top-ups stay allowed.
	h.mustStake(t, alice, types.AssetNative, units(1))
}

func TestStakeBounds(t *testing.T) {
	h := newTestHarness(t)
	h.mustDeposit(t, alice, types.AssetToken, units(1000))

	// Below the USD floor.
	err := h.ledger.Stake(context.Background(), alice, types.AssetToken, units(9))
	require.ErrorIs(t, err, ErrStakeLimitExceeded)
}

func TestStakeDebitsIdleExactly(t *testing.T) {
	h := newTestHarness(t)
	h.mustDeposit(t, alice, types.AssetNative, units(2))
	h.mustStake(t, alice, types.AssetNative, units(1))

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.True(t, acct.IsStaker)
	require.Equal(t, units(1), acct.NativeBalance)
	// 1 native unit at $2,000.
	require.Equal(t, units(2000), acct.StakedValueUSD)
	require.Equal(t, types.AssetNative, acct.Asset)
	require.Equal(t, h.clock.Now(), acct.StakeTimestamp)
}

func TestStakeTopUpKeepsOriginalTimestamp(t *testing.T) {
	h := newTestHarness(t)
	h.mustDeposit(t, alice, types.AssetNative, units(3))
	h.mustStake(t, alice, types.AssetNative, units(1))

	firstStake := h.clock.Now()
	h.clock.Advance(30 * 24 * time.Hour)
	h.mustStake(t, alice, types.AssetNative, units(1))

	acct, err := h.ledger.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, firstStake, acct.StakeTimestamp)
	require.Equal(t, units(4000), acct.StakedValueUSD)
}

func TestPauseGatesMutatingSurface(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	h.mustDeposit(t, alice, types.AssetNative, units(2))
	h.mustStake(t, alice, types.AssetNative, units(1))

	require.NoError(t, h.ledger.Pause(testOwner))
	require.True(t, h.ledger.Paused())

	require.ErrorIs(t, h.ledger.Deposit(ctx, alice, types.AssetNative, units(1)), ErrPaused)
	require.ErrorIs(t, h.ledger.Stake(ctx, alice, types.AssetNative, units(1)), ErrPaused)
	require.ErrorIs(t, h.ledger.Unstake(ctx, alice), ErrPaused)
	require.ErrorIs(t, h.ledger.Withdraw(ctx, alice, types.AssetNative), ErrPaused)

	require.NoError(t, h.ledger.Unpause(testOwner))
	require.NoError(t, h.ledger.Unstake(ctx, alice))
}

func TestPauseIdempotencyAndAuthority(t *testing.T) {
	h := newTestHarness(t)

	require.ErrorIs(t, h.ledger.Pause("mallory"), ErrUnauthorized)
	require.ErrorIs(t, h.ledger.Unpause(testOwner), ErrNotPaused)

	require.NoError(t, h.ledger.Pause(testOwner))
	require.ErrorIs(t, h.ledger.Pause(testOwner), ErrAlreadyPaused)
	require.ErrorIs(t, h.ledger.Unpause("mallory"), ErrUnauthorized)

	require.NoError(t, h.ledger.Unpause(testOwner))
	require.ErrorIs(t, h.ledger.Unpause(testOwner), ErrNotPaused)
}

func TestPausedReflectsStateNotGuard(t *testing.T) {
	h := newTestHarness(t)

	// An in-flight operation holding the guard must not make the ledger look
	// paused to health checks.
	require.NoError(t, h.ledger.enter())
	require.False(t, h.ledger.Paused())
	h.ledger.exit()

	require.NoError(t, h.ledger.Pause(testOwner))
	require.NoError(t, h.ledger.enter())
	require.True(t, h.ledger.Paused())
	h.ledger.exit()
}

func TestReentrantCallRejected(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.ledger.enter())
	defer h.ledger.exit()

	err := h.ledger.Deposit(context.Background(), alice, types.AssetNative, units(1))
	require.ErrorIs(t, err, ErrReentrantCall)
}
