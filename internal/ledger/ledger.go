package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/stakeward/stakeward/internal/logger"
	"github.com/stakeward/stakeward/internal/oracle"
	"github.com/stakeward/stakeward/internal/types"
)

// Ledger is the dual-asset staking ledger: the per-principal account store,
// the four reward pools, and the state-transition controller over them.
//
// Execution is strictly serialized: every public operation acquires the
// non-reentrant guard for its full duration, so a collaborator that calls
// back into the ledger mid-transfer observes post-mutation state and fails
// with ErrReentrantCall instead of draining anything twice.
type Ledger struct {
	guard sync.Mutex // non-reentrant operation guard, acquired via TryLock

	owner string
	vault string // the ledger's own account with the token collaborator

	// Read lock-free so health checks report the real pause state even while
	// an operation holds the guard.
	paused atomic.Bool

	accounts       map[string]*types.Account
	stakingPools   map[types.AssetType]*types.RewardPool
	depositorPools map[types.AssetType]*types.RewardPool

	bounds types.Bounds

	price    oracle.PriceSource
	token    TokenTransferer
	native   NativeSettler
	recorder Recorder
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// Config holds the dependencies for creating a Ledger.
type Config struct {
	Owner        string
	VaultAddress string
	Bounds       types.Bounds
	PriceSource  oracle.PriceSource
	Token        TokenTransferer
	Native       NativeSettler
	Recorder     Recorder
	Clock        clockwork.Clock
}

// New creates a Ledger with dependency injection. The reward pools start
// zero-valued and live for the ledger's lifetime.
func New(cfg Config) (*Ledger, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("ledger configuration validation failed: %w", err)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NewNopRecorder()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	l := &Ledger{
		owner:    cfg.Owner,
		vault:    cfg.VaultAddress,
		accounts: make(map[string]*types.Account),
		stakingPools: map[types.AssetType]*types.RewardPool{
			types.AssetNative: types.NewRewardPool(),
			types.AssetToken:  types.NewRewardPool(),
		},
		depositorPools: map[types.AssetType]*types.RewardPool{
			types.AssetNative: types.NewRewardPool(),
			types.AssetToken:  types.NewRewardPool(),
		},
		bounds:   cfg.Bounds,
		price:    cfg.PriceSource,
		token:    cfg.Token,
		native:   cfg.Native,
		recorder: cfg.Recorder,
		clock:    cfg.Clock,
		logger:   logger.GetForComponent("ledger"),
	}

	l.logger.Info().
		Str("owner", l.owner).
		Str("vault", l.vault).
		Msg("Ledger instance created")
	return l, nil
}

func validateConfig(cfg Config) error {
	if cfg.Owner == "" {
		return fmt.Errorf("owner principal cannot be empty")
	}
	if cfg.VaultAddress == "" {
		return fmt.Errorf("vault address cannot be empty")
	}
	if cfg.PriceSource == nil {
		return fmt.Errorf("price source cannot be nil")
	}
	if cfg.Token == nil {
		return fmt.Errorf("token collaborator cannot be nil")
	}
	if cfg.Native == nil {
		return fmt.Errorf("native settler cannot be nil")
	}
	if err := cfg.Bounds.Validate(); err != nil {
		return err
	}
	return nil
}

// enter acquires the non-reentrant guard. It never blocks: a mutating call
// made while another is in progress fails with ErrReentrantCall, which is
// exactly what a reentrant collaborator callback must observe.
func (l *Ledger) enter() error {
	if !l.guard.TryLock() {
		return ErrReentrantCall
	}
	return nil
}

func (l *Ledger) exit() {
	l.guard.Unlock()
}

// account returns the entry for the principal; absent keys behave as a fully
// zeroed account. Caller must hold the guard.
func (l *Ledger) account(principal string) *types.Account {
	if acct, ok := l.accounts[principal]; ok {
		return acct
	}
	acct := types.NewAccount(principal)
	l.accounts[principal] = acct
	return acct
}

// reap removes the entry when a successful withdraw has cleared all state,
// so the next read observes a fresh zeroed account.
func (l *Ledger) reap(acct *types.Account) {
	if acct.IsZero() {
		delete(l.accounts, acct.Principal)
	}
}

// emit journals a lifecycle event and logs it. Recording failures are logged
// and do not abort the already-committed operation.
func (l *Ledger) emit(opID, eventType, principal string, asset types.AssetType, amount sdkmath.Int, attrs map[string]string) {
	evt := types.Event{
		ID:         opID,
		Type:       eventType,
		Principal:  principal,
		Asset:      asset.String(),
		Amount:     amount,
		Timestamp:  l.clock.Now(),
		Attributes: attrs,
	}
	if err := l.recorder.RecordEvent(evt); err != nil {
		l.logger.Error().Err(err).Str("event", eventType).Msg("Failed to record ledger event")
	}
	l.logger.Info().
		Str("op_id", opID).
		Str("event", eventType).
		Str("principal", principal).
		Str("asset", asset.String()).
		Str("amount", amount.String()).
		Msg("Ledger event")
}

func newOpID() string { return uuid.New().String() }

// Paused reports whether the mutating surface is gated. It does not take the
// operation guard, so an in-flight operation never makes the ledger look
// paused.
func (l *Ledger) Paused() bool {
	return l.paused.Load()
}

// Pause gates every balance-mutating operation. Owner-only and
// idempotency-guarded.
func (l *Ledger) Pause(caller string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	if caller != l.owner {
		return ErrUnauthorized
	}
	if l.paused.Load() {
		return ErrAlreadyPaused
	}
	l.paused.Store(true)
	l.emit(newOpID(), types.EventPaused, caller, types.AssetNative, sdkmath.ZeroInt(), nil)
	return nil
}

// Unpause lifts the gate. Owner-only and idempotency-guarded.
func (l *Ledger) Unpause(caller string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	if caller != l.owner {
		return ErrUnauthorized
	}
	if !l.paused.Load() {
		return ErrNotPaused
	}
	l.paused.Store(false)
	l.emit(newOpID(), types.EventUnpaused, caller, types.AssetNative, sdkmath.ZeroInt(), nil)
	return nil
}

// GetAccount returns a copy of the principal's entry. Absent principals
// return a zeroed account.
func (l *Ledger) GetAccount(principal string) (types.Account, error) {
	if err := l.enter(); err != nil {
		return types.Account{}, err
	}
	defer l.exit()
	if acct, ok := l.accounts[principal]; ok {
		return *acct.Clone(), nil
	}
	return *types.NewAccount(principal), nil
}

// PoolSnapshots returns the read-model of all four pools.
func (l *Ledger) PoolSnapshots() ([]types.PoolSnapshot, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.exit()

	out := make([]types.PoolSnapshot, 0, 4)
	for _, asset := range []types.AssetType{types.AssetNative, types.AssetToken} {
		sp := l.stakingPools[asset]
		out = append(out, types.PoolSnapshot{
			Kind:        types.PoolStaking.String(),
			Asset:       asset.String(),
			Remaining:   sp.Remaining,
			Scheduled:   sp.Scheduled,
			ScheduleEnd: sp.ScheduleEnd,
			LastUpdate:  sp.LastUpdate,
		})
		dp := l.depositorPools[asset]
		out = append(out, types.PoolSnapshot{
			Kind:      types.PoolDepositor.String(),
			Asset:     asset.String(),
			Remaining: dp.Remaining,
			Scheduled: dp.Scheduled,
		})
	}
	return out, nil
}

// Now exposes the ledger clock, mainly for the web layer's timestamps.
func (l *Ledger) Now() time.Time { return l.clock.Now() }
