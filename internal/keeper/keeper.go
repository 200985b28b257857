/*

This file contains the price keeper: a cached oracle snapshot refreshed on a
cron schedule, plus an early refresh whenever the live feed deviates from the
cache beyond a basis-point threshold.

The ledger reads prices through the keeper, so every conversion inside one
upkeep window uses the same snapshot. That keeps deposit bounds and stake
valuations stable between refreshes instead of jittering with every feed tick.

*/

package keeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/stakeward/stakeward/internal/logger"
	"github.com/stakeward/stakeward/internal/oracle"
	"github.com/stakeward/stakeward/internal/types"
)

// ErrNotPrimed is returned when the keeper is asked for a price before the
// first successful upkeep.
var ErrNotPrimed = fmt.Errorf("keeper: price cache not primed")

// Keeper caches the latest oracle reading and refreshes it on a schedule.
// It implements oracle.PriceSource so the ledger can consume it directly.
type Keeper struct {
	mu      sync.RWMutex
	cached  sdkmath.Int
	round   uint64
	updated time.Time

	feed   oracle.PriceSource
	clock  clockwork.Clock
	logger zerolog.Logger
}

// New creates a Keeper over the given live feed. The cache starts empty and
// must be primed with PerformUpkeep before the first read.
func New(feed oracle.PriceSource, clock clockwork.Clock) *Keeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Keeper{
		cached: sdkmath.ZeroInt(),
		feed:   feed,
		clock:  clock,
		logger: logger.GetForComponent("keeper"),
	}
}

// LatestPrice returns the cached snapshot.
func (k *Keeper) LatestPrice(context.Context) (sdkmath.Int, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if !k.cached.IsPositive() {
		return sdkmath.ZeroInt(), ErrNotPrimed
	}
	return k.cached, nil
}

// Version returns the feed round backing the current snapshot.
func (k *Keeper) Version() uint64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.round
}

// UpdatedAt returns when the snapshot was last refreshed.
func (k *Keeper) UpdatedAt() time.Time {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.updated
}

// CheckUpkeep reports whether the live feed has drifted from the cached
// snapshot beyond the deviation threshold. An unprimed cache always needs
// upkeep.
func (k *Keeper) CheckUpkeep(ctx context.Context) (bool, error) {
	k.mu.RLock()
	cached := k.cached
	k.mu.RUnlock()

	if !cached.IsPositive() {
		return true, nil
	}

	live, err := k.feed.LatestPrice(ctx)
	if err != nil {
		return false, fmt.Errorf("keeper: live price check failed: %w", err)
	}

	return deviationBps(live, cached).GTE(sdkmath.NewInt(types.KeeperDeviationBps)), nil
}

// PerformUpkeep replaces the cached snapshot with the live feed reading.
func (k *Keeper) PerformUpkeep(ctx context.Context) error {
	live, err := k.feed.LatestPrice(ctx)
	if err != nil {
		return fmt.Errorf("keeper: price refresh failed: %w", err)
	}
	if !live.IsPositive() {
		return fmt.Errorf("keeper: refusing non-positive price %s", live)
	}

	k.mu.Lock()
	prev := k.cached
	k.cached = live
	k.round = k.feed.Version()
	k.updated = k.clock.Now()
	k.mu.Unlock()

	k.logger.Info().
		Str("previous", prev.String()).
		Str("current", live.String()).
		Uint64("round", k.Version()).
		Msg("Price snapshot refreshed")
	return nil
}

// Register wires the upkeep cycle into the cron scheduler: each tick checks
// deviation and refreshes only when needed. Failures are logged and retried
// on the next tick.
func (k *Keeper) Register(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		k.runUpkeep(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("keeper: register upkeep task: %w", err)
	}
	k.logger.Info().Str("schedule", spec).Msg("Upkeep task registered")
	return id, nil
}

func (k *Keeper) runUpkeep(ctx context.Context) {
	needed, err := k.CheckUpkeep(ctx)
	if err != nil {
		k.logger.Error().Err(err).Msg("Upkeep check failed")
		return
	}
	if !needed {
		k.logger.Debug().Msg("Price within deviation threshold, no upkeep")
		return
	}
	if err := k.PerformUpkeep(ctx); err != nil {
		k.logger.Error().Err(err).Msg("Upkeep failed")
	}
}

// deviationBps returns |live - cached| * BasisPoints / cached.
func deviationBps(live, cached sdkmath.Int) sdkmath.Int {
	return live.Sub(cached).Abs().
		MulRaw(types.BasisPoints).
		Quo(cached)
}
