/*

This file contains the reward pool type. Four independent pools exist for the
lifetime of the ledger: a staking-reward pool and a depositor-reward pool for
each of the two assets.

The pool deliberately keeps two counters. Remaining is the payable balance:
it is credited by every funding path and debited by payouts, and must never
go negative. Scheduled together with ScheduleEnd is the NotifyReward
bookkeeping used for finish-time and override events; the overwrite branch of
the schedule logic only ever touches Scheduled, so it can never destroy
payable funds.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// PoolKind distinguishes the two families of reward pools.
type PoolKind uint8

const (
	PoolStaking PoolKind = iota
	PoolDepositor
)

// String returns the canonical lowercase name of the pool kind.
func (k PoolKind) String() string {
	if k == PoolDepositor {
		return "depositor"
	}
	return "staking"
}

// RewardPool is a funded, asset-scoped counter from which payouts are
// debited. Depositor pools use only Remaining; the schedule fields stay at
// their zero values.
type RewardPool struct {
	Remaining   sdkmath.Int `json:"remaining"`
	Scheduled   sdkmath.Int `json:"scheduled"`
	ScheduleEnd time.Time   `json:"schedule_end"`
	LastUpdate  time.Time   `json:"last_update"`
}

// NewRewardPool returns a zero-valued pool.
func NewRewardPool() *RewardPool {
	return &RewardPool{
		Remaining: sdkmath.ZeroInt(),
		Scheduled: sdkmath.ZeroInt(),
	}
}

// Clone returns a copy of the pool for rollback snapshots.
func (p *RewardPool) Clone() *RewardPool {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// PoolSnapshot is the read-model of a single pool, keyed for persistence and
// the web API.
type PoolSnapshot struct {
	Kind        string      `json:"kind"`
	Asset       string      `json:"asset"`
	Remaining   sdkmath.Int `json:"remaining"`
	Scheduled   sdkmath.Int `json:"scheduled"`
	ScheduleEnd time.Time   `json:"schedule_end,omitempty"`
	LastUpdate  time.Time   `json:"last_update,omitempty"`
}
