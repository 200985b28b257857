/*

This file contains the per-principal account entry. One entry exists per
principal; an account holds either a native-currency position or a
stable-token position, never both at the same time.

*/

package types

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

// AssetType identifies which of the two supported assets an account position
// is denominated in.
type AssetType uint8

const (
	AssetNative AssetType = iota
	AssetToken
)

// String returns the canonical lowercase name of the asset.
func (a AssetType) String() string {
	switch a {
	case AssetNative:
		return "native"
	case AssetToken:
		return "token"
	default:
		return fmt.Sprintf("asset(%d)", uint8(a))
	}
}

// ParseAsset maps the wire representation back to an AssetType.
func ParseAsset(s string) (AssetType, error) {
	switch s {
	case "native":
		return AssetNative, nil
	case "token":
		return AssetToken, nil
	default:
		return AssetNative, fmt.Errorf("unknown asset type %q", s)
	}
}

// Account is the ledger entry for a single principal. A zero-valued entry
// (all balances zero, all flags false, all timestamps unset) is equivalent to
// the account not existing at all.
type Account struct {
	Principal        string      `json:"principal"`
	IsDepositor      bool        `json:"is_depositor"`
	IsStaker         bool        `json:"is_staker"`
	NativeBalance    sdkmath.Int `json:"native_balance"`
	TokenBalance     sdkmath.Int `json:"token_balance"`
	StakedValueUSD   sdkmath.Int `json:"staked_value_usd"`
	Asset            AssetType   `json:"asset"`
	DepositTimestamp time.Time   `json:"deposit_timestamp"`
	StakeTimestamp   time.Time   `json:"stake_timestamp"`
	FinalizedReward  sdkmath.Int `json:"finalized_reward"`
	UnstakeReadyAt   time.Time   `json:"unstake_ready_at"`
}

// NewAccount returns a fully zeroed entry for the principal.
func NewAccount(principal string) *Account {
	return &Account{
		Principal:       principal,
		NativeBalance:   sdkmath.ZeroInt(),
		TokenBalance:    sdkmath.ZeroInt(),
		StakedValueUSD:  sdkmath.ZeroInt(),
		FinalizedReward: sdkmath.ZeroInt(),
	}
}

// Clone returns a deep copy of the account. Used to snapshot state before an
// external transfer so a failed payout can be rolled back exactly.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.NativeBalance = a.NativeBalance
	c.TokenBalance = a.TokenBalance
	c.StakedValueUSD = a.StakedValueUSD
	c.FinalizedReward = a.FinalizedReward
	return &c
}

// IdleBalance returns the withdrawable, unstaked balance for the given asset.
func (a *Account) IdleBalance(asset AssetType) sdkmath.Int {
	if asset == AssetToken {
		return a.TokenBalance
	}
	return a.NativeBalance
}

// SetIdleBalance overwrites the idle balance for the given asset.
func (a *Account) SetIdleBalance(asset AssetType, amount sdkmath.Int) {
	if asset == AssetToken {
		a.TokenBalance = amount
		return
	}
	a.NativeBalance = amount
}

// IsZero reports whether the entry carries no state at all, in which case the
// ledger reaps it from the keyed store.
func (a *Account) IsZero() bool {
	return !a.IsDepositor && !a.IsStaker &&
		a.NativeBalance.IsZero() && a.TokenBalance.IsZero() &&
		a.StakedValueUSD.IsZero() && a.FinalizedReward.IsZero() &&
		a.DepositTimestamp.IsZero() && a.StakeTimestamp.IsZero() &&
		a.UnstakeReadyAt.IsZero()
}
