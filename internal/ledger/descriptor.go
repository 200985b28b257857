/*

This file contains the asset descriptor: the one place where the native and
stable-token code paths diverge. Every public operation selects a descriptor
once per call and then runs a single generic path, so the two asset branches
cannot drift apart.

For the stable token the USD normalization is the identity: the token is
USD-pegged 1:1 and its bounds are expressed in raw units.

*/

package ledger

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeward/stakeward/internal/pricing"
	"github.com/stakeward/stakeward/internal/types"
)

type assetDescriptor struct {
	asset      types.AssetType
	minDeposit sdkmath.Int // in deposit-check units (USD for native, raw for token)
	maxDeposit sdkmath.Int
	needsPrice bool
}

func (l *Ledger) descriptor(asset types.AssetType) assetDescriptor {
	if asset == types.AssetToken {
		return assetDescriptor{
			asset:      types.AssetToken,
			minDeposit: l.bounds.MinDepositToken,
			maxDeposit: l.bounds.MaxDepositToken,
		}
	}
	return assetDescriptor{
		asset:      types.AssetNative,
		minDeposit: l.bounds.MinDepositUSD,
		maxDeposit: l.bounds.MaxDepositUSD,
		needsPrice: true,
	}
}

// fetchPrice returns the oracle reading for price-dependent descriptors and
// a zero Int for the token path, which never consults the oracle.
func (l *Ledger) fetchPrice(ctx context.Context, d assetDescriptor) (sdkmath.Int, error) {
	if !d.needsPrice {
		return sdkmath.ZeroInt(), nil
	}
	price, err := l.price.LatestPrice(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", pricing.ErrInvalidPrice, err)
	}
	if price.IsNil() || !price.IsPositive() {
		return sdkmath.ZeroInt(), pricing.ErrInvalidPrice
	}
	return price, nil
}

// depositCheckValue maps a deposit amount into the units its bounds are
// expressed in.
func (d assetDescriptor) depositCheckValue(amount, price sdkmath.Int) (sdkmath.Int, error) {
	if !d.needsPrice {
		return amount, nil
	}
	return pricing.ToUSD(amount, price)
}

// toStakeUSD normalizes a staked amount to USD.
func (d assetDescriptor) toStakeUSD(amount, price sdkmath.Int) (sdkmath.Int, error) {
	if !d.needsPrice {
		return amount, nil
	}
	return pricing.ToUSD(amount, price)
}

// fromStakeUSD converts a USD value back to the asset's payout units.
func (d assetDescriptor) fromStakeUSD(usd, price sdkmath.Int) (sdkmath.Int, error) {
	if !d.needsPrice {
		return usd, nil
	}
	return pricing.FromUSD(usd, price)
}

// payOut performs the outbound transfer for this asset. Token payouts go
// through the token collaborator, native payouts through the settler.
func (l *Ledger) payOut(ctx context.Context, d assetDescriptor, to string, amount sdkmath.Int) (bool, error) {
	if d.asset == types.AssetToken {
		return l.token.Transfer(ctx, to, amount)
	}
	return l.native.Transfer(ctx, to, amount)
}
