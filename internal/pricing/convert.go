/*

This file contains the unit converter between native-currency amounts and
their USD-denominated value. Both directions are pure functions of
(amount, price); the price is the oracle reading scaled to 18 decimals.
Division truncates, matching the integer semantics of the payout formulas.

*/

package pricing

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeward/stakeward/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrice   = errors.New("pricing: invalid price")
	ErrAmountNil      = errors.New("pricing: amount is nil")
	ErrAmountNegative = errors.New("pricing: amount is negative")
)

// ToUSD converts a native-currency amount to its USD value at the given
// 18-decimal price: amount * price / 1e18.
func ToUSD(amount, price sdkmath.Int) (sdkmath.Int, error) {
	if err := validate(amount, price); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return amount.Mul(price).Quo(types.PriceScale), nil
}

// FromUSD converts a USD value back to native-currency units at the given
// 18-decimal price: usd * 1e18 / price.
func FromUSD(usd, price sdkmath.Int) (sdkmath.Int, error) {
	if err := validate(usd, price); err != nil {
		return sdkmath.ZeroInt(), err
	}
	return usd.Mul(types.PriceScale).Quo(price), nil
}

func validate(amount, price sdkmath.Int) error {
	if amount.IsNil() {
		return ErrAmountNil
	}
	if amount.IsNegative() {
		return ErrAmountNegative
	}
	// The oracle collaborator is assumed to never report zero; surface a
	// typed error instead of trapping on the division.
	if price.IsNil() || !price.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, priceString(price))
	}
	return nil
}

func priceString(price sdkmath.Int) string {
	if price.IsNil() {
		return "nil"
	}
	return price.String()
}
