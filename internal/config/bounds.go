/*

This file loads the deposit and stake limits. The defaults in
types.DefaultBounds are calibrated for a production deployment; each limit
can be overridden individually through the environment, expressed in whole
USD (or whole token units), and is scaled to 18 decimals here.

*/

package config

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/stakeward/stakeward/internal/types"
)

// LoadBounds returns the deposit/stake limits, starting from the defaults
// and applying any environment overrides.
func LoadBounds() (types.Bounds, error) {
	b := types.DefaultBounds()

	overrides := []struct {
		key    string
		target *sdkmath.Int
	}{
		{"MIN_DEPOSIT_USD", &b.MinDepositUSD},
		{"MAX_DEPOSIT_USD", &b.MaxDepositUSD},
		{"MIN_DEPOSIT_TOKEN", &b.MinDepositToken},
		{"MAX_DEPOSIT_TOKEN", &b.MaxDepositToken},
		{"MIN_STAKE_USD", &b.MinStakeUSD},
		{"MAX_STAKE_USD", &b.MaxStakeUSD},
	}

	for _, o := range overrides {
		whole, err := getEnvAsInt64(o.key, -1)
		if err != nil {
			return types.Bounds{}, err
		}
		if whole >= 0 {
			*o.target = sdkmath.NewIntWithDecimal(whole, 18)
			log.Debug().Str("key", o.key).Int64("whole_units", whole).Msg("Applied bounds override")
		}
	}

	if err := b.Validate(); err != nil {
		return types.Bounds{}, fmt.Errorf("invalid bounds configuration: %w", err)
	}
	return b, nil
}
