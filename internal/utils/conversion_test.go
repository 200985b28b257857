package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestDisplayAmount(t *testing.T) {
	got, err := DisplayAmount(sdkmath.NewIntWithDecimal(1125, 15), 18)
	require.NoError(t, err)
	require.InDelta(t, 1.125, got, 1e-9)

	got, err = DisplayAmount(sdkmath.ZeroInt(), 18)
	require.NoError(t, err)
	require.Zero(t, got)

	got, err = DisplayAmount(sdkmath.NewInt(12345), 0)
	require.NoError(t, err)
	require.InDelta(t, 12345.0, got, 1e-9)
}

func TestDisplayAmountRejectsInvalidInput(t *testing.T) {
	_, err := DisplayAmount(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = DisplayAmount(sdkmath.Int{}, 18)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = DisplayAmount(sdkmath.NewInt(-5), 18)
	require.ErrorIs(t, err, ErrAmountNegative)
}
