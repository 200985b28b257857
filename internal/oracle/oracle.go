package oracle

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

// PriceSource is the price collaborator as seen by the ledger and the
// keeper. Prices are always 18-decimal-scaled after internal normalization;
// a zero or stale reading is the collaborator's failure mode and is never
// retried or interpolated by the consumer.
type PriceSource interface {
	// LatestPrice returns the current price scaled to 18 decimals.
	LatestPrice(ctx context.Context) (sdkmath.Int, error)
	// Version returns a monotonically increasing feed round identifier.
	Version() uint64
}

// Static is a fixed-price source for tests and dry runs.
type Static struct {
	Price sdkmath.Int
	Round uint64
}

// NewStatic returns a source that always reports the given 18-decimal price.
func NewStatic(price sdkmath.Int) *Static {
	return &Static{Price: price, Round: 1}
}

// LatestPrice implements PriceSource.
func (s *Static) LatestPrice(context.Context) (sdkmath.Int, error) {
	return s.Price, nil
}

// Version implements PriceSource.
func (s *Static) Version() uint64 { return s.Round }
