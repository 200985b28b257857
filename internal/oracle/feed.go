/*

This file is used to fetch the live price from the external feed endpoint.

Every reading is strictly validated before it reaches the ledger: the feed
must report a finite, positive decimal price and a round number that never
moves backwards. A feed that fails validation surfaces a typed error to the
caller instead of a garbage price.

*/

package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeward/stakeward/internal/logger"
)

var feedLogger = logger.GetForComponent("oracle_feed")

var (
	ErrInvalidPriceData = errors.New("oracle: invalid price data received")
	ErrFeedUnavailable  = errors.New("oracle: feed unavailable")
	ErrStaleRound       = errors.New("oracle: feed round moved backwards")
)

const (
	MAX_RETRIES     = 3
	TIMEOUT_SECONDS = 10
)

// FeedResponse is the wire format of the price endpoint.
type FeedResponse struct {
	Price     string `json:"price"`
	Round     uint64 `json:"round"`
	UpdatedAt int64  `json:"updated_at"`
}

// FeedClient fetches and validates prices from an HTTP price feed.
type FeedClient struct {
	url       string
	client    *http.Client
	lastRound atomic.Uint64
}

// NewFeedClient returns a client for the given feed endpoint.
func NewFeedClient(url string) *FeedClient {
	return &FeedClient{
		url: url,
		client: &http.Client{
			Timeout: TIMEOUT_SECONDS * time.Second,
		},
	}
}

// LatestPrice implements PriceSource. The reading is normalized to 18
// decimals before it is returned.
func (f *FeedClient) LatestPrice(ctx context.Context) (sdkmath.Int, error) {
	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		price, err := f.fetchOnce(ctx)
		if err == nil {
			return price, nil
		}
		// Validation failures are deterministic; retrying cannot help.
		if errors.Is(err, ErrInvalidPriceData) || errors.Is(err, ErrStaleRound) {
			return sdkmath.ZeroInt(), err
		}
		lastErr = err
		feedLogger.Warn().Err(err).Int("attempt", attempt).Msg("Price fetch failed")
		select {
		case <-ctx.Done():
			return sdkmath.ZeroInt(), ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrFeedUnavailable, lastErr)
}

// Version implements PriceSource.
func (f *FeedClient) Version() uint64 {
	return f.lastRound.Load()
}

func (f *FeedClient) fetchOnce(ctx context.Context) (sdkmath.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: feed returned status %d", ErrInvalidPriceData, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	var payload FeedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrInvalidPriceData, err)
	}

	price, err := normalizePrice(payload.Price)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	if err := f.advanceRound(payload.Round); err != nil {
		return sdkmath.ZeroInt(), err
	}

	feedLogger.Debug().
		Str("price", price.String()).
		Uint64("round", payload.Round).
		Msg("Fetched price reading")
	return price, nil
}

// normalizePrice parses the feed's decimal string into an 18-decimal-scaled
// integer.
func normalizePrice(raw string) (sdkmath.Int, error) {
	if raw == "" {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: empty price", ErrInvalidPriceData)
	}
	dec, err := sdkmath.LegacyNewDecFromStr(raw)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrInvalidPriceData, err)
	}
	if !dec.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: price must be positive, got %s", ErrInvalidPriceData, raw)
	}
	// LegacyDec carries exactly 18 fractional decimals internally, which is
	// the ledger's price scale.
	return sdkmath.NewIntFromBigInt(dec.BigInt()), nil
}

// advanceRound records the feed round, rejecting regressions.
func (f *FeedClient) advanceRound(round uint64) error {
	for {
		prev := f.lastRound.Load()
		if round < prev {
			return fmt.Errorf("%w: got %d after %d", ErrStaleRound, round, prev)
		}
		if f.lastRound.CompareAndSwap(prev, round) {
			return nil
		}
	}
}
