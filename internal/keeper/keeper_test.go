package keeper

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type scriptedFeed struct {
	price   sdkmath.Int
	round   uint64
	err     error
	queries int
}

func (f *scriptedFeed) LatestPrice(context.Context) (sdkmath.Int, error) {
	f.queries++
	if f.err != nil {
		return sdkmath.ZeroInt(), f.err
	}
	return f.price, nil
}

func (f *scriptedFeed) Version() uint64 { return f.round }

func price(whole int64) sdkmath.Int { return sdkmath.NewIntWithDecimal(whole, 18) }

func TestKeeperUnprimedCache(t *testing.T) {
	feed := &scriptedFeed{price: price(2000), round: 1}
	k := New(feed, clockwork.NewFakeClock())

	_, err := k.LatestPrice(context.Background())
	require.ErrorIs(t, err, ErrNotPrimed)

	needed, err := k.CheckUpkeep(context.Background())
	require.NoError(t, err)
	require.True(t, needed)
}

func TestKeeperPerformUpkeepCaches(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	feed := &scriptedFeed{price: price(2000), round: 7}
	k := New(feed, clock)

	require.NoError(t, k.PerformUpkeep(context.Background()))

	got, err := k.LatestPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, price(2000), got)
	require.Equal(t, uint64(7), k.Version())
	require.Equal(t, clock.Now(), k.UpdatedAt())

	// Reads come from the cache, not the feed.
	before := feed.queries
	_, err = k.LatestPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, before, feed.queries)
}

func TestKeeperDeviationThreshold(t *testing.T) {
	feed := &scriptedFeed{price: price(2000), round: 1}
	k := New(feed, clockwork.NewFakeClock())
	require.NoError(t, k.PerformUpkeep(context.Background()))

	// 1.9% drift: below the 200 bps threshold.
	feed.price = price(2038)
	needed, err := k.CheckUpkeep(context.Background())
	require.NoError(t, err)
	require.False(t, needed)

	// Exactly 2% drift triggers.
	feed.price = price(2040)
	needed, err = k.CheckUpkeep(context.Background())
	require.NoError(t, err)
	require.True(t, needed)

	// Downward drift counts the same.
	feed.price = price(1960)
	needed, err = k.CheckUpkeep(context.Background())
	require.NoError(t, err)
	require.True(t, needed)
}

func TestKeeperFeedFailureKeepsCache(t *testing.T) {
	feed := &scriptedFeed{price: price(2000), round: 1}
	k := New(feed, clockwork.NewFakeClock())
	require.NoError(t, k.PerformUpkeep(context.Background()))

	feed.err = errors.New("feed down")
	_, err := k.CheckUpkeep(context.Background())
	require.Error(t, err)
	require.Error(t, k.PerformUpkeep(context.Background()))

	got, err := k.LatestPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, price(2000), got)
}

func TestKeeperRejectsNonPositiveRefresh(t *testing.T) {
	feed := &scriptedFeed{price: price(2000), round: 1}
	k := New(feed, clockwork.NewFakeClock())
	require.NoError(t, k.PerformUpkeep(context.Background()))

	feed.price = sdkmath.ZeroInt()
	require.Error(t, k.PerformUpkeep(context.Background()))

	got, err := k.LatestPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, price(2000), got)
}

func TestDeviationBps(t *testing.T) {
	require.Equal(t, sdkmath.NewInt(0), deviationBps(price(2000), price(2000)))
	require.Equal(t, sdkmath.NewInt(100), deviationBps(price(2020), price(2000)))
	require.Equal(t, sdkmath.NewInt(100), deviationBps(price(1980), price(2000)))
	require.Equal(t, sdkmath.NewInt(10000), deviationBps(price(4000), price(2000)))
}
