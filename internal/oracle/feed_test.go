package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestLatestPriceNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"1850.5","round":7,"updated_at":1712345678}`))
	}))
	defer srv.Close()

	client := NewFeedClient(srv.URL)
	price, err := client.LatestPrice(context.Background())
	require.NoError(t, err)

	want := sdkmath.NewIntWithDecimal(18505, 17)
	require.Equal(t, want, price)
	require.Equal(t, uint64(7), client.Version())
}

func TestLatestPriceRejectsNonPositive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"0","round":1}`))
	}))
	defer srv.Close()

	client := NewFeedClient(srv.URL)
	_, err := client.LatestPrice(context.Background())
	require.ErrorIs(t, err, ErrInvalidPriceData)
}

func TestAdvanceRoundRejectsRegression(t *testing.T) {
	client := NewFeedClient("http://unused")
	require.NoError(t, client.advanceRound(9))
	require.NoError(t, client.advanceRound(10))
	require.NoError(t, client.advanceRound(10))
	require.ErrorIs(t, client.advanceRound(8), ErrStaleRound)
	require.Equal(t, uint64(10), client.Version())
}

func TestNormalizePriceGarbage(t *testing.T) {
	_, err := normalizePrice("not-a-number")
	require.ErrorIs(t, err, ErrInvalidPriceData)

	_, err = normalizePrice("")
	require.ErrorIs(t, err, ErrInvalidPriceData)
}
