package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(zaptest.NewLogger(t))
	c.BaseURL = server.URL
	c.ChainID = "starknet"
	return c
}

func TestTokenPriceUSDPicksFirstQuotedMarket(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token-pairs/v1/starknet/0xtok", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"chainId":"starknet","dexId":"a","pairAddress":"0xp1","priceNative":"1"},
			{"chainId":"starknet","dexId":"b","pairAddress":"0xp2","priceNative":"1","priceUsd":"1.25"},
			{"chainId":"starknet","dexId":"c","pairAddress":"0xp3","priceNative":"1","priceUsd":"9.99"}
		]`))
	})

	price, ok, err := c.TokenPriceUSD(context.Background(), "0xtok")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, price.Equal(decimal.RequireFromString("1.25")))
}

func TestTokenPriceUSDNoQuotedMarkets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"chainId":"starknet","dexId":"a","pairAddress":"0xp1","priceNative":"1"}]`))
	})

	_, ok, err := c.TokenPriceUSD(context.Background(), "0xtok")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTokenPairsNon200TreatedAsNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	pairs, err := c.TokenPairs(context.Background(), "0xtok")
	require.NoError(t, err)
	require.Empty(t, pairs)

	_, ok, err := c.TokenPriceUSD(context.Background(), "0xtok")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTokenPairsTransportErrorTreatedAsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := NewClient(zaptest.NewLogger(t))
	c.BaseURL = server.URL
	c.ChainID = "starknet"
	server.Close() // every request now fails at the dial

	pairs, err := c.TokenPairs(context.Background(), "0xtok")
	require.NoError(t, err)
	require.Empty(t, pairs)

	_, ok, err := c.TokenPriceUSD(context.Background(), "0xtok")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTokenPairsBadBodyTreatedAsNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	pairs, err := c.TokenPairs(context.Background(), "0xtok")
	require.NoError(t, err)
	require.Empty(t, pairs)
}

func TestFirstUSDPriceUnparseable(t *testing.T) {
	bad := "not-a-number"
	_, _, err := FirstUSDPrice([]PairInfo{{PriceUsd: &bad}})
	require.Error(t, err)
}

func TestFirstUSDPriceSkipsEmptyStrings(t *testing.T) {
	empty := ""
	quoted := "0.5"
	price, ok, err := FirstUSDPrice([]PairInfo{{PriceUsd: &empty}, {PriceUsd: &quoted}})
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, price.Equal(decimal.RequireFromString("0.5")))
}
