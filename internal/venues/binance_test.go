package venues

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBinance_FetchRate_ConvertsToSettlementCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","askPrice":"3000.00","bidPrice":"2999.00","lastPrice":"2999.50","priceChangePercent":"-2.25"}`))
	}))
	defer server.Close()

	c := NewBinanceClient(zap.NewNop(), newTestCache(t), nil, server.URL)

	r, err := c.FetchRate(context.Background(), "ETH", 1.35)
	require.NoError(t, err)

	assert.Equal(t, "ETH_CAD", r.Symbol)
	assert.InDelta(t, 3000.00*1.35, r.Ask, 1e-9)
	assert.InDelta(t, 2999.00*1.35, r.Bid, 1e-9)
	assert.InDelta(t, 2999.50*1.35, r.Spot, 1e-9)
	// Binance reports the percentage change directly; no conversion
	assert.Equal(t, -2.25, r.Change)
}

func TestBinance_FetchRate_RejectsAllZeroQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"AMPUSDT","askPrice":"0.00","bidPrice":"0.00","lastPrice":"0.00","priceChangePercent":"0.00"}`))
	}))
	defer server.Close()

	c := NewBinanceClient(zap.NewNop(), newTestCache(t), nil, server.URL)

	_, err := c.FetchRate(context.Background(), "AMP", 1.35)
	assert.ErrorIs(t, err, ErrEmptyQuote)
}

func TestBinance_FetchRate_CachesPerAsset(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"symbol":"SOLUSDT","askPrice":"150.0","bidPrice":"149.5","lastPrice":"149.8","priceChangePercent":"1.1"}`))
	}))
	defer server.Close()

	cache := newTestCache(t)
	c := NewBinanceClient(zap.NewNop(), cache, nil, server.URL)

	first, err := c.FetchRate(context.Background(), "SOL", 1.35)
	require.NoError(t, err)
	second, err := c.FetchRate(context.Background(), "SOL", 1.35)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, *first, *second)
}

func TestBinance_FetchRate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewBinanceClient(zap.NewNop(), newTestCache(t), nil, server.URL)

	_, err := c.FetchRate(context.Background(), "BTC", 1.35)
	assert.Error(t, err)
}
