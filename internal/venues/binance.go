package venues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/internal/metrics"
	"github.com/Checker-Finance/rates-gateway/internal/rate"
	"github.com/Checker-Finance/rates-gateway/internal/store"
	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

// BinanceClient fetches per-asset 24h tickers for assets the primary feed is
// missing. Binance quotes against USDT; prices are converted to the settlement
// currency with the USD→CAD reference rate.
type BinanceClient struct {
	logger  *zap.Logger
	cache   store.Store
	rateMgr *rate.Manager
	http    *http.Client
	baseURL string
}

// NewBinanceClient constructs the secondary venue client.
func NewBinanceClient(logger *zap.Logger, cache store.Store, rateMgr *rate.Manager, baseURL string) *BinanceClient {
	return &BinanceClient{
		logger:  logger,
		cache:   cache,
		rateMgr: rateMgr,
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// FetchRate returns one converted quote for asset, cache-first.
// A response whose price fields are all zero is rejected with ErrEmptyQuote:
// Binance answers 200 with zeroed data for symbols it has no market for.
func (c *BinanceClient) FetchRate(ctx context.Context, asset string, usdCAD float64) (*model.Rate, error) {
	cacheKey := "binance_rate_" + asset

	var cached model.Rate
	err := c.cache.GetJSON(ctx, cacheKey, &cached)
	if err == nil {
		metrics.IncCache("hit")
		c.logger.Debug("binance.cache_hit", zap.String("asset", asset))
		return &cached, nil
	}
	metrics.IncCache("miss")
	if !errors.Is(err, store.ErrCacheMiss) {
		c.logger.Warn("binance.cache_unavailable", zap.String("asset", asset), zap.Error(err))
	}

	if c.rateMgr != nil {
		if err := c.rateMgr.Wait(ctx, VenueBinance); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	url := fmt.Sprintf("%s?symbol=%sUSDT", c.baseURL, asset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncVenueRequest(VenueBinance, "error")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.IncVenueRequest(VenueBinance, "error")
		return nil, fmt.Errorf("binance returned %d for %s", resp.StatusCode, asset)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncVenueRequest(VenueBinance, "error")
		return nil, err
	}

	var ticker binanceTicker
	if err := json.Unmarshal(body, &ticker); err != nil {
		metrics.IncVenueRequest(VenueBinance, "error")
		c.logger.Warn("binance.decode_failed", zap.String("asset", asset), zap.Error(err))
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	r, err := c.toRate(asset, ticker, usdCAD)
	if err != nil {
		metrics.IncVenueRequest(VenueBinance, "error")
		return nil, err
	}

	metrics.IncVenueRequest(VenueBinance, "ok")

	if err := c.cache.SetJSON(ctx, cacheKey, r); err != nil {
		c.logger.Warn("binance.cache_write_failed", zap.String("asset", asset), zap.Error(err))
	}

	return r, nil
}

func (c *BinanceClient) toRate(asset string, t binanceTicker, usdCAD float64) (*model.Rate, error) {
	ask, err := strconv.ParseFloat(t.AskPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("bad askPrice %q: %w", t.AskPrice, err)
	}
	bid, err := strconv.ParseFloat(t.BidPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("bad bidPrice %q: %w", t.BidPrice, err)
	}
	last, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("bad lastPrice %q: %w", t.LastPrice, err)
	}
	change, err := strconv.ParseFloat(t.PriceChangePercent, 64)
	if err != nil {
		return nil, fmt.Errorf("bad priceChangePercent %q: %w", t.PriceChangePercent, err)
	}

	r := &model.Rate{
		Symbol: model.SymbolFor(asset),
		Ask:    ask * usdCAD,
		Bid:    bid * usdCAD,
		Spot:   last * usdCAD,
		Change: change,
	}

	if r.Ask == 0 && r.Bid == 0 && r.Spot == 0 {
		c.logger.Warn("binance.empty_quote", zap.String("asset", asset))
		return nil, fmt.Errorf("%w: %s", ErrEmptyQuote, asset)
	}
	return r, nil
}
