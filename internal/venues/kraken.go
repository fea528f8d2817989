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

// KrakenClient is the last venue in the cascade. Kraken quotes against USD;
// prices are converted with the USD→CAD reference rate. A pair missing from
// the ticker result means Kraken does not offer the asset at all, which is a
// structural signal rather than a transient failure.
type KrakenClient struct {
	logger  *zap.Logger
	cache   store.Store
	rateMgr *rate.Manager
	http    *http.Client
	baseURL string
}

// NewKrakenClient constructs the tertiary venue client.
func NewKrakenClient(logger *zap.Logger, cache store.Store, rateMgr *rate.Manager, baseURL string) *KrakenClient {
	return &KrakenClient{
		logger:  logger,
		cache:   cache,
		rateMgr: rateMgr,
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// FetchRate returns one converted quote for asset, cache-first.
// Returns ErrNotOffered when the ticker result lacks the pair key.
func (c *KrakenClient) FetchRate(ctx context.Context, asset string, usdCAD float64) (*model.Rate, error) {
	cacheKey := "kraken_rate_" + asset

	var cached model.Rate
	err := c.cache.GetJSON(ctx, cacheKey, &cached)
	if err == nil {
		metrics.IncCache("hit")
		c.logger.Debug("kraken.cache_hit", zap.String("asset", asset))
		return &cached, nil
	}
	metrics.IncCache("miss")
	if !errors.Is(err, store.ErrCacheMiss) {
		c.logger.Warn("kraken.cache_unavailable", zap.String("asset", asset), zap.Error(err))
	}

	if c.rateMgr != nil {
		if err := c.rateMgr.Wait(ctx, VenueKraken); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	pair := asset + "USD"
	url := fmt.Sprintf("%s?pair=%s", c.baseURL, pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncVenueRequest(VenueKraken, "error")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.IncVenueRequest(VenueKraken, "error")
		return nil, fmt.Errorf("kraken returned %d for %s", resp.StatusCode, asset)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncVenueRequest(VenueKraken, "error")
		return nil, err
	}

	var ticker krakenTickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		metrics.IncVenueRequest(VenueKraken, "error")
		c.logger.Warn("kraken.decode_failed", zap.String("asset", asset), zap.Error(err))
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	entry, ok := ticker.Result[pair]
	if !ok {
		metrics.IncVenueRequest(VenueKraken, "not_offered")
		c.logger.Info("kraken.asset_not_offered", zap.String("asset", asset))
		return nil, fmt.Errorf("%w: %s", ErrNotOffered, asset)
	}

	r, err := c.toRate(asset, entry, usdCAD)
	if err != nil {
		metrics.IncVenueRequest(VenueKraken, "error")
		return nil, err
	}

	metrics.IncVenueRequest(VenueKraken, "ok")

	if err := c.cache.SetJSON(ctx, cacheKey, r); err != nil {
		c.logger.Warn("kraken.cache_write_failed", zap.String("asset", asset), zap.Error(err))
	}

	return r, nil
}

func (c *KrakenClient) toRate(asset string, t krakenTicker, usdCAD float64) (*model.Rate, error) {
	if len(t.Ask) == 0 || len(t.Bid) == 0 || len(t.Last) == 0 {
		return nil, fmt.Errorf("incomplete ticker for %s", asset)
	}

	ask, err := strconv.ParseFloat(t.Ask[0], 64)
	if err != nil {
		return nil, fmt.Errorf("bad ask %q: %w", t.Ask[0], err)
	}
	bid, err := strconv.ParseFloat(t.Bid[0], 64)
	if err != nil {
		return nil, fmt.Errorf("bad bid %q: %w", t.Bid[0], err)
	}
	last, err := strconv.ParseFloat(t.Last[0], 64)
	if err != nil {
		return nil, fmt.Errorf("bad last %q: %w", t.Last[0], err)
	}
	open, err := strconv.ParseFloat(t.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("bad open %q: %w", t.Open, err)
	}

	// Kraken does not report a percentage change; derive it from open/close.
	return &model.Rate{
		Symbol: model.SymbolFor(asset),
		Ask:    ask * usdCAD,
		Bid:    bid * usdCAD,
		Spot:   last * usdCAD,
		Change: (last - open) / open * 100,
	}, nil
}
