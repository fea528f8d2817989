package venues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/internal/metrics"
	"github.com/Checker-Finance/rates-gateway/internal/rate"
	"github.com/Checker-Finance/rates-gateway/internal/store"
	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

const newtonCacheKey = "newton_rates"

// NewtonClient fetches the primary bulk rate feed. Newton quotes are already
// denominated in the settlement currency, so no conversion is applied.
type NewtonClient struct {
	logger  *zap.Logger
	cache   store.Store
	rateMgr *rate.Manager
	http    *http.Client
	baseURL string
	assets  map[string]struct{}
}

// NewNewtonClient constructs the primary venue client for a given asset universe.
func NewNewtonClient(logger *zap.Logger, cache store.Store, rateMgr *rate.Manager, baseURL string, assets []string) *NewtonClient {
	return &NewtonClient{
		logger:  logger,
		cache:   cache,
		rateMgr: rateMgr,
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		assets:  model.AssetSet(assets),
	}
}

// FetchRates returns every rate Newton currently carries for the universe,
// cache-first under a single bulk key.
func (c *NewtonClient) FetchRates(ctx context.Context) ([]model.Rate, error) {
	var cached []model.Rate
	err := c.cache.GetJSON(ctx, newtonCacheKey, &cached)
	if err == nil {
		metrics.IncCache("hit")
		c.logger.Debug("newton.cache_hit", zap.Int("rates", len(cached)))
		return cached, nil
	}
	metrics.IncCache("miss")
	if !errors.Is(err, store.ErrCacheMiss) {
		c.logger.Warn("newton.cache_unavailable", zap.Error(err))
	}

	if c.rateMgr != nil {
		if err := c.rateMgr.Wait(ctx, VenueNewton); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncVenueRequest(VenueNewton, "error")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.IncVenueRequest(VenueNewton, "error")
		return nil, fmt.Errorf("newton returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncVenueRequest(VenueNewton, "error")
		return nil, err
	}

	var all []model.Rate
	if err := json.Unmarshal(body, &all); err != nil {
		metrics.IncVenueRequest(VenueNewton, "error")
		c.logger.Warn("newton.decode_failed", zap.Error(err))
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	// The feed carries more pairs than we publish; keep only the universe.
	rates := make([]model.Rate, 0, len(all))
	for _, r := range all {
		if _, ok := c.assets[r.Asset()]; ok {
			rates = append(rates, r)
		}
	}

	metrics.IncVenueRequest(VenueNewton, "ok")

	if err := c.cache.SetJSON(ctx, newtonCacheKey, rates); err != nil {
		c.logger.Warn("newton.cache_write_failed", zap.Error(err))
	}

	return rates, nil
}
