package fx

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
	"github.com/Checker-Finance/rates-gateway/internal/store"
)

// FallbackUSDCAD is returned when the reference ticker cannot be fetched.
// Stale-but-plausible beats failing the whole pass.
const FallbackUSDCAD = 1.35

const cacheKey = "usd_cad_rate"

// krakenUSDCADPair is the canonical Kraken pair key for the USD/CAD ticker.
const krakenUSDCADPair = "ZUSDZCAD"

// Fetcher resolves the USD→CAD multiplier used to convert USD-denominated
// venue quotes into the settlement currency.
type Fetcher struct {
	logger  *zap.Logger
	cache   store.Store
	http    *http.Client
	baseURL string // Kraken public ticker endpoint
}

// NewFetcher constructs a Fetcher backed by the Kraken public ticker.
func NewFetcher(logger *zap.Logger, cache store.Store, baseURL string) *Fetcher {
	return &Fetcher{
		logger:  logger,
		cache:   cache,
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

type tickerResponse struct {
	Result map[string]struct {
		C []string `json:"c"` // last trade [price, lot volume]
	} `json:"result"`
}

// USDCAD returns the USD→CAD conversion rate, cache-first.
// It never fails past its own boundary: any fault yields FallbackUSDCAD.
func (f *Fetcher) USDCAD(ctx context.Context) float64 {
	var cached float64
	err := f.cache.GetJSON(ctx, cacheKey, &cached)
	if err == nil {
		metrics.IncCache("hit")
		f.logger.Debug("fx.cache_hit", zap.Float64("rate", cached))
		return cached
	}
	metrics.IncCache("miss")
	if !errors.Is(err, store.ErrCacheMiss) {
		f.logger.Warn("fx.cache_unavailable", zap.Error(err))
	}

	rate, err := f.fetch(ctx)
	if err != nil {
		f.logger.Error("fx.fetch_failed", zap.Error(err))
		metrics.IncError("fx", "fetch_failed")
		return FallbackUSDCAD
	}

	if err := f.cache.SetJSON(ctx, cacheKey, rate); err != nil {
		f.logger.Warn("fx.cache_write_failed", zap.Error(err))
	}
	return rate
}

func (f *Fetcher) fetch(ctx context.Context) (float64, error) {
	url := f.baseURL + "?pair=USDCAD"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("kraken ticker returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	var ticker tickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("decode failed: %w", err)
	}

	pair, ok := ticker.Result[krakenUSDCADPair]
	if !ok || len(pair.C) == 0 {
		return 0, fmt.Errorf("ticker response missing %s", krakenUSDCADPair)
	}

	rate, err := strconv.ParseFloat(pair.C[0], 64)
	if err != nil {
		return 0, fmt.Errorf("bad last price %q: %w", pair.C[0], err)
	}
	return rate, nil
}
