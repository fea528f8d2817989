package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/internal/metrics"
	"github.com/Checker-Finance/rates-gateway/internal/retry"
	"github.com/Checker-Finance/rates-gateway/internal/venues"
	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

// Retry budgets per tier. The bulk primary fetch gets a tighter schedule than
// the per-asset cascades, which fan out wide and back off longer.
const (
	primaryRetries = 3
	primaryDelay   = 100 * time.Millisecond
	cascadeRetries = 2
	cascadeDelay   = 200 * time.Millisecond
)

// PrimaryClient is the bulk feed covering (most of) the asset universe.
type PrimaryClient interface {
	FetchRates(ctx context.Context) ([]model.Rate, error)
}

// TickerClient is a per-asset fallback feed quoting in USD.
type TickerClient interface {
	FetchRate(ctx context.Context, asset string, usdCAD float64) (*model.Rate, error)
}

// FXSource supplies the USD→CAD conversion multiplier.
type FXSource interface {
	USDCAD(ctx context.Context) float64
}

// Aggregator runs the provider cascade: the primary bulk feed first, then
// per-asset fallbacks through the secondary and tertiary venues for whatever
// the primary is missing. Assets no venue can supply are remembered for the
// process lifetime and reported as zero-valued placeholders.
type Aggregator struct {
	logger    *zap.Logger
	fx        FXSource
	primary   PrimaryClient
	secondary TickerClient
	tertiary  TickerClient
	universe  []string

	mu          sync.Mutex
	unsupported map[string]struct{}
}

// New constructs an Aggregator over the given asset universe.
func New(
	logger *zap.Logger,
	fx FXSource,
	primary PrimaryClient,
	secondary TickerClient,
	tertiary TickerClient,
	universe []string,
) *Aggregator {
	return &Aggregator{
		logger:      logger,
		fx:          fx,
		primary:     primary,
		secondary:   secondary,
		tertiary:    tertiary,
		universe:    universe,
		unsupported: make(map[string]struct{}),
	}
}

// MarkUnsupported seeds assets into the unsupported set. Exposed for tests
// and for warm-starting a replacement instance.
func (a *Aggregator) MarkUnsupported(assets ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, asset := range assets {
		a.unsupported[asset] = struct{}{}
	}
}

// UnsupportedAssets returns a snapshot of the unsupported set.
func (a *Aggregator) UnsupportedAssets() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.unsupported))
	for _, asset := range a.universe {
		if _, ok := a.unsupported[asset]; ok {
			out = append(out, asset)
		}
	}
	return out
}

func (a *Aggregator) isUnsupported(asset string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.unsupported[asset]
	return ok
}

// FetchAllRates runs one full aggregation pass and returns the merged rate
// set. It never returns an error: total failure is an empty result, partial
// failure a smaller-than-universe result. Safe for concurrent passes; the
// cache and the unsupported set are the only shared state.
func (a *Aggregator) FetchAllRates(ctx context.Context) []model.Rate {
	start := time.Now()

	var (
		wg           sync.WaitGroup
		primaryRates []model.Rate
		primaryOK    bool
		usdCAD       float64
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		primaryRates, primaryOK = retry.Do(ctx, a.logger, "newton.fetch_rates",
			retry.Options{Retries: primaryRetries, InitialDelay: primaryDelay},
			func(ctx context.Context) ([]model.Rate, error) {
				return a.primary.FetchRates(ctx)
			})
	}()
	go func() {
		defer wg.Done()
		// The FX fetcher degrades to a fallback constant instead of failing,
		// so the schedule here only guards against future contract changes.
		usdCAD, _ = retry.Do(ctx, a.logger, "fx.usd_cad",
			retry.Options{Retries: primaryRetries, InitialDelay: primaryDelay},
			func(ctx context.Context) (float64, error) {
				return a.fx.USDCAD(ctx), nil
			})
	}()
	wg.Wait()

	if !primaryOK {
		a.logger.Error("aggregator.primary_fetch_failed")
		metrics.IncError("aggregator", "primary_fetch_failed")
		return nil
	}

	present := make(map[string]struct{}, len(primaryRates))
	for _, r := range primaryRates {
		present[r.Asset()] = struct{}{}
	}

	// Assets already known to be unsupported skip the cascade entirely and go
	// straight to a placeholder.
	var missing, shadowed []string
	for _, asset := range a.universe {
		if _, ok := present[asset]; ok {
			continue
		}
		if a.isUnsupported(asset) {
			shadowed = append(shadowed, asset)
			continue
		}
		missing = append(missing, asset)
	}

	if len(missing) == 0 && len(shadowed) == 0 {
		metrics.ObservePass(start)
		return primaryRates
	}

	merged := append([]model.Rate(nil), primaryRates...)

	if len(missing) > 0 {
		resolved, failed := a.cascadeSecondary(ctx, missing, usdCAD)
		merged = append(merged, resolved...)

		if len(failed) > 0 {
			resolved, notOffered := a.cascadeTertiary(ctx, failed, usdCAD)
			merged = append(merged, resolved...)
			if len(notOffered) > 0 {
				a.MarkUnsupported(notOffered...)
				shadowed = append(shadowed, notOffered...)
			}
		}
	}

	for _, asset := range shadowed {
		merged = append(merged, model.ZeroRate(asset))
	}

	metrics.ObservePass(start)
	a.logger.Info("aggregator.pass_complete",
		zap.Int("primary", len(primaryRates)),
		zap.Int("merged", len(merged)),
		zap.Int("placeholders", len(shadowed)),
		zap.Duration("elapsed", time.Since(start)))

	return merged
}

// cascadeSecondary fans the missing assets out to the secondary venue.
// Each asset is an independent unit of work; one failure never affects its
// siblings. Assets that exhaust their retry budget are returned as failed.
func (a *Aggregator) cascadeSecondary(ctx context.Context, assets []string, usdCAD float64) (resolved []model.Rate, failed []string) {
	results := make([]*model.Rate, len(assets))

	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset string) {
			defer wg.Done()
			r, ok := retry.Do(ctx, a.logger, "binance.fetch_rate "+asset,
				retry.Options{Retries: cascadeRetries, InitialDelay: cascadeDelay},
				func(ctx context.Context) (*model.Rate, error) {
					return a.secondary.FetchRate(ctx, asset, usdCAD)
				})
			if ok {
				results[i] = r
			}
		}(i, asset)
	}
	wg.Wait()

	for i, r := range results {
		if r != nil {
			resolved = append(resolved, *r)
		} else {
			failed = append(failed, assets[i])
		}
	}
	return resolved, failed
}

// cascadeTertiary fans the still-unresolved assets out to the tertiary venue.
// A structural "not offered" response is not retried; those assets are
// returned separately so the caller can record them as unsupported.
func (a *Aggregator) cascadeTertiary(ctx context.Context, assets []string, usdCAD float64) (resolved []model.Rate, notOffered []string) {
	type outcome struct {
		rate       *model.Rate
		notOffered bool
	}
	results := make([]outcome, len(assets))

	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset string) {
			defer wg.Done()
			r, ok := retry.Do(ctx, a.logger, "kraken.fetch_rate "+asset,
				retry.Options{Retries: cascadeRetries, InitialDelay: cascadeDelay},
				func(ctx context.Context) (*model.Rate, error) {
					r, err := a.tertiary.FetchRate(ctx, asset, usdCAD)
					if errors.Is(err, venues.ErrNotOffered) {
						results[i].notOffered = true
						return nil, retry.Permanent(err)
					}
					return r, err
				})
			if ok {
				results[i].rate = r
			}
		}(i, asset)
	}
	wg.Wait()

	for i, res := range results {
		switch {
		case res.rate != nil:
			resolved = append(resolved, *res.rate)
		case res.notOffered:
			notOffered = append(notOffered, assets[i])
		}
	}
	return resolved, notOffered
}
