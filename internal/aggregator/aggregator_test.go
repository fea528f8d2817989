package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/internal/venues"
	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

// --- Stub venues ---

type stubPrimary struct {
	rates []model.Rate
	err   error
	calls int64
}

func (s *stubPrimary) FetchRates(ctx context.Context) ([]model.Rate, error) {
	atomic.AddInt64(&s.calls, 1)
	return s.rates, s.err
}

type stubTicker struct {
	fn    func(asset string, usdCAD float64) (*model.Rate, error)
	calls int64
}

func (s *stubTicker) FetchRate(ctx context.Context, asset string, usdCAD float64) (*model.Rate, error) {
	atomic.AddInt64(&s.calls, 1)
	return s.fn(asset, usdCAD)
}

type stubFX struct{ rate float64 }

func (s stubFX) USDCAD(ctx context.Context) float64 { return s.rate }

func quote(asset string, spot float64) *model.Rate {
	return &model.Rate{
		Symbol: model.SymbolFor(asset),
		Ask:    spot + 1,
		Bid:    spot - 1,
		Spot:   spot,
		Change: 0.5,
	}
}

func newTestAggregator(primary *stubPrimary, secondary, tertiary *stubTicker, universe []string) *Aggregator {
	return New(zap.NewNop(), stubFX{rate: 1.35}, primary, secondary, tertiary, universe)
}

func symbols(rates []model.Rate) []string {
	out := make([]string, len(rates))
	for i, r := range rates {
		out[i] = r.Symbol
	}
	return out
}

// --- Tests ---

func TestFetchAllRates_PrimaryCoversUniverse(t *testing.T) {
	primary := &stubPrimary{rates: []model.Rate{*quote("BTC", 80000), *quote("ETH", 4000)}}
	secondary := &stubTicker{fn: func(string, float64) (*model.Rate, error) { t.Error("secondary must not be called"); return nil, nil }}
	tertiary := &stubTicker{fn: func(string, float64) (*model.Rate, error) { t.Error("tertiary must not be called"); return nil, nil }}

	agg := newTestAggregator(primary, secondary, tertiary, []string{"BTC", "ETH"})
	rates := agg.FetchAllRates(context.Background())

	require.Len(t, rates, 2)
	assert.Zero(t, atomic.LoadInt64(&secondary.calls))
	assert.Zero(t, atomic.LoadInt64(&tertiary.calls))
}

func TestFetchAllRates_PrimaryExhaustionFailsPass(t *testing.T) {
	primary := &stubPrimary{err: errors.New("newton down")}
	secondary := &stubTicker{fn: func(string, float64) (*model.Rate, error) { return nil, nil }}
	tertiary := &stubTicker{fn: func(string, float64) (*model.Rate, error) { return nil, nil }}

	agg := newTestAggregator(primary, secondary, tertiary, []string{"BTC"})
	rates := agg.FetchAllRates(context.Background())

	assert.Empty(t, rates)
	// No partial result: the cascade never starts without a primary baseline
	assert.Zero(t, atomic.LoadInt64(&secondary.calls))
	// R=3 means 4 attempts
	assert.EqualValues(t, 4, atomic.LoadInt64(&primary.calls))
}

func TestFetchAllRates_SecondaryFillsGap(t *testing.T) {
	primary := &stubPrimary{rates: []model.Rate{*quote("BTC", 80000)}}
	secondary := &stubTicker{fn: func(asset string, usdCAD float64) (*model.Rate, error) {
		require.Equal(t, "ETH", asset)
		return quote("ETH", 4000*usdCAD), nil
	}}
	tertiary := &stubTicker{fn: func(string, float64) (*model.Rate, error) { t.Error("tertiary must not be called"); return nil, nil }}

	agg := newTestAggregator(primary, secondary, tertiary, []string{"BTC", "ETH"})
	rates := agg.FetchAllRates(context.Background())

	require.Len(t, rates, 2)
	assert.ElementsMatch(t, []string{"BTC_CAD", "ETH_CAD"}, symbols(rates))
	assert.Zero(t, atomic.LoadInt64(&tertiary.calls))
}

func TestFetchAllRates_TertiaryNotOfferedBecomesPlaceholder(t *testing.T) {
	primary := &stubPrimary{rates: []model.Rate{}}
	secondary := &stubTicker{fn: func(string, float64) (*model.Rate, error) {
		return nil, errors.New("binance 5xx")
	}}
	tertiary := &stubTicker{fn: func(asset string, _ float64) (*model.Rate, error) {
		return nil, venues.ErrNotOffered
	}}

	agg := newTestAggregator(primary, secondary, tertiary, []string{"QCAD"})

	rates := agg.FetchAllRates(context.Background())
	require.Len(t, rates, 1)
	assert.Equal(t, model.Rate{Symbol: "QCAD_CAD"}, rates[0])
	assert.Equal(t, []string{"QCAD"}, agg.UnsupportedAssets())

	// The structural signal must not consume the retry budget
	assert.EqualValues(t, 1, atomic.LoadInt64(&tertiary.calls))

	// Subsequent passes report the placeholder without re-cascading
	secondaryCalls := atomic.LoadInt64(&secondary.calls)
	tertiaryCalls := atomic.LoadInt64(&tertiary.calls)

	rates = agg.FetchAllRates(context.Background())
	require.Len(t, rates, 1)
	assert.Equal(t, model.Rate{Symbol: "QCAD_CAD"}, rates[0])
	assert.Equal(t, secondaryCalls, atomic.LoadInt64(&secondary.calls))
	assert.Equal(t, tertiaryCalls, atomic.LoadInt64(&tertiary.calls))
}

func TestFetchAllRates_PlaceholdersMatchUnsupportedSetNoDuplicates(t *testing.T) {
	primary := &stubPrimary{rates: []model.Rate{*quote("BTC", 80000)}}
	secondary := &stubTicker{fn: func(asset string, _ float64) (*model.Rate, error) {
		if asset == "ETH" {
			return quote("ETH", 5000), nil
		}
		return nil, venues.ErrEmptyQuote
	}}
	tertiary := &stubTicker{fn: func(asset string, _ float64) (*model.Rate, error) {
		return nil, venues.ErrNotOffered
	}}

	universe := []string{"BTC", "ETH", "QCAD", "UST"}
	agg := newTestAggregator(primary, secondary, tertiary, universe)

	rates := agg.FetchAllRates(context.Background())
	require.Len(t, rates, len(universe))

	placeholders := 0
	seen := map[string]int{}
	for _, r := range rates {
		seen[r.Symbol]++
		if r.Ask == 0 && r.Bid == 0 && r.Spot == 0 && r.Change == 0 {
			placeholders++
		}
	}
	assert.Equal(t, len(agg.UnsupportedAssets()), placeholders)
	for sym, n := range seen {
		assert.Equal(t, 1, n, "symbol %s appears %d times", sym, n)
	}
}

func TestFetchAllRates_SeededUnsupportedSkipsCascade(t *testing.T) {
	primary := &stubPrimary{rates: []model.Rate{*quote("BTC", 80000)}}
	secondary := &stubTicker{fn: func(string, float64) (*model.Rate, error) { t.Error("secondary must not be called"); return nil, nil }}
	tertiary := &stubTicker{fn: func(string, float64) (*model.Rate, error) { t.Error("tertiary must not be called"); return nil, nil }}

	agg := newTestAggregator(primary, secondary, tertiary, []string{"BTC", "QCAD"})
	agg.MarkUnsupported("QCAD")

	rates := agg.FetchAllRates(context.Background())
	require.Len(t, rates, 2)
	assert.ElementsMatch(t, []string{"BTC_CAD", "QCAD_CAD"}, symbols(rates))
	assert.Zero(t, atomic.LoadInt64(&secondary.calls))
	assert.Zero(t, atomic.LoadInt64(&tertiary.calls))
}
