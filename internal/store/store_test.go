package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(rdb, ttl, nil), mr
}

func TestSetAndGetJSON(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, time.Minute)

	rate := model.Rate{Symbol: "BTC_CAD", Ask: 81000.5, Bid: 80990.1, Spot: 81000, Change: -1.2}
	if err := st.SetJSON(ctx, "binance_rate_BTC", rate); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var got model.Rate
	if err := st.GetJSON(ctx, "binance_rate_BTC", &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got != rate {
		t.Errorf("expected %+v, got %+v", rate, got)
	}
}

func TestGetJSON_Miss(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t, time.Minute)

	var got model.Rate
	err := st.GetJSON(ctx, "newton_rates", &got)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSetJSON_FixedTTLExpiry(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t, 200*time.Millisecond)

	if err := st.SetJSON(ctx, "usd_cad_rate", 1.37); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	// Fast forward miniredis past the store TTL
	mr.FastForward(300 * time.Millisecond)

	var got float64
	err := st.GetJSON(ctx, "usd_cad_rate", &got)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestGetJSON_TransportFault(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t, time.Minute)

	mr.Close()

	var got model.Rate
	err := st.GetJSON(ctx, "newton_rates", &got)
	if err == nil || errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected transport error distinct from ErrCacheMiss, got %v", err)
	}
}
