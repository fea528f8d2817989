package venues

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/rates-gateway/internal/store"
)

// newTestCache spins up a miniredis-backed store with a 1 minute TTL.
func newTestCache(t *testing.T) store.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.NewWithClient(rdb, time.Minute, nil)
}
