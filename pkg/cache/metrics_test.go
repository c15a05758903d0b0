package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetrics_TrackOperations(t *testing.T) {
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	defer c.Close()

	hits := testutil.ToFloat64(CacheHitsTotal)
	misses := testutil.ToFloat64(CacheMissesTotal)
	sets := testutil.ToFloat64(CacheSetsTotal)
	deletes := testutil.ToFloat64(CacheDeletesTotal)

	require.True(t, c.Set("markets:list:open", []string{"a"}, time.Minute))
	require.True(t, c.Set("markets:slug:a", "a", time.Minute))
	c.Wait()

	_, ok := c.Get("markets:list:open")
	assert.True(t, ok)
	_, ok = c.Get("portfolio:0xabc")
	assert.False(t, ok)

	assert.Equal(t, 2, c.DeletePrefix("markets:"))

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHitsTotal))
	assert.Equal(t, misses+1, testutil.ToFloat64(CacheMissesTotal))
	assert.Equal(t, sets+2, testutil.ToFloat64(CacheSetsTotal))
	assert.Equal(t, deletes+2, testutil.ToFloat64(CacheDeletesTotal))
}

func TestMetrics_RecordHitRatio(t *testing.T) {
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", "v", time.Minute)
	c.Wait()
	c.Get("k")
	c.Get("missing")

	c.RecordHitRatio()
	ratio := testutil.ToFloat64(CacheHitRate)
	assert.GreaterOrEqual(t, ratio, 0.0)
	assert.LessOrEqual(t, ratio, 1.0)
}

func TestRunStats_RecordsUntilCancelled(t *testing.T) {
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Set("markets:slug:a", "a", time.Minute))
	c.Wait()
	for i := 0; i < 3; i++ {
		c.Get("markets:slug:a")
	}

	CacheHitRate.Set(-1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.RunStats(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(CacheHitRate) > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunStats did not stop after cancel")
	}
}
