package dashboard

import (
	"testing"
	"time"

	"tradedesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeAt(ts time.Time, profit float64) types.Trade {
	p := profit
	return types.Trade{Symbol: "BTCUSDT", CreatedAt: &ts, NetProfit: &p}
}

func TestBucketizeTrades24h(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	trades := []types.Trade{
		tradeAt(now.Add(-30*time.Minute), 5),
		tradeAt(now.Add(-90*time.Minute), -3),
		tradeAt(now.Add(-25*time.Hour), 1),
	}

	buckets := BucketizeTrades(trades, now, 24, time.Hour)
	require.Len(t, buckets, 24)

	assert.Equal(t, 1, buckets[23].Count)
	assert.Equal(t, 1, buckets[23].ProfitableCount)
	assert.Equal(t, 0, buckets[23].LosingCount)

	assert.Equal(t, 1, buckets[22].Count)
	assert.Equal(t, 0, buckets[22].ProfitableCount)
	assert.Equal(t, 1, buckets[22].LosingCount)

	// T-25h 在窗口之外，整体消失而不是报错
	for i := 0; i < 22; i++ {
		assert.Zero(t, buckets[i].Count, "bucket %d should be empty", i)
	}

	stats := ComputeActivityStats(buckets)
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.CurrentWindowCount)
	assert.InDelta(t, 2.0/24.0, stats.AveragePerWindow, 1e-9)
}

func TestBucketizeTradesWindowEdges(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("oldest window lands at index 0", func(t *testing.T) {
		ts := now.Add(-23*time.Hour - 30*time.Minute) // windowsAgo = 23
		buckets := BucketizeTrades([]types.Trade{tradeAt(ts, 1)}, now, 24, time.Hour)
		assert.Equal(t, 1, buckets[0].Count)
	})

	t.Run("windowsAgo == windowCount is dropped", func(t *testing.T) {
		ts := now.Add(-24 * time.Hour)
		buckets := BucketizeTrades([]types.Trade{tradeAt(ts, 1)}, now, 24, time.Hour)
		assert.Zero(t, ComputeActivityStats(buckets).TotalCount)
	})

	t.Run("future timestamps are dropped", func(t *testing.T) {
		ts := now.Add(10 * time.Minute)
		buckets := BucketizeTrades([]types.Trade{tradeAt(ts, 1)}, now, 24, time.Hour)
		assert.Zero(t, ComputeActivityStats(buckets).TotalCount)
	})

	t.Run("nil timestamp is dropped", func(t *testing.T) {
		p := 2.0
		buckets := BucketizeTrades([]types.Trade{{NetProfit: &p}}, now, 24, time.Hour)
		assert.Zero(t, ComputeActivityStats(buckets).TotalCount)
	})
}

func TestBucketizeTradesNeutralProfit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Add(-10 * time.Minute)
	zero := 0.0
	trades := []types.Trade{
		{CreatedAt: &ts, NetProfit: &zero}, // 零盈亏：两边都不计
		{CreatedAt: &ts},                   // 缺失盈亏：两边都不计
		tradeAt(ts, 4),
	}
	buckets := BucketizeTrades(trades, now, 24, time.Hour)
	last := buckets[len(buckets)-1]
	assert.Equal(t, 3, last.Count)
	assert.Equal(t, 1, last.ProfitableCount)
	assert.Equal(t, 0, last.LosingCount)
	assert.LessOrEqual(t, last.ProfitableCount+last.LosingCount, last.Count)
}

func TestBucketizeTradesEmptyAndIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	empty := BucketizeTrades(nil, now, 24, time.Hour)
	require.Len(t, empty, 24)
	stats := ComputeActivityStats(empty)
	assert.Zero(t, stats.TotalCount)
	assert.Zero(t, stats.AveragePerWindow)

	trades := []types.Trade{
		tradeAt(now.Add(-1*time.Hour), 3),
		tradeAt(now.Add(-5*time.Hour), -1),
	}
	first := BucketizeTrades(trades, now, 24, time.Hour)
	second := BucketizeTrades(trades, now, 24, time.Hour)
	assert.Equal(t, first, second)

	// 输入切片不被修改
	assert.NotNil(t, trades[0].CreatedAt)
	assert.Equal(t, 3.0, *trades[0].NetProfit)
}

func TestBucketizeTradesDefaults(t *testing.T) {
	now := time.Now()
	buckets := BucketizeTrades(nil, now, 0, 0)
	assert.Len(t, buckets, DefaultWindowCount)
}

func TestBucketTone(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := []types.Trade{
		tradeAt(now.Add(-1*time.Hour-5*time.Minute), 2),  // windowsAgo=1 盈利多数
		tradeAt(now.Add(-2*time.Hour-5*time.Minute), -2), // windowsAgo=2 亏损多数
		tradeAt(now.Add(-3*time.Hour-5*time.Minute), 1),  // windowsAgo=3 持平
		tradeAt(now.Add(-3*time.Hour-6*time.Minute), -1),
	}
	buckets := BucketizeTrades(trades, now, 24, time.Hour)
	n := len(buckets)

	assert.Equal(t, ToneLatest, BucketTone(buckets, n-1))
	assert.Equal(t, ToneNetProfitable, BucketTone(buckets, n-2))
	assert.Equal(t, ToneNetLosing, BucketTone(buckets, n-3))
	// 持平与空桶同样为 neutral
	assert.Equal(t, ToneNeutral, BucketTone(buckets, n-4))
	assert.Equal(t, ToneNeutral, BucketTone(buckets, 0))
	assert.Equal(t, ToneNeutral, BucketTone(buckets, -1))
}
