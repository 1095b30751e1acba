package charts

import (
	"strings"
	"testing"
	"time"

	"tradedesk/internal/dashboard"
	"tradedesk/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBuckets(t *testing.T) []dashboard.Bucket {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-30 * time.Minute)
	old := now.Add(-90 * time.Minute)
	profit, loss := 5.0, -3.0
	trades := []types.Trade{
		{Symbol: "BTCUSDT", CreatedAt: &recent, NetProfit: &profit},
		{Symbol: "ETHUSDT", CreatedAt: &old, NetProfit: &loss},
	}
	return dashboard.BucketizeTrades(trades, now, dashboard.DefaultWindowCount, dashboard.DefaultWindowSize)
}

func TestBuildVelocityHTML(t *testing.T) {
	html, err := BuildVelocityHTML(sampleBuckets(t))
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "Trade Velocity")
	// 桶标签进入 X 轴
	assert.Contains(t, out, "12:00")
	// 最新桶与净亏损桶各自配色
	assert.Contains(t, out, colorLatest)
	assert.Contains(t, out, colorLosing)
}

func TestBuildVelocityHTMLEmptyBuckets(t *testing.T) {
	html, err := BuildVelocityHTML(nil)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(html), "Trade Velocity"))
}

func TestBuildAllocationHTML(t *testing.T) {
	slices := dashboard.BuildAllocation([]types.Holding{
		{Symbol: "BTCUSDT", Quantity: decimal.NewFromFloat(0.5), LastPrice: decimal.NewFromInt(64000)},
		{Symbol: "ETHUSDT", Quantity: decimal.NewFromInt(10), LastPrice: decimal.NewFromInt(2800)},
	})
	require.Len(t, slices, 2)

	html, err := BuildAllocationHTML(slices)
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "Allocation")
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "ETHUSDT")
}
