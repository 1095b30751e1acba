package dashboard

import (
	"testing"
	"time"

	"tradedesk/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleHoldings() []types.Holding {
	return []types.Holding{
		{Symbol: "BTCUSDT", Quantity: dec("0.5"), AvgEntryPrice: dec("60000"), LastPrice: dec("64000")},
		{Symbol: "ETHUSDT", Quantity: dec("10"), AvgEntryPrice: dec("3000"), LastPrice: dec("2800")},
		{Symbol: "DOGEUSDT", Quantity: dec("0"), AvgEntryPrice: dec("0.2"), LastPrice: dec("0.1")},
	}
}

func TestBuildSummary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	account := types.AccountSnapshot{
		Available: dec("10000"),
		Currency:  "USDT",
		UpdatedAt: now,
	}
	recent := now.Add(-2 * time.Hour)
	stale := now.Add(-30 * time.Hour)
	p1, p2 := 120.0, -40.0
	trades := []types.Trade{
		{Symbol: "BTCUSDT", CreatedAt: &recent, NetProfit: &p1},
		{Symbol: "ETHUSDT", CreatedAt: &recent, NetProfit: &p2},
		{Symbol: "BTCUSDT", CreatedAt: &stale, NetProfit: &p1},
		{Symbol: "BTCUSDT"}, // 无时间戳：不计入今日
	}

	s := BuildSummary(sampleHoldings(), trades, account, now)

	// 0.5*64000 + 10*2800 = 60000
	assert.True(t, s.Invested.Equal(dec("60000")), "invested=%s", s.Invested)
	assert.True(t, s.Cash.Equal(dec("10000")))
	assert.True(t, s.Equity.Equal(dec("70000")))
	// 0.5*4000 - 10*200 = 0
	assert.True(t, s.UnrealizedPnL.Equal(dec("0")), "unrealized=%s", s.UnrealizedPnL)
	assert.Equal(t, 2, s.TradesToday)
	assert.True(t, s.ProfitToday.Equal(dec("80")))
	assert.Equal(t, "USDT", s.Currency)
}

func TestBuildHoldingsSortedWithWeights(t *testing.T) {
	rows := BuildHoldings(sampleHoldings())
	require.Len(t, rows, 3)

	assert.Equal(t, "BTCUSDT", rows[0].Symbol)
	assert.Equal(t, "ETHUSDT", rows[1].Symbol)
	assert.True(t, rows[0].MarketValue.Equal(dec("32000")))
	// 32000/60000 ≈ 53.33%
	assert.True(t, rows[0].WeightPct.Equal(dec("53.33")), "weight=%s", rows[0].WeightPct)
	assert.True(t, rows[2].MarketValue.IsZero())
	assert.True(t, rows[2].WeightPct.IsZero())
}

func TestBuildAllocationDropsZeroValue(t *testing.T) {
	slices := BuildAllocation(sampleHoldings())
	require.Len(t, slices, 2)
	assert.Equal(t, "BTCUSDT", slices[0].Symbol)
	assert.True(t, slices[0].Percent.Equal(dec("53.33")))
	assert.True(t, slices[1].Percent.Equal(dec("46.67")))

	assert.Nil(t, BuildAllocation(nil))
}
