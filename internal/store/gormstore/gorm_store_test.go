package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradedesk/internal/gateway/tradingctx"
	"tradedesk/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSnapshot(taken time.Time) tradingctx.Snapshot {
	t1 := taken.Add(-time.Hour)
	t2 := taken.Add(-2 * time.Hour)
	p1, p2 := 12.5, -4.0
	return tradingctx.Snapshot{
		Trades: []types.Trade{
			{ID: "1", Symbol: "BTCUSDT", Side: "buy", Quantity: 0.5, Price: 60000, CreatedAt: &t1, NetProfit: &p1},
			{ID: "2", Symbol: "ETHUSDT", Side: "sell", Quantity: 2, Price: 3000, CreatedAt: &t2, NetProfit: &p2},
		},
		Holdings: []types.Holding{
			{Symbol: "BTCUSDT", Quantity: decimal.NewFromFloat(0.5), AvgEntryPrice: decimal.NewFromInt(60000), LastPrice: decimal.NewFromInt(64000)},
		},
		Account: types.AccountSnapshot{
			Total:     decimal.NewFromInt(70000),
			Available: decimal.NewFromInt(10000),
			Currency:  "USDT",
			UpdatedAt: taken,
		},
		TakenAt: taken,
	}
}

func TestSaveAndLatestSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	taken := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot(taken)))
	require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot(taken.Add(time.Hour))))

	snap, ok, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, taken.Add(time.Hour).UnixMilli(), snap.TakenAt.UnixMilli())
	require.Len(t, snap.Trades, 2)
	assert.Equal(t, "BTCUSDT", snap.Trades[0].Symbol)
	require.NotNil(t, snap.Trades[0].NetProfit)
	assert.InDelta(t, 12.5, *snap.Trades[0].NetProfit, 1e-9)
	require.Len(t, snap.Holdings, 1)
	assert.True(t, snap.Holdings[0].LastPrice.Equal(decimal.NewFromInt(64000)))
	assert.Equal(t, "USDT", snap.Account.Currency)
}

func TestTradesDedupedAcrossSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	taken := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 同一批成交保存两次，trade_id 去重后仍是两条
	require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot(taken)))
	require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot(taken.Add(time.Minute))))

	trades, err := s.ListTradesSince(ctx, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	// 升序：T-2h 在前
	assert.Equal(t, "2", trades[0].ID)
	assert.Equal(t, "1", trades[1].ID)

	recent, err := s.ListTradesSince(ctx, taken.Add(-90*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "1", recent[0].ID)
}

func TestPruneSnapshotsKeepsNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	taken := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveSnapshot(ctx, sampleSnapshot(taken.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, s.PruneSnapshots(ctx, 2))

	var count int64
	require.NoError(t, s.db.Model(&snapshotModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	snap, ok, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, taken.Add(4*time.Hour).UnixMilli(), snap.TakenAt.UnixMilli())
}
