package tradingctx

import (
	"testing"
	"time"

	"tradedesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheEmptyUntilFirstStore(t *testing.T) {
	c := NewCache()
	_, version, ok := c.Load()
	assert.False(t, ok)
	assert.Zero(t, version)
}

func TestCacheStoreBumpsVersion(t *testing.T) {
	c := NewCache()
	c.Store(Snapshot{Trades: []types.Trade{{ID: "t1", Symbol: "BTCUSDT"}}})
	snap, version, ok := c.Load()
	require.True(t, ok)
	assert.Equal(t, uint64(1), version)
	require.Len(t, snap.Trades, 1)
	// TakenAt 为零时写入补当前时间
	assert.False(t, snap.TakenAt.IsZero())

	c.Store(Snapshot{})
	assert.Equal(t, uint64(2), c.Version())
}

func TestCacheLoadReturnsCopy(t *testing.T) {
	c := NewCache()
	taken := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c.Store(Snapshot{
		Trades:  []types.Trade{{ID: "t1"}},
		TakenAt: taken,
	})

	first, _, _ := c.Load()
	first.Trades[0].ID = "mutated"

	second, _, _ := c.Load()
	assert.Equal(t, "t1", second.Trades[0].ID)
	assert.True(t, second.TakenAt.Equal(taken))
}
