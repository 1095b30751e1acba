package dashboard

import (
	"fmt"
	"time"

	"tradedesk/internal/types"
)

// 默认的交易速率视图：过去 24 个小时窗口。
const (
	DefaultWindowCount = 24
	DefaultWindowSize  = time.Hour
)

// Bucket aggregates the trades that fall into one trailing time window.
// ProfitableCount + LosingCount <= Count: trades with a zero or missing
// net profit count toward neither side.
type Bucket struct {
	Label           string `json:"label"`
	Count           int    `json:"count"`
	ProfitableCount int    `json:"profitable_count"`
	LosingCount     int    `json:"losing_count"`
}

// Tone 是图表侧的桶配色分类。
type Tone string

const (
	ToneLatest        Tone = "latest"
	ToneNetProfitable Tone = "net_profitable"
	ToneNetLosing     Tone = "net_losing"
	ToneNeutral       Tone = "neutral"
)

// BucketizeTrades 将乱序的成交记录折叠进 windowCount 个定宽窗口，
// 返回从旧到新排列的桶序列，最后一个桶覆盖 now 所在窗口。
//
// 缺少时间戳或落在窗口之外的记录被静默丢弃：陈旧/残缺数据不应
// 污染可见窗口，也不构成错误。纯函数，不修改输入。
func BucketizeTrades(trades []types.Trade, now time.Time, windowCount int, windowSize time.Duration) []Bucket {
	if windowCount <= 0 {
		windowCount = DefaultWindowCount
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	buckets := make([]Bucket, windowCount)
	for i := range buckets {
		windowsAgo := windowCount - 1 - i
		start := now.Add(-time.Duration(windowsAgo) * windowSize)
		buckets[i].Label = fmt.Sprintf("%02d:00", start.Hour())
	}
	for _, trade := range trades {
		if trade.CreatedAt == nil {
			continue
		}
		elapsed := now.Sub(*trade.CreatedAt)
		if elapsed < 0 {
			continue
		}
		windowsAgo := int(elapsed / windowSize)
		if windowsAgo >= windowCount {
			continue
		}
		idx := windowCount - 1 - windowsAgo
		buckets[idx].Count++
		if trade.NetProfit != nil {
			switch {
			case *trade.NetProfit > 0:
				buckets[idx].ProfitableCount++
			case *trade.NetProfit < 0:
				buckets[idx].LosingCount++
			}
		}
	}
	return buckets
}

// BucketTone 返回第 idx 个桶的配色：最新桶固定 latest，其余按
// 盈亏多数决；持平与空桶同样归入 neutral（与零成交不作区分）。
func BucketTone(buckets []Bucket, idx int) Tone {
	if idx < 0 || idx >= len(buckets) {
		return ToneNeutral
	}
	if idx == len(buckets)-1 {
		return ToneLatest
	}
	b := buckets[idx]
	switch {
	case b.ProfitableCount > b.LosingCount:
		return ToneNetProfitable
	case b.LosingCount > b.ProfitableCount:
		return ToneNetLosing
	default:
		return ToneNeutral
	}
}

// ActivityStats are the caller-level numbers shown above the chart.
type ActivityStats struct {
	TotalCount         int     `json:"total_count"`
	AveragePerWindow   float64 `json:"average_per_window"`
	CurrentWindowCount int     `json:"current_window_count"`
}

// ComputeActivityStats 汇总桶序列的总量/均值/当前窗口计数。
func ComputeActivityStats(buckets []Bucket) ActivityStats {
	var stats ActivityStats
	if len(buckets) == 0 {
		return stats
	}
	for _, b := range buckets {
		stats.TotalCount += b.Count
	}
	stats.AveragePerWindow = float64(stats.TotalCount) / float64(len(buckets))
	stats.CurrentWindowCount = buckets[len(buckets)-1].Count
	return stats
}
