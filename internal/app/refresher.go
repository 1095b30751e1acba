package app

import (
	"context"
	"time"

	"tradedesk/internal/gateway/tradingctx"
	"tradedesk/internal/logger"
	"tradedesk/internal/store/gormstore"
)

// Refresher 周期性从 provider 拉取快照，写入缓存并落库。
// 拉取失败只告警，缓存里保留上一份快照继续供渲染。
type Refresher struct {
	provider  tradingctx.Provider
	cache     *tradingctx.Cache
	snapshots *gormstore.GormStore
	interval  time.Duration
	keep      int
}

type RefresherConfig struct {
	Provider  tradingctx.Provider
	Cache     *tradingctx.Cache
	Snapshots *gormstore.GormStore
	Interval  time.Duration
	Keep      int
}

func NewRefresher(cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	return &Refresher{
		provider:  cfg.Provider,
		cache:     cfg.Cache,
		snapshots: cfg.Snapshots,
		interval:  interval,
		keep:      cfg.Keep,
	}
}

// Run 先立即拉一次，再按固定间隔循环，直到 ctx 取消。
func (r *Refresher) Run(ctx context.Context) error {
	if r == nil || r.provider == nil || r.cache == nil {
		return nil
	}
	r.refreshOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	snap, err := r.provider.Snapshot(fetchCtx)
	if err != nil {
		logger.Warnf("[refresher] 拉取快照失败: %v", err)
		return
	}
	r.cache.Store(snap)
	logger.Debugf("[refresher] 快照已更新（交易 %d 条，持仓 %d 个）", len(snap.Trades), len(snap.Holdings))

	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.SaveSnapshot(fetchCtx, snap); err != nil {
		logger.Warnf("[refresher] 快照落库失败: %v", err)
		return
	}
	if r.keep > 0 {
		if err := r.snapshots.PruneSnapshots(fetchCtx, r.keep); err != nil {
			logger.Warnf("[refresher] 清理历史快照失败: %v", err)
		}
	}
}
