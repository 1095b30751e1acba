package app

import (
	"context"
	"fmt"
	"time"

	tdcfg "tradedesk/internal/config"
	"tradedesk/internal/gateway/binance"
	"tradedesk/internal/gateway/tradingctx"
	"tradedesk/internal/logger"
	"tradedesk/internal/panel"
	"tradedesk/internal/store/gormstore"
	"tradedesk/internal/store/incident"
	dashhttp "tradedesk/internal/transport/http/dash"
)

type AppBuilder struct {
	cfg *tdcfg.Config

	providerFn func(*tdcfg.Config) (tradingctx.Provider, error)
	serverFn   func(dashhttp.ServerConfig) (*dashhttp.Server, error)

	incidentStoreOverride *incident.Store
	snapshotStoreOverride *gormstore.GormStore
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *tdcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		providerFn: buildSnapshotProvider,
		serverFn:   dashhttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	stores, err := b.resolveStores(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := panel.NewRegistry(cfg.Dashboard.PanelsPath)
	if err != nil {
		stores.close()
		return nil, fmt.Errorf("loading panel config failed: %w", err)
	}
	logger.Infof("✓ 已加载 %d 个面板: %s", len(registry.Ordered()), formatPanelList(registry.Ordered()))

	cache := tradingctx.NewCache()
	warmed := warmCacheFromStore(ctx, cache, stores.snapshots)

	provider, err := b.providerFn(cfg)
	if err != nil {
		stores.close()
		return nil, err
	}

	server, err := b.serverFn(dashhttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Cache:     cache,
		Provider:  provider,
		Panels:    registry,
		Incidents: stores.incidents,
		Snapshots: stores.snapshots,
		Sink:      stores.sink,
	})
	if err != nil {
		stores.close()
		return nil, fmt.Errorf("building dash server failed: %w", err)
	}

	var refresher *Refresher
	if provider != nil {
		refresher = NewRefresher(RefresherConfig{
			Provider:  provider,
			Cache:     cache,
			Snapshots: stores.snapshots,
			Interval:  time.Duration(cfg.Dashboard.RefreshIntervalSeconds) * time.Second,
			Keep:      cfg.Store.SnapshotKeep,
		})
	}

	return &App{
		cfg:       cfg,
		server:    server,
		refresher: refresher,
		incidents: stores.incidents,
		snapshots: stores.snapshots,
		Summary:   buildStartupSummary(cfg, registry.Ordered(), warmed),
	}, nil
}

type storeSetup struct {
	incidents *incident.Store
	snapshots *gormstore.GormStore
	sink      *incident.Sink
}

func (s *storeSetup) close() {
	if s.incidents != nil {
		_ = s.incidents.Close()
	}
	if s.snapshots != nil {
		_ = s.snapshots.Close()
	}
}

func (b *AppBuilder) resolveStores(cfg *tdcfg.Config) (storeSetup, error) {
	var setup storeSetup

	if b.incidentStoreOverride != nil {
		setup.incidents = b.incidentStoreOverride
	} else {
		store, err := incident.NewStore(cfg.Store.IncidentPath)
		if err != nil {
			return storeSetup{}, fmt.Errorf("opening incident store failed: %w", err)
		}
		setup.incidents = store
	}

	if b.snapshotStoreOverride != nil {
		setup.snapshots = b.snapshotStoreOverride
	} else {
		store, err := gormstore.NewGormStore(cfg.Store.SnapshotPath)
		if err != nil {
			setup.close()
			return storeSetup{}, fmt.Errorf("opening snapshot store failed: %w", err)
		}
		setup.snapshots = store
	}

	setup.sink = incident.NewSink(setup.incidents)
	return setup, nil
}

// buildSnapshotProvider 按 source.mode 选择快照来源。push 模式没有主动
// 拉取方，返回 nil provider，仅靠 HTTP 推送喂数据。
func buildSnapshotProvider(cfg *tdcfg.Config) (tradingctx.Provider, error) {
	switch cfg.Source.Mode {
	case "push":
		logger.Infof("[app] source.mode=push，等待快照推送")
		return nil, nil
	case "binance":
		src, err := binance.New(binance.Config{
			APIKey:       cfg.Source.Binance.APIKey,
			APISecret:    cfg.Source.Binance.APISecret,
			RESTBaseURL:  cfg.Source.Binance.RESTBaseURL,
			Symbols:      cfg.Source.Binance.Symbols,
			TradeLimit:   cfg.Source.Binance.TradeLimit,
			HTTPTimeout:  time.Duration(cfg.Source.Binance.TimeoutSeconds) * time.Second,
			ProxyEnabled: cfg.Source.Binance.Proxy.Enabled,
			RESTProxyURL: cfg.Source.Binance.Proxy.RESTURL,
		})
		if err != nil {
			return nil, fmt.Errorf("building binance source failed: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported source mode: %s", cfg.Source.Mode)
	}
}

// warmCacheFromStore 用最近一条持久化快照预热缓存，重启后面板不必等
// 首次刷新就有数据可画。
func warmCacheFromStore(ctx context.Context, cache *tradingctx.Cache, store *gormstore.GormStore) bool {
	if cache == nil || store == nil {
		return false
	}
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	snap, ok, err := store.LatestSnapshot(loadCtx)
	if err != nil {
		logger.Warnf("[app] 读取历史快照失败: %v", err)
		return false
	}
	if !ok {
		return false
	}
	cache.Store(snap)
	logger.Infof("✓ 已从快照库恢复 %s 的数据（交易 %d 条，持仓 %d 个）",
		snap.TakenAt.Format("2006-01-02 15:04:05"), len(snap.Trades), len(snap.Holdings))
	return true
}

// WithProvider 替换快照来源构造逻辑（测试用）。
func WithProvider(fn func(*tdcfg.Config) (tradingctx.Provider, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.providerFn = fn
		}
	}
}

// WithStorageOverrides 直接注入已打开的存储实例（测试用）。
func WithStorageOverrides(incidents *incident.Store, snapshots *gormstore.GormStore) AppBuilderOption {
	return func(b *AppBuilder) {
		b.incidentStoreOverride = incidents
		b.snapshotStoreOverride = snapshots
	}
}
