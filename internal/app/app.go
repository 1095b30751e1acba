package app

import (
	"context"
	"fmt"

	tdcfg "tradedesk/internal/config"
	"tradedesk/internal/logger"
	"tradedesk/internal/store/gormstore"
	"tradedesk/internal/store/incident"
	dashhttp "tradedesk/internal/transport/http/dash"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动看板服务与快照刷新。
type App struct {
	cfg       *tdcfg.Config
	server    *dashhttp.Server
	refresher *Refresher
	incidents *incident.Store
	snapshots *gormstore.GormStore
	Summary   *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *tdcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 看板服务与（binance 模式下的）快照刷新循环。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if a.Summary != nil {
		a.Summary.Print()
	}

	if a.server == nil {
		return fmt.Errorf("dash server not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("dash http server error: %w", err)
		}
		return nil
	})

	if a.refresher != nil {
		group.Go(func() error {
			return a.refresher.Run(ctx)
		})
	}

	err := group.Wait()
	a.closeStores()
	return err
}

func (a *App) closeStores() {
	if a.incidents != nil {
		if cerr := a.incidents.Close(); cerr != nil {
			logger.Warnf("[app] 关闭事件库失败: %v", cerr)
		}
	}
	if a.snapshots != nil {
		if cerr := a.snapshots.Close(); cerr != nil {
			logger.Warnf("[app] 关闭快照库失败: %v", cerr)
		}
	}
}

// Server exposes the underlying dash server instance (for testing harnesses).
func (a *App) Server() *dashhttp.Server {
	if a == nil {
		return nil
	}
	return a.server
}
