package dashhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradedesk/internal/dashboard"
	"tradedesk/internal/gateway/tradingctx"
	"tradedesk/internal/logger"
	"tradedesk/internal/panel"
	"tradedesk/internal/store/gormstore"
	"tradedesk/internal/store/incident"

	"github.com/gin-gonic/gin"
)

// Server 提供仪表盘页面与 /api/dash 接口。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 dash HTTP 服务依赖。
type ServerConfig struct {
	Addr      string
	Cache     *tradingctx.Cache
	Provider  tradingctx.Provider
	Panels    *panel.Registry
	Incidents *incident.Store
	Snapshots *gormstore.GormStore
	Sink      dashboard.IncidentSink
}

// NewServer 构建 dash HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Cache == nil {
		return nil, errors.New("dash http server requires snapshot cache")
	}
	if cfg.Panels == nil {
		return nil, errors.New("dash http server requires panel registry")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	handler := NewHandler(cfg)
	handler.registerPages(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apiRouter := NewRouter(handler, cfg.Incidents)
	apiRouter.Register(router.Group("/api/dash"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录页面与接口访问，便于追踪刷新与调用。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler 暴露底层 http.Handler，测试时直接打请求用。
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
