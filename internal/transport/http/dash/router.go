package dashhttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradedesk/internal/dashboard"
	"tradedesk/internal/gateway/schema"
	"tradedesk/internal/gateway/tradingctx"
	"tradedesk/internal/logger"
	"tradedesk/internal/store/incident"

	"github.com/gin-gonic/gin"
)

// Router 暴露仪表盘数据接口（快照/速率/组合/故障记录）。
type Router struct {
	handler   *Handler
	incidents *incident.Store
}

// NewRouter 构造 dash API router。
func NewRouter(handler *Handler, incidents *incident.Store) *Router {
	return &Router{handler: handler, incidents: incidents}
}

// Register 将 /api/dash 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/snapshot", r.handleSnapshot)
	group.POST("/snapshot", r.handleSnapshotPush)
	group.POST("/refresh", r.handleRefresh)
	group.GET("/velocity", r.handleVelocity)
	group.GET("/summary", r.handleSummary)
	group.GET("/holdings", r.handleHoldings)
	group.GET("/allocation", r.handleAllocation)
	group.GET("/incidents", r.handleIncidents)
	group.GET("/panels", r.handlePanels)
	group.GET("/boundaries", r.handleBoundaries)
	group.POST("/reload", r.handleReload)
}

func (r *Router) handleSnapshot(c *gin.Context) {
	snap, version, loaded := r.handler.cache.Load()
	if !loaded {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "尚无快照数据"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version":  version,
		"snapshot": snap,
	})
}

// handleSnapshotPush 接受外部推送的快照：先做结构校验，再入缓存
// 并异步持久化。
func (r *Router) handleSnapshotPush(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 8<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raw := string(body)
	if err := schema.ValidateSnapshot(raw); err != nil {
		logger.Warnf("[api] snapshot push rejected ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var snap tradingctx.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.handler.cache.Store(snap)
	r.persistSnapshot(snap)
	logger.Infof("[api] snapshot push ip=%s trades=%d holdings=%d", c.ClientIP(), len(snap.Trades), len(snap.Holdings))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": r.handler.cache.Version()})
}

// handleRefresh 立刻向上游拉一次快照。
func (r *Router) handleRefresh(c *gin.Context) {
	if r.handler.provider == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "未配置上游数据源"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	snap, err := r.handler.provider.Snapshot(ctx)
	if err != nil {
		logger.Errorf("[api] manual refresh failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	r.handler.cache.Store(snap)
	r.persistSnapshot(snap)
	logger.Infof("[api] manual refresh ip=%s trades=%d", c.ClientIP(), len(snap.Trades))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": r.handler.cache.Version()})
}

func (r *Router) persistSnapshot(snap tradingctx.Snapshot) {
	if r.handler.snapshots == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.handler.snapshots.SaveSnapshot(ctx, snap); err != nil {
			logger.Warnf("持久化快照失败: %v", err)
		}
	}()
}

func (r *Router) handleVelocity(c *gin.Context) {
	snap, _, _ := r.handler.cache.Load()
	p, _ := r.handler.velocityPanel()
	view := r.handler.buildVelocityView(p, snap)
	c.JSON(http.StatusOK, view)
}

func (r *Router) handleSummary(c *gin.Context) {
	snap, _, loaded := r.handler.cache.Load()
	if !loaded {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "尚无快照数据"})
		return
	}
	c.JSON(http.StatusOK, dashboard.BuildSummary(snap.Holdings, snap.Trades, snap.Account, time.Now()))
}

func (r *Router) handleHoldings(c *gin.Context) {
	snap, _, _ := r.handler.cache.Load()
	c.JSON(http.StatusOK, gin.H{"holdings": dashboard.BuildHoldings(snap.Holdings)})
}

func (r *Router) handleAllocation(c *gin.Context) {
	snap, _, _ := r.handler.cache.Load()
	c.JSON(http.StatusOK, gin.H{"allocation": dashboard.BuildAllocation(snap.Holdings)})
}

func (r *Router) handleIncidents(c *gin.Context) {
	if r.incidents == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "故障记录未启用"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	query := incident.Query{
		Boundary: strings.TrimSpace(c.Query("boundary")),
		Limit:    limit,
		Offset:   offset,
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	records, err := r.incidents.List(ctx, query)
	if err != nil {
		logger.Errorf("[api] incidents list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"incidents": records})
}

func (r *Router) handlePanels(c *gin.Context) {
	snap := r.handler.panels.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":   snap.Version,
		"loaded_at": snap.LoadedAt,
		"panels":    r.handler.panels.Ordered(),
	})
}

func (r *Router) handleBoundaries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"boundaries": r.handler.BoundaryStatuses()})
}

func (r *Router) handleReload(c *gin.Context) {
	r.handler.ResetBoundaries()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
