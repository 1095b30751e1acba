package dashhttp

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"tradedesk/internal/charts"
	"tradedesk/internal/dashboard"
	"tradedesk/internal/gateway/tradingctx"
	"tradedesk/internal/logger"
	"tradedesk/internal/panel"
	"tradedesk/internal/store/gormstore"
	"tradedesk/internal/store/incident"

	"github.com/gin-gonic/gin"
)

// Handler 组装仪表盘页面：每个面板经由各自的失败边界渲染，
// 单个面板崩掉只降级自己，不影响整页。
type Handler struct {
	cache     *tradingctx.Cache
	provider  tradingctx.Provider
	panels    *panel.Registry
	incidents *incident.Store
	snapshots *gormstore.GormStore
	sink      dashboard.IncidentSink

	mu         sync.Mutex
	boundaries map[string]*dashboard.Boundary
	rendered   map[string]renderedPanel
}

// renderedPanel 按快照版本缓存面板片段，版本不变时不重算。
type renderedPanel struct {
	version uint64
	html    string
}

// NewHandler 构造 handler。
func NewHandler(cfg ServerConfig) *Handler {
	h := &Handler{
		cache:      cfg.Cache,
		provider:   cfg.Provider,
		panels:     cfg.Panels,
		incidents:  cfg.Incidents,
		snapshots:  cfg.Snapshots,
		sink:       cfg.Sink,
		boundaries: make(map[string]*dashboard.Boundary),
		rendered:   make(map[string]renderedPanel),
	}
	// 面板配置热更新等价于整页 reload：所有边界回到 Healthy
	cfg.Panels.Subscribe(func(panel.Snapshot) {
		h.ResetBoundaries()
	})
	return h
}

func (h *Handler) registerPages(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dash")
	})
	router.GET("/dash", h.handleDashboardPage)
	router.GET("/dash/velocity", h.handleVelocityPage)
	router.GET("/dash/allocation", h.handleAllocationPage)
	router.GET("/dash/holdings", h.handlePanelPage(panel.KindHoldings, "当前持仓"))
	router.GET("/dash/incidents", h.handlePanelPage(panel.KindIncidents, "渲染事件"))
	router.GET("/dash/velocity.png", h.handleVelocityPNG)
	router.POST("/dash/reload", h.handleReload)
}

// ResetBoundaries 丢弃所有边界与渲染缓存。这是失败面板唯一的
// 恢复途径：下次渲染重新从 Healthy 开始。
func (h *Handler) ResetBoundaries() {
	h.mu.Lock()
	h.boundaries = make(map[string]*dashboard.Boundary)
	h.rendered = make(map[string]renderedPanel)
	h.mu.Unlock()
	logger.Infof("dashboard boundaries reset")
}

func (h *Handler) boundaryFor(id string) *dashboard.Boundary {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.boundaries[id]
	if !ok {
		b = dashboard.NewBoundary(id, h.sink, nil)
		h.boundaries[id] = b
	}
	return b
}

// BoundaryStatuses 返回所有已创建边界的状态。
func (h *Handler) BoundaryStatuses() []BoundaryStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]BoundaryStatus, 0, len(h.boundaries))
	for id, b := range h.boundaries {
		st := BoundaryStatus{Panel: id, Failed: b.Failed()}
		if err := b.CapturedError(); err != nil {
			st.LastErr = err.Error()
		}
		out = append(out, st)
	}
	return out
}

func (h *Handler) handleReload(c *gin.Context) {
	h.ResetBoundaries()
	logger.Infof("[dash] manual reload ip=%s", c.ClientIP())
	c.Redirect(http.StatusFound, "/dash")
}

func (h *Handler) handleDashboardPage(c *gin.Context) {
	snap, version, loaded := h.cache.Load()
	var sb strings.Builder
	sb.WriteString(pageHead)
	sb.WriteString(`<header><h1>tradedesk</h1>`)
	if loaded {
		sb.WriteString(fmt.Sprintf(`<span class="meta">snapshot v%d · %s</span>`, version, snap.TakenAt.Format("2006-01-02 15:04:05 MST")))
	} else {
		sb.WriteString(`<span class="meta">waiting for first snapshot</span>`)
	}
	sb.WriteString(`<form method="post" action="/dash/reload"><button>Reload</button></form></header>`)

	for _, p := range h.panels.Ordered() {
		sb.WriteString(fmt.Sprintf(`<section class="panel" id="panel-%s"><h2>%s</h2>`,
			template.HTMLEscapeString(p.ID), template.HTMLEscapeString(p.Title)))
		sb.WriteString(h.renderPanel(c.Request.Context(), p, snap, version, loaded))
		sb.WriteString(`</section>`)
	}
	sb.WriteString(pageFoot)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}

// handlePanelPage 渲染只含单个面板的独立页面。面板走与整页相同
// 的边界与缓存，降级状态在两种视图间一致。
func (h *Handler) handlePanelPage(kind, fallbackTitle string) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, version, loaded := h.cache.Load()
		p, ok := h.panelByKind(kind)
		if !ok {
			p = panel.Panel{ID: kind, Title: fallbackTitle, Kind: kind}
		}
		var sb strings.Builder
		sb.WriteString(pageHead)
		sb.WriteString(fmt.Sprintf(`<header><h1>%s</h1><a href="/dash">&larr; dashboard</a></header>`,
			template.HTMLEscapeString(p.Title)))
		sb.WriteString(fmt.Sprintf(`<section class="panel" id="panel-%s">`, template.HTMLEscapeString(p.ID)))
		sb.WriteString(h.renderPanel(c.Request.Context(), p, snap, version, loaded))
		sb.WriteString(`</section>`)
		sb.WriteString(pageFoot)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
	}
}

func (h *Handler) panelByKind(kind string) (panel.Panel, bool) {
	for _, p := range h.panels.Ordered() {
		if p.Kind == kind {
			return p, true
		}
	}
	return panel.Panel{}, false
}

// renderPanel 经边界渲染单个面板。Healthy 且快照版本未变时直接
// 复用上次的片段。
func (h *Handler) renderPanel(ctx context.Context, p panel.Panel, snap tradingctx.Snapshot, version uint64, loaded bool) string {
	b := h.boundaryFor(p.ID)
	if !b.Failed() {
		h.mu.Lock()
		if cached, ok := h.rendered[p.ID]; ok && cached.version == version {
			h.mu.Unlock()
			return cached.html
		}
		h.mu.Unlock()
	}
	out := b.Render(func() (string, error) {
		if !loaded {
			return `<p class="empty">No data yet.</p>`, nil
		}
		return h.renderPanelBody(ctx, p, snap)
	})
	if !b.Failed() {
		h.mu.Lock()
		h.rendered[p.ID] = renderedPanel{version: version, html: out}
		h.mu.Unlock()
	}
	return out
}

func (h *Handler) renderPanelBody(ctx context.Context, p panel.Panel, snap tradingctx.Snapshot) (string, error) {
	switch p.Kind {
	case panel.KindVelocity:
		view := h.buildVelocityView(p, snap)
		return velocityFragment(view), nil
	case panel.KindSummary:
		s := dashboard.BuildSummary(snap.Holdings, snap.Trades, snap.Account, time.Now())
		return summaryFragment(s), nil
	case panel.KindHoldings:
		rows := dashboard.BuildHoldings(snap.Holdings)
		return holdingsFragment(rows), nil
	case panel.KindAllocation:
		slices := dashboard.BuildAllocation(snap.Holdings)
		return allocationFragment(slices), nil
	case panel.KindIncidents:
		return h.incidentsFragment(ctx)
	default:
		return "", fmt.Errorf("unknown panel kind %q", p.Kind)
	}
}

// buildVelocityView 读取面板 options 中的 window_count/window_size 覆盖。
func (h *Handler) buildVelocityView(p panel.Panel, snap tradingctx.Snapshot) VelocityView {
	windowCount := dashboard.DefaultWindowCount
	windowSize := dashboard.DefaultWindowSize
	if v, ok := p.Options["window_count"]; ok {
		if n, ok := toInt(v); ok && n > 0 {
			windowCount = n
		}
	}
	if v, ok := p.Options["window_size"]; ok {
		if raw, ok := v.(string); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil && d > 0 {
				windowSize = d
			}
		}
	}
	now := time.Now()
	buckets := dashboard.BucketizeTrades(snap.Trades, now, windowCount, windowSize)
	return VelocityView{
		Buckets:     bucketViews(buckets),
		Stats:       dashboard.ComputeActivityStats(buckets),
		WindowCount: windowCount,
		WindowSize:  windowSize.String(),
		GeneratedAt: now,
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func (h *Handler) handleVelocityPage(c *gin.Context) {
	snap, _, _ := h.cache.Load()
	p, _ := h.velocityPanel()
	view := h.buildVelocityView(p, snap)
	html, err := charts.BuildVelocityHTML(rawBuckets(view.Buckets))
	if err != nil {
		logger.Errorf("[dash] velocity chart render failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (h *Handler) handleAllocationPage(c *gin.Context) {
	snap, _, _ := h.cache.Load()
	html, err := charts.BuildAllocationHTML(dashboard.BuildAllocation(snap.Holdings))
	if err != nil {
		logger.Errorf("[dash] allocation chart render failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (h *Handler) handleVelocityPNG(c *gin.Context) {
	snap, _, _ := h.cache.Load()
	p, _ := h.velocityPanel()
	view := h.buildVelocityView(p, snap)
	png, err := charts.RenderVelocityPNG(c.Request.Context(), rawBuckets(view.Buckets))
	if err != nil {
		logger.Errorf("[dash] velocity png export failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// velocityPanel 找到注册表里第一个 velocity 面板，没有则用默认配置。
func (h *Handler) velocityPanel() (panel.Panel, bool) {
	if p, ok := h.panelByKind(panel.KindVelocity); ok {
		return p, true
	}
	return panel.Panel{ID: "velocity", Kind: panel.KindVelocity}, false
}

func rawBuckets(views []BucketView) []dashboard.Bucket {
	out := make([]dashboard.Bucket, len(views))
	for i, v := range views {
		out[i] = dashboard.Bucket{
			Label:           v.Label,
			Count:           v.Count,
			ProfitableCount: v.ProfitableCount,
			LosingCount:     v.LosingCount,
		}
	}
	return out
}

func (h *Handler) incidentsFragment(ctx context.Context) (string, error) {
	if h.incidents == nil {
		return `<p class="empty">Incident store disabled.</p>`, nil
	}
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	records, err := h.incidents.List(queryCtx, incident.Query{Limit: 20})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return `<p class="empty">No incidents recorded.</p>`, nil
	}
	var sb strings.Builder
	sb.WriteString(`<table><tr><th>Time</th><th>Panel</th><th>Trace</th><th>Error</th></tr>`)
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf(`<tr><td>%s</td><td>%s</td><td class="mono">%s</td><td>%s</td></tr>`,
			rec.OccurredAt.Format("01-02 15:04:05"),
			template.HTMLEscapeString(rec.Boundary),
			template.HTMLEscapeString(rec.TraceID),
			template.HTMLEscapeString(rec.Error)))
	}
	sb.WriteString(`</table>`)
	return sb.String(), nil
}
