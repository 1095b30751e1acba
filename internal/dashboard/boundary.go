package dashboard

import (
	"fmt"
	"html/template"
	"sync"
	"time"

	"tradedesk/internal/logger"

	"github.com/google/uuid"
)

// Incident 是一次面板渲染失败的诊断记录。
type Incident struct {
	TraceID    string    `json:"trace_id"`
	Boundary   string    `json:"boundary"`
	Error      string    `json:"error"`
	Context    string    `json:"context,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IncidentSink receives diagnostic records emitted by a Boundary.
// Implementations must tolerate being called from the render path;
// the boundary swallows any panic raised here.
type IncidentSink interface {
	RecordIncident(inc Incident)
}

// RenderFunc builds one panel's HTML fragment. A non-nil error or a
// panic inside it marks the surrounding boundary as failed.
type RenderFunc func() (string, error)

// FallbackFunc 仅依赖捕获到的错误生成降级片段，不得触碰子树状态。
type FallbackFunc func(err error) string

// Boundary 隔离单个面板的渲染失败：Healthy 状态下透传子渲染结果，
// 一旦子渲染报错或 panic 即转入终态 Failed，之后始终返回降级片段，
// 不再尝试子渲染。恢复只能靠外部整页 reload，不做自动重试。
type Boundary struct {
	name     string
	sink     IncidentSink
	fallback FallbackFunc

	mu       sync.Mutex
	failed   bool
	captured error
}

// NewBoundary 构造边界。fallback 为 nil 时使用内置的最小降级片段。
func NewBoundary(name string, sink IncidentSink, fallback FallbackFunc) *Boundary {
	if fallback == nil {
		fallback = defaultFallback
	}
	return &Boundary{name: name, sink: sink, fallback: fallback}
}

// Render 执行子渲染并返回 HTML 片段。边界已失败时直接返回降级片段。
func (b *Boundary) Render(child RenderFunc) string {
	b.mu.Lock()
	if b.failed {
		err := b.captured
		b.mu.Unlock()
		return b.fallback(err)
	}
	b.mu.Unlock()

	out, err := b.renderChild(child)
	if err == nil {
		return out
	}
	b.fail(err)
	return b.fallback(err)
}

// renderChild 将子渲染中的 panic 转换为 error，不跨边界继续展开。
func (b *Boundary) renderChild(child RenderFunc) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panel render panic: %v", r)
		}
	}()
	if child == nil {
		return "", fmt.Errorf("panel render func is nil")
	}
	return child()
}

// fail 执行 Healthy -> Failed 迁移，错误只捕获一次。
func (b *Boundary) fail(err error) {
	b.mu.Lock()
	if b.failed {
		b.mu.Unlock()
		return
	}
	b.failed = true
	b.captured = err
	b.mu.Unlock()

	inc := Incident{
		TraceID:    uuid.NewString(),
		Boundary:   b.name,
		Error:      err.Error(),
		OccurredAt: time.Now(),
	}
	logger.Errorf("boundary %s failed trace=%s: %v", b.name, inc.TraceID, err)
	b.emit(inc)
}

// emit 是 fire-and-forget：sink 的 panic 不允许影响降级渲染。
func (b *Boundary) emit(inc Incident) {
	if b.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("incident sink panic: %v", r)
		}
	}()
	b.sink.RecordIncident(inc)
}

// Failed 返回边界是否处于终态。
func (b *Boundary) Failed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

// CapturedError 返回首次捕获的错误（未失败时为 nil）。
func (b *Boundary) CapturedError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.captured
}

// Name 返回边界标识。
func (b *Boundary) Name() string {
	return b.name
}

func defaultFallback(err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf(
		`<div class="panel-fallback"><p>This panel hit an unexpected error.</p><pre>%s</pre><a href="javascript:location.reload()">Reload dashboard</a></div>`,
		template.HTMLEscapeString(msg),
	)
}
