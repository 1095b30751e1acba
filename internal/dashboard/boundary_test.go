package dashboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectSink struct {
	incidents []Incident
}

func (s *collectSink) RecordIncident(inc Incident) {
	s.incidents = append(s.incidents, inc)
}

type panicSink struct{}

func (panicSink) RecordIncident(Incident) { panic("sink exploded") }

func TestBoundaryTransparentWhileHealthy(t *testing.T) {
	b := NewBoundary("velocity", &collectSink{}, nil)
	out := b.Render(func() (string, error) {
		return "<div>chart</div>", nil
	})
	assert.Equal(t, "<div>chart</div>", out)
	assert.False(t, b.Failed())
	assert.NoError(t, b.CapturedError())
}

func TestBoundaryFailsOnceAndStaysFailed(t *testing.T) {
	sink := &collectSink{}
	b := NewBoundary("holdings", sink, nil)

	calls := 0
	boom := func() (string, error) {
		calls++
		return "", errors.New("holdings table exploded")
	}

	out := b.Render(boom)
	assert.Contains(t, out, "holdings table exploded")
	assert.Contains(t, out, "Reload")
	assert.True(t, b.Failed())

	// 后续渲染不再触碰子渲染，也不产生新的诊断记录
	out2 := b.Render(boom)
	assert.Equal(t, out, out2)
	assert.Equal(t, 1, calls)

	require.Len(t, sink.incidents, 1)
	inc := sink.incidents[0]
	assert.Equal(t, "holdings", inc.Boundary)
	assert.Contains(t, inc.Error, "holdings table exploded")
	assert.NotEmpty(t, inc.TraceID)
	assert.False(t, inc.OccurredAt.IsZero())
}

func TestBoundaryCapturesPanic(t *testing.T) {
	sink := &collectSink{}
	b := NewBoundary("summary", sink, nil)

	out := b.Render(func() (string, error) {
		panic("nil holding dereference")
	})
	assert.Contains(t, out, "nil holding dereference")
	assert.True(t, b.Failed())
	require.Error(t, b.CapturedError())
	assert.Contains(t, b.CapturedError().Error(), "panic")
	assert.Len(t, sink.incidents, 1)
}

func TestBoundaryNilChild(t *testing.T) {
	b := NewBoundary("allocation", nil, nil)
	out := b.Render(nil)
	assert.Contains(t, out, "nil")
	assert.True(t, b.Failed())
}

func TestBoundarySinkPanicDoesNotBlockFallback(t *testing.T) {
	b := NewBoundary("velocity", panicSink{}, nil)
	out := b.Render(func() (string, error) {
		return "", errors.New("bad bucket state")
	})
	assert.Contains(t, out, "bad bucket state")
	assert.True(t, b.Failed())
}

func TestBoundaryCustomFallbackGetsErrorOnly(t *testing.T) {
	b := NewBoundary("velocity", nil, func(err error) string {
		return "fallback: " + err.Error()
	})
	out := b.Render(func() (string, error) {
		return "", errors.New("custom")
	})
	assert.Equal(t, "fallback: custom", out)
}

func TestDefaultFallbackEscapesErrorText(t *testing.T) {
	b := NewBoundary("velocity", nil, nil)
	out := b.Render(func() (string, error) {
		return "", errors.New("<script>alert(1)</script>")
	})
	assert.False(t, strings.Contains(out, "<script>"))
	assert.Contains(t, out, "&lt;script&gt;")
}
