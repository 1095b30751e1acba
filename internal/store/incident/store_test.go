package incident

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradedesk/internal/dashboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "incidents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, b := range []string{"velocity", "summary", "velocity"} {
		_, err := s.Insert(ctx, Record{
			TraceID:    "t" + string(rune('1'+i)),
			Boundary:   b,
			Error:      "boom",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, err := s.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// 最新的排在最前
	assert.Equal(t, "t3", all[0].TraceID)
	assert.Equal(t, base.Add(2*time.Minute).UnixMilli(), all[0].OccurredAt.UnixMilli())

	filtered, err := s.List(ctx, Query{Boundary: "velocity"})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, rec := range filtered {
		assert.Equal(t, "velocity", rec.Boundary)
	}

	limited, err := s.List(ctx, Query{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "t2", limited[0].TraceID)
}

func TestInsertFillsOccurredAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, Record{TraceID: "x", Boundary: "summary", Error: "boom"})
	require.NoError(t, err)

	list, err := s.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].OccurredAt.IsZero())
}

func TestSinkRecordsBoundaryIncident(t *testing.T) {
	s := newTestStore(t)
	sink := NewSink(s)

	sink.RecordIncident(dashboard.Incident{
		TraceID:    "trace-1",
		Boundary:   "velocity",
		Error:      "render panic: nil deref",
		OccurredAt: time.Now(),
	})

	list, err := s.List(context.Background(), Query{Boundary: "velocity"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "trace-1", list[0].TraceID)
	assert.Equal(t, "render panic: nil deref", list[0].Error)
}

func TestNilSinkIsNoop(t *testing.T) {
	var sink *Sink
	assert.NotPanics(t, func() {
		sink.RecordIncident(dashboard.Incident{TraceID: "x"})
	})
	assert.Nil(t, NewSink(nil))
}
