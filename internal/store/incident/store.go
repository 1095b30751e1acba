package incident

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradedesk/internal/dashboard"
	"tradedesk/internal/logger"

	_ "modernc.org/sqlite"
)

// Store 以追加写方式持久化面板故障记录，方便事后排查。
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Record 是一条落库后的故障记录。
type Record struct {
	ID         int64     `json:"id"`
	TraceID    string    `json:"trace_id"`
	Boundary   string    `json:"boundary"`
	Error      string    `json:"error"`
	Context    string    `json:"context,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Query 用于筛选故障记录。
type Query struct {
	Boundary string
	Limit    int
	Offset   int
}

// NewStore 初始化 SQLite 存储。
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("incident store path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureIncidentSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close 关闭底层 DB。
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureIncidentSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS panel_incidents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT NOT NULL,
			boundary TEXT NOT NULL,
			error TEXT NOT NULL,
			context TEXT,
			occurred_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_panel_incidents_occurred ON panel_incidents(occurred_at);`,
		`CREATE INDEX IF NOT EXISTS idx_panel_incidents_boundary ON panel_incidents(boundary);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert 写入一条故障记录。
func (s *Store) Insert(ctx context.Context, rec Record) (int64, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return 0, fmt.Errorf("incident store 未初始化")
	}
	occurred := rec.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO panel_incidents (trace_id, boundary, error, context, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TraceID,
		rec.Boundary,
		rec.Error,
		rec.Context,
		occurred.UnixMilli(),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// List 返回最新的故障记录，支持按 boundary 过滤。
func (s *Store) List(ctx context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("incident store 未初始化")
	}
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	var args []interface{}
	var sb strings.Builder
	sb.WriteString(`SELECT id, trace_id, boundary, error, context, occurred_at, created_at
		FROM panel_incidents WHERE 1=1`)
	if strings.TrimSpace(q.Boundary) != "" {
		sb.WriteString(" AND boundary=?")
		args = append(args, strings.TrimSpace(q.Boundary))
	}
	sb.WriteString(" ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)
	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Record
	for rows.Next() {
		var (
			rec       Record
			contextNS sql.NullString
			occurred  int64
			created   int64
		)
		if err := rows.Scan(&rec.ID, &rec.TraceID, &rec.Boundary, &rec.Error, &contextNS, &occurred, &created); err != nil {
			return nil, err
		}
		rec.Context = contextNS.String
		rec.OccurredAt = time.UnixMilli(occurred)
		rec.CreatedAt = time.UnixMilli(created)
		list = append(list, rec)
	}
	return list, rows.Err()
}

// Sink 实现 dashboard.IncidentSink，将故障记录写入 SQLite。
type Sink struct {
	store *Store
}

// NewSink 包装 store。
func NewSink(store *Store) *Sink {
	if store == nil {
		return nil
	}
	return &Sink{store: store}
}

// RecordIncident 写库失败只记日志，不向渲染路径抛错。
func (k *Sink) RecordIncident(inc dashboard.Incident) {
	if k == nil || k.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rec := Record{
		TraceID:    inc.TraceID,
		Boundary:   inc.Boundary,
		Error:      inc.Error,
		Context:    inc.Context,
		OccurredAt: inc.OccurredAt,
	}
	if _, err := k.store.Insert(ctx, rec); err != nil {
		logger.Warnf("写入故障记录失败 boundary=%s: %v", inc.Boundary, err)
	}
}
