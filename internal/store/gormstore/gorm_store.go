package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradedesk/internal/gateway/tradingctx"
	"tradedesk/internal/types"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// GormStore 用 Gorm + SQLite 持久化快照历史与成交流水，
// 服务重启后仪表盘仍能立刻拿到最近一次数据。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 初始化存储并自动建表。
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 快照存储路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	// CGO_ENABLED=0 环境下必须走纯 Go 的 modernc 驱动（DSN 的 _pragma 语法也是它的）。
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&snapshotModel{}, &tradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close 关闭底层连接。
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB 暴露底层 *sql.DB，供共享连接使用。
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	return s.db.DB()
}

type snapshotModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	TakenAtMs     int64          `gorm:"column:taken_at;index"`
	TradeCount    int            `gorm:"column:trade_count"`
	HoldingCount  int            `gorm:"column:holding_count"`
	Currency      string         `gorm:"column:currency"`
	TradesJSON    datatypes.JSON `gorm:"column:trades_json"`
	HoldingsJSON  datatypes.JSON `gorm:"column:holdings_json"`
	AccountJSON   datatypes.JSON `gorm:"column:account_json"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (snapshotModel) TableName() string { return "snapshots" }

type tradeModel struct {
	ID          int64    `gorm:"column:id;primaryKey"`
	TradeID     string   `gorm:"column:trade_id;uniqueIndex"`
	Symbol      string   `gorm:"column:symbol;index"`
	Side        string   `gorm:"column:side"`
	Quantity    float64  `gorm:"column:quantity"`
	Price       float64  `gorm:"column:price"`
	NetProfit   *float64 `gorm:"column:net_profit"`
	CreatedAtMs int64    `gorm:"column:created_at_ms;index"`
	IngestedMs  int64    `gorm:"column:ingested_at_ms"`
}

func (tradeModel) TableName() string { return "trade_records" }

// SaveSnapshot 持久化一份快照，并把成交按 trade_id 去重落表。
func (s *GormStore) SaveSnapshot(ctx context.Context, snap tradingctx.Snapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	taken := snap.TakenAt
	if taken.IsZero() {
		taken = time.Now()
	}
	model := snapshotModel{
		TakenAtMs:     taken.UnixMilli(),
		TradeCount:    len(snap.Trades),
		HoldingCount:  len(snap.Holdings),
		Currency:      snap.Account.Currency,
		TradesJSON:    mustMarshal(snap.Trades),
		HoldingsJSON:  mustMarshal(snap.Holdings),
		AccountJSON:   mustMarshal(snap.Account),
		CreatedAtUnix: time.Now().UnixMilli(),
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		trades := tradeModels(snap.Trades, time.Now())
		if len(trades) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trade_id"}},
			DoNothing: true,
		}).Create(&trades).Error
	})
}

// LatestSnapshot 返回最近一次持久化的快照。无数据时 ok=false。
func (s *GormStore) LatestSnapshot(ctx context.Context) (tradingctx.Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return tradingctx.Snapshot{}, false, fmt.Errorf("gorm store 未初始化")
	}
	var model snapshotModel
	err := s.db.WithContext(ctx).Order("taken_at DESC, id DESC").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tradingctx.Snapshot{}, false, nil
		}
		return tradingctx.Snapshot{}, false, err
	}
	snap, err := snapshotModelToSnapshot(model)
	if err != nil {
		return tradingctx.Snapshot{}, false, err
	}
	return snap, true, nil
}

// ListTradesSince 返回 since 之后的成交，按时间升序。
func (s *GormStore) ListTradesSince(ctx context.Context, since time.Time, limit int) ([]types.Trade, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	var models []tradeModel
	query := s.db.WithContext(ctx).Order("created_at_ms ASC, id ASC").Limit(limit)
	if !since.IsZero() {
		query = query.Where("created_at_ms > ?", since.UnixMilli())
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]types.Trade, 0, len(models))
	for _, m := range models {
		out = append(out, tradeModelToTrade(m))
	}
	return out, nil
}

// PruneSnapshots 只保留最新 keep 条快照行，成交表不动。
func (s *GormStore) PruneSnapshots(ctx context.Context, keep int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	if keep <= 0 {
		keep = 100
	}
	sub := s.db.WithContext(ctx).Model(&snapshotModel{}).
		Select("id").
		Order("taken_at DESC, id DESC").
		Limit(keep)
	return s.db.WithContext(ctx).
		Where("id NOT IN (?)", sub).
		Delete(&snapshotModel{}).Error
}

// --------------------------- Model Helpers ------------------------------

func tradeModels(trades []types.Trade, now time.Time) []tradeModel {
	out := make([]tradeModel, 0, len(trades))
	for _, t := range trades {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			continue
		}
		m := tradeModel{
			TradeID:    id,
			Symbol:     strings.ToUpper(strings.TrimSpace(t.Symbol)),
			Side:       strings.ToLower(strings.TrimSpace(t.Side)),
			Quantity:   t.Quantity,
			Price:      t.Price,
			NetProfit:  t.NetProfit,
			IngestedMs: now.UnixMilli(),
		}
		if t.CreatedAt != nil && !t.CreatedAt.IsZero() {
			m.CreatedAtMs = t.CreatedAt.UnixMilli()
		}
		out = append(out, m)
	}
	return out
}

func tradeModelToTrade(m tradeModel) types.Trade {
	t := types.Trade{
		ID:        m.TradeID,
		Symbol:    m.Symbol,
		Side:      m.Side,
		Quantity:  m.Quantity,
		Price:     m.Price,
		NetProfit: m.NetProfit,
	}
	if m.CreatedAtMs > 0 {
		ts := time.UnixMilli(m.CreatedAtMs)
		t.CreatedAt = &ts
	}
	return t
}

func snapshotModelToSnapshot(m snapshotModel) (tradingctx.Snapshot, error) {
	snap := tradingctx.Snapshot{TakenAt: time.UnixMilli(m.TakenAtMs)}
	if len(m.TradesJSON) > 0 {
		if err := json.Unmarshal(m.TradesJSON, &snap.Trades); err != nil {
			return tradingctx.Snapshot{}, fmt.Errorf("解析快照成交失败: %w", err)
		}
	}
	if len(m.HoldingsJSON) > 0 {
		if err := json.Unmarshal(m.HoldingsJSON, &snap.Holdings); err != nil {
			return tradingctx.Snapshot{}, fmt.Errorf("解析快照持仓失败: %w", err)
		}
	}
	if len(m.AccountJSON) > 0 {
		if err := json.Unmarshal(m.AccountJSON, &snap.Account); err != nil {
			return tradingctx.Snapshot{}, fmt.Errorf("解析快照账户失败: %w", err)
		}
	}
	return snap, nil
}

func mustMarshal(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
