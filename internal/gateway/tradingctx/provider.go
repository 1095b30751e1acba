package tradingctx

import (
	"context"
	"time"

	"tradedesk/internal/types"
)

// Snapshot 是交易上下文在某一时刻的完整只读视图。
// 仪表盘每次读取都当作全新快照处理，不做增量合并。
type Snapshot struct {
	Trades   []types.Trade         `json:"trades"`
	Holdings []types.Holding       `json:"holdings"`
	Account  types.AccountSnapshot `json:"account"`
	TakenAt  time.Time             `json:"taken_at"`
}

// Provider supplies trade/holding snapshots from an exchange or any
// other upstream trading context. Implementations own their refresh
// cadence and error handling; the dashboard only pulls.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Clone 返回快照的深拷贝，调用方可安全修改。
func (s Snapshot) Clone() Snapshot {
	dup := Snapshot{
		Trades:   append([]types.Trade(nil), s.Trades...),
		Holdings: append([]types.Holding(nil), s.Holdings...),
		Account:  s.Account,
		TakenAt:  s.TakenAt,
	}
	return dup
}
