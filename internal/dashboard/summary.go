package dashboard

import (
	"sort"
	"time"

	"tradedesk/internal/types"

	"github.com/shopspring/decimal"
)

// Summary 是仪表盘顶部的组合概览。
type Summary struct {
	Equity        decimal.Decimal `json:"equity"`
	Invested      decimal.Decimal `json:"invested"`
	Cash          decimal.Decimal `json:"cash"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	Currency      string          `json:"currency"`
	TradesToday   int             `json:"trades_today"`
	ProfitToday   decimal.Decimal `json:"profit_today"`
	TakenAt       time.Time       `json:"taken_at"`
}

// HoldingRow is one line of the holdings table.
type HoldingRow struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	LastPrice     decimal.Decimal `json:"last_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	WeightPct     decimal.Decimal `json:"weight_pct"`
}

// AllocationSlice is one sector of the allocation pie.
type AllocationSlice struct {
	Symbol  string          `json:"symbol"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// BuildSummary 从快照推导组合概览。now 用于界定“今日”成交窗口。
func BuildSummary(holdings []types.Holding, trades []types.Trade, account types.AccountSnapshot, now time.Time) Summary {
	invested := decimal.Zero
	unrealized := decimal.Zero
	for _, h := range holdings {
		invested = invested.Add(h.MarketValue())
		unrealized = unrealized.Add(h.UnrealizedPnL())
	}
	s := Summary{
		Invested:      invested,
		Cash:          account.Available,
		Equity:        account.Available.Add(invested),
		UnrealizedPnL: unrealized,
		Currency:      account.Currency,
		ProfitToday:   decimal.Zero,
		TakenAt:       account.UpdatedAt,
	}
	dayAgo := now.Add(-24 * time.Hour)
	for _, t := range trades {
		if t.CreatedAt == nil || t.CreatedAt.Before(dayAgo) || t.CreatedAt.After(now) {
			continue
		}
		s.TradesToday++
		if t.NetProfit != nil {
			s.ProfitToday = s.ProfitToday.Add(decimal.NewFromFloat(*t.NetProfit))
		}
	}
	return s
}

// BuildHoldings 生成持仓表行，按市值从大到小排序。
func BuildHoldings(holdings []types.Holding) []HoldingRow {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.MarketValue())
	}
	rows := make([]HoldingRow, 0, len(holdings))
	hundred := decimal.NewFromInt(100)
	for _, h := range holdings {
		value := h.MarketValue()
		row := HoldingRow{
			Symbol:        h.Symbol,
			Quantity:      h.Quantity,
			AvgEntryPrice: h.AvgEntryPrice,
			LastPrice:     h.LastPrice,
			MarketValue:   value,
			UnrealizedPnL: h.UnrealizedPnL(),
			WeightPct:     decimal.Zero,
		}
		if total.IsPositive() {
			row.WeightPct = value.Div(total).Mul(hundred).Round(2)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].MarketValue.GreaterThan(rows[j].MarketValue)
	})
	return rows
}

// BuildAllocation 生成配比饼图切片；零市值持仓不出现在图上。
func BuildAllocation(holdings []types.Holding) []AllocationSlice {
	total := decimal.Zero
	for _, h := range holdings {
		v := h.MarketValue()
		if v.IsPositive() {
			total = total.Add(v)
		}
	}
	if !total.IsPositive() {
		return nil
	}
	hundred := decimal.NewFromInt(100)
	out := make([]AllocationSlice, 0, len(holdings))
	for _, h := range holdings {
		v := h.MarketValue()
		if !v.IsPositive() {
			continue
		}
		out = append(out, AllocationSlice{
			Symbol:  h.Symbol,
			Value:   v,
			Percent: v.Div(total).Mul(hundred).Round(2),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value.GreaterThan(out[j].Value)
	})
	return out
}
