package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a single closed trade as reported by the trading context.
// CreatedAt and NetProfit are optional: upstream feeds occasionally emit
// records without them, and the dashboard must tolerate that.
type Trade struct {
	ID        string     `json:"id,omitempty"`
	Symbol    string     `json:"symbol"`
	Side      string     `json:"side,omitempty"`
	Quantity  float64    `json:"quantity,omitempty"`
	Price     float64    `json:"price,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	NetProfit *float64   `json:"net_profit,omitempty"`
}

// Profit returns the net profit or 0 when the field is missing.
func (t Trade) Profit() float64 {
	if t.NetProfit == nil {
		return 0
	}
	return *t.NetProfit
}

// Holding is one open position in the portfolio.
type Holding struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price"`
	LastPrice     decimal.Decimal `json:"last_price"`
}

// MarketValue 返回持仓市值（数量 * 最新价）。
func (h Holding) MarketValue() decimal.Decimal {
	return h.Quantity.Mul(h.LastPrice)
}

// UnrealizedPnL 返回未实现盈亏。
func (h Holding) UnrealizedPnL() decimal.Decimal {
	return h.LastPrice.Sub(h.AvgEntryPrice).Mul(h.Quantity)
}

// AccountSnapshot mirrors the exchange account balance at snapshot time.
type AccountSnapshot struct {
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
	Used      decimal.Decimal `json:"used"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}
