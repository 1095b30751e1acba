package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradedesk/internal/gateway/tradingctx"
	"tradedesk/internal/logger"
	"tradedesk/internal/types"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// Source 基于 go-binance SDK 实现 tradingctx.Provider：
// 把合约账户的余额/持仓/已实现盈亏流水映射为仪表盘快照。
type Source struct {
	cfg    Config
	client *futures.Client
}

// New 构造 Source（仅做客户端装配，不发请求）。
func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	if len(final.Symbols) == 0 {
		return nil, fmt.Errorf("binance source requires at least one symbol")
	}
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Source{cfg: final, client: client}, nil
}

// Snapshot 拉取一份完整快照。单个交易对的流水失败只记日志，
// 不让整个快照失败。
func (s *Source) Snapshot(ctx context.Context) (tradingctx.Snapshot, error) {
	account, err := s.fetchAccount(ctx)
	if err != nil {
		return tradingctx.Snapshot{}, fmt.Errorf("fetch account failed: %w", err)
	}
	holdings, err := s.fetchHoldings(ctx)
	if err != nil {
		return tradingctx.Snapshot{}, fmt.Errorf("fetch positions failed: %w", err)
	}
	trades := make([]types.Trade, 0, s.cfg.TradeLimit)
	for _, symbol := range s.cfg.Symbols {
		part, err := s.fetchTrades(ctx, symbol)
		if err != nil {
			logger.Warnf("binance trades fetch failed symbol=%s: %v", symbol, err)
			continue
		}
		trades = append(trades, part...)
	}
	return tradingctx.Snapshot{
		Trades:   trades,
		Holdings: holdings,
		Account:  account,
		TakenAt:  time.Now(),
	}, nil
}

func (s *Source) fetchAccount(ctx context.Context) (types.AccountSnapshot, error) {
	balances, err := s.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return types.AccountSnapshot{}, err
	}
	snap := types.AccountSnapshot{Currency: "USDT", UpdatedAt: time.Now()}
	for _, bal := range balances {
		if bal == nil || bal.Asset != "USDT" {
			continue
		}
		snap.Total = parseDecimal(bal.Balance)
		snap.Available = parseDecimal(bal.AvailableBalance)
		snap.Used = snap.Total.Sub(snap.Available)
		break
	}
	return snap, nil
}

func (s *Source) fetchHoldings(ctx context.Context) ([]types.Holding, error) {
	positions, err := s.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Holding, 0, len(positions))
	for _, pos := range positions {
		if pos == nil {
			continue
		}
		qty := parseDecimal(pos.PositionAmt)
		if qty.IsZero() {
			continue
		}
		out = append(out, types.Holding{
			Symbol:        strings.ToUpper(pos.Symbol),
			Quantity:      qty.Abs(),
			AvgEntryPrice: parseDecimal(pos.EntryPrice),
			LastPrice:     parseDecimal(pos.MarkPrice),
		})
	}
	return out, nil
}

// fetchTrades 用已实现盈亏流水作为成交记录来源：每条 REALIZED_PNL
// 自带时间戳与带符号的净盈亏，正好是速率图需要的形状。
func (s *Source) fetchTrades(ctx context.Context, symbol string) ([]types.Trade, error) {
	start := time.Now().Add(-48 * time.Hour).UnixMilli()
	incomes, err := s.client.NewGetIncomeHistoryService().
		Symbol(symbol).
		IncomeType("REALIZED_PNL").
		StartTime(start).
		Limit(int64(s.cfg.TradeLimit)).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Trade, 0, len(incomes))
	for _, inc := range incomes {
		if inc == nil {
			continue
		}
		profit, err := strconv.ParseFloat(strings.TrimSpace(inc.Income), 64)
		if err != nil {
			// 数据异常按缺失处理，不终止快照
			out = append(out, types.Trade{
				ID:        strconv.FormatInt(inc.TranID, 10),
				Symbol:    strings.ToUpper(inc.Symbol),
				CreatedAt: millisPtr(inc.Time),
			})
			continue
		}
		out = append(out, types.Trade{
			ID:        strconv.FormatInt(inc.TranID, 10),
			Symbol:    strings.ToUpper(inc.Symbol),
			CreatedAt: millisPtr(inc.Time),
			NetProfit: &profit,
		})
	}
	return out, nil
}

func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func millisPtr(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}
