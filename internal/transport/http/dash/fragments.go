package dashhttp

import (
	"fmt"
	"html/template"
	"strings"

	"tradedesk/internal/dashboard"
)

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>tradedesk</title>
<style>
body { background: #060c1b; color: #eceff4; font-family: "Helvetica Neue", Arial, sans-serif; margin: 0; padding: 0 24px 48px; }
header { display: flex; align-items: baseline; gap: 16px; padding: 18px 0; border-bottom: 1px solid #1f2937; }
header h1 { margin: 0; font-size: 22px; }
header .meta { color: #9ca3af; font-size: 13px; }
header form { margin-left: auto; }
button { background: #3b82f6; border: 0; color: #fff; padding: 6px 14px; border-radius: 4px; cursor: pointer; }
section.panel { margin-top: 24px; background: #0b1324; border: 1px solid #1f2937; border-radius: 8px; padding: 16px 20px; }
section.panel h2 { margin: 0 0 12px; font-size: 16px; color: #9ca3af; }
table { width: 100%; border-collapse: collapse; font-size: 14px; }
th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #1f2937; }
th { color: #9ca3af; font-weight: 500; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.gain { color: #34d399; }
.loss { color: #f87171; }
.mono { font-family: monospace; font-size: 12px; color: #9ca3af; }
.empty { color: #6b7280; }
.stats { display: flex; gap: 32px; margin-bottom: 12px; }
.stats .stat b { display: block; font-size: 20px; }
.stats .stat span { color: #9ca3af; font-size: 12px; }
iframe { width: 100%; border: 0; background: #060c1b; }
.panel-fallback { border: 1px solid #f87171; border-radius: 6px; padding: 12px; }
.panel-fallback pre { color: #f87171; overflow-x: auto; }
</style>
</head>
<body>
`

const pageFoot = `</body>
</html>
`

func summaryFragment(s dashboard.Summary) string {
	pnlClass := "gain"
	if s.UnrealizedPnL.IsNegative() {
		pnlClass = "loss"
	}
	profitClass := "gain"
	if s.ProfitToday.IsNegative() {
		profitClass = "loss"
	}
	return fmt.Sprintf(`<div class="stats">`+
		`<div class="stat"><b>%s %s</b><span>Equity</span></div>`+
		`<div class="stat"><b>%s</b><span>Invested</span></div>`+
		`<div class="stat"><b>%s</b><span>Cash</span></div>`+
		`<div class="stat"><b class="%s">%s</b><span>Unrealized PnL</span></div>`+
		`<div class="stat"><b>%d</b><span>Trades (24h)</span></div>`+
		`<div class="stat"><b class="%s">%s</b><span>Profit (24h)</span></div>`+
		`</div>`,
		s.Equity.StringFixed(2), template.HTMLEscapeString(s.Currency),
		s.Invested.StringFixed(2),
		s.Cash.StringFixed(2),
		pnlClass, s.UnrealizedPnL.StringFixed(2),
		s.TradesToday,
		profitClass, s.ProfitToday.StringFixed(2),
	)
}

func holdingsFragment(rows []dashboard.HoldingRow) string {
	if len(rows) == 0 {
		return `<p class="empty">No open positions.</p>`
	}
	var sb strings.Builder
	sb.WriteString(`<table><tr><th>Symbol</th><th class="num">Qty</th><th class="num">Entry</th><th class="num">Last</th><th class="num">Value</th><th class="num">PnL</th><th class="num">Weight</th></tr>`)
	for _, r := range rows {
		pnlClass := "gain"
		if r.UnrealizedPnL.IsNegative() {
			pnlClass = "loss"
		}
		sb.WriteString(fmt.Sprintf(`<tr><td>%s</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td><td class="num %s">%s</td><td class="num">%s%%</td></tr>`,
			template.HTMLEscapeString(r.Symbol),
			r.Quantity.String(),
			r.AvgEntryPrice.StringFixed(2),
			r.LastPrice.StringFixed(2),
			r.MarketValue.StringFixed(2),
			pnlClass, r.UnrealizedPnL.StringFixed(2),
			r.WeightPct.StringFixed(2)))
	}
	sb.WriteString(`</table>`)
	return sb.String()
}

func allocationFragment(slices []dashboard.AllocationSlice) string {
	if len(slices) == 0 {
		return `<p class="empty">Nothing allocated.</p>`
	}
	var sb strings.Builder
	sb.WriteString(`<iframe src="/dash/allocation" height="460" loading="lazy"></iframe>`)
	sb.WriteString(`<table><tr><th>Symbol</th><th class="num">Value</th><th class="num">Share</th></tr>`)
	for _, s := range slices {
		sb.WriteString(fmt.Sprintf(`<tr><td>%s</td><td class="num">%s</td><td class="num">%s%%</td></tr>`,
			template.HTMLEscapeString(s.Symbol),
			s.Value.StringFixed(2),
			s.Percent.StringFixed(2)))
	}
	sb.WriteString(`</table>`)
	return sb.String()
}

func velocityFragment(view VelocityView) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<div class="stats">`+
		`<div class="stat"><b>%d</b><span>Trades in window</span></div>`+
		`<div class="stat"><b>%.1f</b><span>Avg per %s</span></div>`+
		`<div class="stat"><b>%d</b><span>Current window</span></div>`+
		`</div>`,
		view.Stats.TotalCount, view.Stats.AveragePerWindow, template.HTMLEscapeString(view.WindowSize), view.Stats.CurrentWindowCount))
	sb.WriteString(`<iframe src="/dash/velocity" height="470" loading="lazy"></iframe>`)
	return sb.String()
}
