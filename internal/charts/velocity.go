package charts

import (
	"bytes"
	"fmt"
	"math"

	"tradedesk/internal/dashboard"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	talib "github.com/markcheno/go-talib"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorLatest        = "#3b82f6"
	colorProfitable    = "#34d399"
	colorLosing        = "#f87171"
	colorNeutral       = "#6b7280"
	colorTrend         = "#fbbf24"

	chartWidthPx  = 1200
	chartHeightPx = 420

	// SMA 平滑窗口：桶数不足时不画趋势线
	trendPeriod = 6
)

func toneColor(tone dashboard.Tone) string {
	switch tone {
	case dashboard.ToneLatest:
		return colorLatest
	case dashboard.ToneNetProfitable:
		return colorProfitable
	case dashboard.ToneNetLosing:
		return colorLosing
	default:
		return colorNeutral
	}
}

// BuildVelocityChart 把桶序列画成柱状图：每根柱按桶的盈亏多数决
// 配色，柱上叠加一条 SMA 平滑后的活跃度趋势线。
func BuildVelocityChart(buckets []dashboard.Bucket) *charts.Bar {
	bar := charts.NewBar()
	stats := dashboard.ComputeActivityStats(buckets)
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         "Trade Velocity",
			Subtitle:      fmt.Sprintf("total %d | avg %.1f/window | current %d", stats.TotalCount, stats.AveragePerWindow, stats.CurrentWindowCount),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)

	xAxis := make([]string, len(buckets))
	data := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		xAxis[i] = b.Label
		data[i] = opts.BarData{
			Value: b.Count,
			ItemStyle: &opts.ItemStyle{
				Color:   toneColor(dashboard.BucketTone(buckets, i)),
				Opacity: opts.Float(0.85),
			},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Trades", data)

	if trend := calcTrendSeries(buckets); trend != nil {
		line := charts.NewLine()
		line.SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(true)}),
		)
		line.SetXAxis(xAxis)
		line.AddSeries("Trend", toLineData(trend, len(buckets)), charts.WithLineStyleOpts(opts.LineStyle{Color: colorTrend, Width: 2}))
		bar.Overlap(line)
	}
	return bar
}

// BuildVelocityHTML 渲染整页 HTML，供浏览器或截图导出使用。
func BuildVelocityHTML(buckets []dashboard.Bucket) ([]byte, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(BuildVelocityChart(buckets))
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func calcTrendSeries(buckets []dashboard.Bucket) []float64 {
	if len(buckets) < trendPeriod {
		return nil
	}
	counts := make([]float64, len(buckets))
	for i, b := range buckets {
		counts[i] = float64(b.Count)
	}
	return talib.Sma(counts, trendPeriod)
}

func toLineData(series []float64, length int) []opts.LineData {
	line := make([]opts.LineData, length)
	offset := length - len(series)
	if offset < 0 {
		offset = 0
	}
	for i := 0; i < offset; i++ {
		line[i] = opts.LineData{Value: nil}
	}
	for i := 0; i < len(series) && offset+i < length; i++ {
		val := series[i]
		// talib 在不足一个周期的前导位置填 0，同样按缺值处理
		if math.IsNaN(val) || i < trendPeriod-1 {
			line[offset+i] = opts.LineData{Value: nil}
		} else {
			line[offset+i] = opts.LineData{Value: round(val, 2)}
		}
	}
	return line
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
