package charts

import (
	"bytes"
	"fmt"

	"tradedesk/internal/dashboard"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

var allocationPalette = []string{
	"#3b82f6", "#34d399", "#fbbf24", "#f472b6", "#a78bfa",
	"#22d3ee", "#fb7185", "#facc15", "#4ade80", "#94a3b8",
}

// BuildAllocationPie 画持仓市值占比饼图。
func BuildAllocationPie(slices []dashboard.AllocationSlice) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx/2),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "Allocation",
			Left:       "left",
			Top:        "10",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)
	data := make([]opts.PieData, 0, len(slices))
	for i, s := range slices {
		val, _ := s.Value.Float64()
		data = append(data, opts.PieData{
			Name:  s.Symbol,
			Value: round(val, 2),
			ItemStyle: &opts.ItemStyle{
				Color: allocationPalette[i%len(allocationPalette)],
			},
		})
	}
	pie.AddSeries("Allocation", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%", Color: colorTextPrimary}),
	)
	return pie
}

// BuildAllocationHTML 渲染整页 HTML。
func BuildAllocationHTML(slices []dashboard.AllocationSlice) ([]byte, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(BuildAllocationPie(slices))
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
