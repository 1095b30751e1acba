package app

import (
	"fmt"
	"strings"

	tdcfg "tradedesk/internal/config"
	"tradedesk/internal/panel"
)

type StartupSummary struct {
	Source SourceSummary
	Panels []PanelSummary
	Store  StoreSummary
	Warmed bool
}

type SourceSummary struct {
	Mode            string
	Symbols         []string
	RefreshInterval int
}

type PanelSummary struct {
	ID      string
	Title   string
	Kind    string
	Enabled bool
}

type StoreSummary struct {
	IncidentPath string
	SnapshotPath string
	SnapshotKeep int
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[快照来源 (SNAPSHOT SOURCE)]")
	fmt.Printf("  模式: %s\n", s.Source.Mode)
	if s.Source.Mode == "binance" {
		fmt.Printf("  监控币种: %s\n", formatList(s.Source.Symbols))
		fmt.Printf("  刷新间隔: %ds\n", s.Source.RefreshInterval)
	} else {
		fmt.Println("  等待 POST /api/dash/snapshot 推送")
	}
	if s.Warmed {
		fmt.Println("  已从快照库恢复历史数据")
	}
	fmt.Println()

	fmt.Println("[面板配置 (PANELS)]")
	if len(s.Panels) == 0 {
		fmt.Println("  (无配置)")
	} else {
		for _, p := range s.Panels {
			state := "启用"
			if !p.Enabled {
				state = "停用"
			}
			fmt.Printf("  > %s (%s) — %s [%s]\n", p.ID, p.Kind, p.Title, state)
		}
	}
	fmt.Println()

	fmt.Println("[本地存储 (STORAGE)]")
	fmt.Printf("  事件库: %s\n", s.Store.IncidentPath)
	fmt.Printf("  快照库: %s (保留 %d 份)\n", s.Store.SnapshotPath, s.Store.SnapshotKeep)
	fmt.Println(strings.Repeat("=", 80))
}

func buildStartupSummary(cfg *tdcfg.Config, panels []panel.Panel, warmed bool) *StartupSummary {
	summary := &StartupSummary{
		Source: SourceSummary{
			Mode:            cfg.Source.Mode,
			Symbols:         cfg.Source.Binance.Symbols,
			RefreshInterval: cfg.Dashboard.RefreshIntervalSeconds,
		},
		Store: StoreSummary{
			IncidentPath: cfg.Store.IncidentPath,
			SnapshotPath: cfg.Store.SnapshotPath,
			SnapshotKeep: cfg.Store.SnapshotKeep,
		},
		Warmed: warmed,
	}
	for _, p := range panels {
		summary.Panels = append(summary.Panels, PanelSummary{
			ID:      p.ID,
			Title:   p.Title,
			Kind:    p.Kind,
			Enabled: p.IsEnabled(),
		})
	}
	return summary
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func formatPanelList(panels []panel.Panel) string {
	if len(panels) == 0 {
		return "-"
	}
	ids := make([]string, 0, len(panels))
	for _, p := range panels {
		ids = append(ids, p.ID)
	}
	return strings.Join(ids, ", ")
}
