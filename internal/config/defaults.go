package config

import "strings"

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9980"
	defaultAppLogPath      = "/data/logs/tradedesk.log"
	defaultPanelsPath      = "configs/panels.yaml"
	defaultRefreshInterval = 60
	defaultSourceMode      = "binance"
	defaultBinanceREST     = "https://fapi.binance.com"
	defaultBinanceTradeCap = 500
	defaultBinanceTimeout  = 15
	defaultIncidentPath    = "/data/db/incidents.db"
	defaultSnapshotPath    = "/data/db/snapshots.db"
	defaultSnapshotKeep    = 200
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Dashboard.applyDefaults(keys)
	c.Source.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (d *DashboardConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("dashboard.panels_path", &d.PanelsPath, defaultPanelsPath),
		fieldDefault{
			key:   "dashboard.refresh_interval_seconds",
			need:  func() bool { return d.RefreshIntervalSeconds <= 0 },
			apply: func() { d.RefreshIntervalSeconds = defaultRefreshInterval },
		},
	)
}

func (s *SourceConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("source.mode", &s.Mode, defaultSourceMode),
	)
	s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
	s.Binance.applyDefaults(keys)
}

func (b *BinanceSourceConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	b.Proxy.normalize()
	applyFieldDefaults(keys,
		stringFieldDefault("source.binance.rest_base_url", &b.RESTBaseURL, defaultBinanceREST),
		fieldDefault{
			key:   "source.binance.trade_limit",
			need:  func() bool { return b.TradeLimit <= 0 || b.TradeLimit > 1000 },
			apply: func() { b.TradeLimit = defaultBinanceTradeCap },
		},
		fieldDefault{
			key:   "source.binance.timeout_seconds",
			need:  func() bool { return b.TimeoutSeconds <= 0 },
			apply: func() { b.TimeoutSeconds = defaultBinanceTimeout },
		},
	)
	b.Symbols = normalizeSymbolList(b.Symbols)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.incident_path", &s.IncidentPath, defaultIncidentPath),
		stringFieldDefault("store.snapshot_path", &s.SnapshotPath, defaultSnapshotPath),
		fieldDefault{
			key:   "store.snapshot_keep",
			need:  func() bool { return s.SnapshotKeep <= 0 },
			apply: func() { s.SnapshotKeep = defaultSnapshotKeep },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func normalizeSymbolList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
