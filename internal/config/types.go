package config

import "strings"

// Config 是 tradedesk 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Source    SourceConfig    `toml:"source"`
	Store     StoreConfig     `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// DashboardConfig 控制面板配置文件与快照刷新节奏。
type DashboardConfig struct {
	PanelsPath             string `toml:"panels_path"`
	RefreshIntervalSeconds int    `toml:"refresh_interval_seconds"`
}

// SourceConfig 描述快照来源。mode 为 binance 时主动轮询交易所；
// 为 push 时只接受 /api/dash/snapshot 推送。
type SourceConfig struct {
	Mode    string              `toml:"mode"` // "binance" | "push"
	Binance BinanceSourceConfig `toml:"binance"`
}

type BinanceSourceConfig struct {
	APIKey         string      `toml:"api_key"`
	APISecret      string      `toml:"api_secret"`
	RESTBaseURL    string      `toml:"rest_base_url"`
	Symbols        []string    `toml:"symbols"`
	TradeLimit     int         `toml:"trade_limit"`
	TimeoutSeconds int         `toml:"timeout_seconds"`
	Proxy          ProxyConfig `toml:"proxy"`
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	RESTURL string `toml:"rest_url"`
}

func (p *ProxyConfig) normalize() {
	if p == nil {
		return
	}
	p.RESTURL = strings.TrimSpace(p.RESTURL)
}

// StoreConfig 描述本地持久化位置。
type StoreConfig struct {
	IncidentPath string `toml:"incident_path"`
	SnapshotPath string `toml:"snapshot_path"`
	SnapshotKeep int    `toml:"snapshot_keep"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
