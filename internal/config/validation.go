package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Dashboard.validate(); err != nil {
		return err
	}
	if err := c.Source.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	return nil
}

func (d *DashboardConfig) validate() error {
	if strings.TrimSpace(d.PanelsPath) == "" {
		return fmt.Errorf("dashboard.panels_path cannot be empty")
	}
	if d.RefreshIntervalSeconds < 5 {
		return fmt.Errorf("dashboard.refresh_interval_seconds must be >= 5")
	}
	return nil
}

func (s *SourceConfig) validate() error {
	switch s.Mode {
	case "binance":
		return s.Binance.validate()
	case "push":
		return nil
	default:
		return fmt.Errorf("source.mode only supports 'binance' or 'push', got %s", s.Mode)
	}
}

func (b *BinanceSourceConfig) validate() error {
	if strings.TrimSpace(b.APIKey) == "" || strings.TrimSpace(b.APISecret) == "" {
		return fmt.Errorf("source.binance requires api_key and api_secret")
	}
	if len(b.Symbols) == 0 {
		return fmt.Errorf("source.binance.symbols requires at least one symbol")
	}
	if strings.TrimSpace(b.RESTBaseURL) == "" {
		return fmt.Errorf("source.binance.rest_base_url cannot be empty")
	}
	if b.Proxy.Enabled && b.Proxy.RESTURL == "" {
		return fmt.Errorf("source.binance.proxy enabled but no rest_url")
	}
	if b.TradeLimit <= 0 || b.TradeLimit > 1000 {
		return fmt.Errorf("source.binance.trade_limit must be in (0,1000]")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if strings.TrimSpace(s.IncidentPath) == "" {
		return fmt.Errorf("store.incident_path cannot be empty")
	}
	if strings.TrimSpace(s.SnapshotPath) == "" {
		return fmt.Errorf("store.snapshot_path cannot be empty")
	}
	if s.SnapshotKeep <= 0 {
		return fmt.Errorf("store.snapshot_keep must be > 0")
	}
	return nil
}
