package binance

import (
	"strings"
	"time"
)

// Config 描述 Binance 账户源的访问方式。
type Config struct {
	APIKey      string
	APISecret   string
	RESTBaseURL string
	Symbols     []string
	TradeLimit  int
	HTTPTimeout time.Duration

	ProxyEnabled bool
	RESTProxyURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.TradeLimit <= 0 || out.TradeLimit > 1000 {
		out.TradeLimit = 500
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	syms := make([]string, 0, len(out.Symbols))
	for _, s := range out.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			syms = append(syms, s)
		}
	}
	out.Symbols = syms
	return out
}
