package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSnapshot(t *testing.T) {
	valid := `{
		"trades": [
			{"id": "1", "symbol": "BTCUSDT", "created_at": "2025-06-01T12:00:00Z", "net_profit": 12.5},
			{"id": "2", "symbol": "ETHUSDT", "created_at": null, "net_profit": null}
		],
		"holdings": [
			{"symbol": "BTCUSDT", "quantity": "0.5", "avg_entry_price": "60000", "last_price": "64000"}
		],
		"account": {"total": "70000", "available": "10000", "currency": "USDT"}
	}`
	assert.NoError(t, ValidateSnapshot(valid))

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"invalid json", "{not-json"},
		{"root array", `[{"trades": []}]`},
		{"missing trades", `{"holdings": []}`},
		{"trades not array", `{"trades": {"a": 1}}`},
		{"trade not object", `{"trades": ["x"]}`},
		{"net_profit string", `{"trades": [{"id": "1", "net_profit": "12.5"}]}`},
		{"holding missing symbol", `{"trades": [], "holdings": [{"quantity": "1"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, ValidateSnapshot(tc.raw))
		})
	}
}

func TestValidateSnapshotMinimal(t *testing.T) {
	assert.NoError(t, ValidateSnapshot(`{"trades": []}`))
}
