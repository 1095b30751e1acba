package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// snapshotSchema 是推送快照的 JSON Schema。结构性检查用 gjson
// 先挡掉明显坏数据，细粒度约束交给 schema 校验。
const snapshotSchema = `{
  "type": "object",
  "required": ["trades"],
  "properties": {
    "trades": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "symbol": {"type": "string"},
          "created_at": {"type": ["string", "null"]},
          "net_profit": {"type": ["number", "null"]}
        }
      }
    },
    "holdings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["symbol"],
        "properties": {
          "symbol": {"type": "string", "minLength": 1},
          "quantity": {"type": ["string", "number"]},
          "avg_entry_price": {"type": ["string", "number"]},
          "last_price": {"type": ["string", "number"]}
        }
      }
    },
    "account": {
      "type": "object",
      "properties": {
        "total": {"type": ["string", "number"]},
        "available": {"type": ["string", "number"]},
        "currency": {"type": "string"}
      }
    },
    "taken_at": {"type": ["string", "null"]}
  }
}`

var compiled = mustCompile()

func mustCompile() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("snapshot.json", strings.NewReader(snapshotSchema)); err != nil {
		panic(fmt.Sprintf("add snapshot schema: %v", err))
	}
	s, err := compiler.Compile("snapshot.json")
	if err != nil {
		panic(fmt.Sprintf("compile snapshot schema: %v", err))
	}
	return s
}

// ValidateSnapshot 校验外部推送的快照 JSON。
func ValidateSnapshot(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("json 内容为空")
	}
	if !gjson.Valid(raw) {
		return fmt.Errorf("json 格式无效")
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return fmt.Errorf("根节点必须是 JSON 对象")
	}
	trades := parsed.Get("trades")
	if !trades.Exists() {
		return fmt.Errorf("缺少 trades 字段")
	}
	if !trades.IsArray() {
		return fmt.Errorf("trades 必须是数组")
	}
	if err := walkTrades(trades); err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("解析快照失败: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("快照不符合 schema: %w", err)
	}
	return nil
}

func walkTrades(trades gjson.Result) error {
	idx := 0
	var schemaErr error
	trades.ForEach(func(_, trade gjson.Result) bool {
		idx++
		if !trade.IsObject() {
			schemaErr = fmt.Errorf("成交#%d 需为对象", idx)
			return false
		}
		if np := trade.Get("net_profit"); np.Exists() && np.Type == gjson.String {
			schemaErr = fmt.Errorf("成交#%d net_profit 不能是字符串", idx)
			return false
		}
		return true
	})
	return schemaErr
}
