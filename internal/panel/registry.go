package panel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"tradedesk/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// 支持的面板类型。
const (
	KindVelocity   = "velocity"
	KindSummary    = "summary"
	KindHoldings   = "holdings"
	KindAllocation = "allocation"
	KindIncidents  = "incidents"
)

// Panel 描述仪表盘上的一块面板。
type Panel struct {
	ID      string                 `mapstructure:"id" yaml:"id"`
	Title   string                 `mapstructure:"title" yaml:"title"`
	Kind    string                 `mapstructure:"kind" yaml:"kind"`
	Order   int                    `mapstructure:"order" yaml:"order"`
	Enabled *bool                  `mapstructure:"enabled" yaml:"enabled"`
	Options map[string]interface{} `mapstructure:"options" yaml:"options"`
	Schema  map[string]interface{} `mapstructure:"schema" yaml:"schema"`

	schemaCompiled *jsonschema.Schema
}

// IsEnabled 未显式配置时默认启用。
func (p Panel) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// FileConfig 映射 panels 文件的根节点。
type FileConfig struct {
	Panels map[string]Panel `mapstructure:"panels" yaml:"panels"`
}

// Snapshot 是某一版本的面板集合。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Panels   map[string]Panel
}

// ChangeListener 在面板配置重载后触发。
type ChangeListener func(Snapshot)

// Registry 管理面板配置并监听文件变更。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry 读取面板配置并开始监听更新。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("panel registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read panel config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("panel reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前面板集的拷贝。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Panel 返回指定 ID 的面板。
func (r *Registry) Panel(id string) (Panel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Panels[strings.TrimSpace(id)]
	return p, ok
}

// Ordered 返回启用的面板，按 Order 升序、同序号按 ID 排序。
func (r *Registry) Ordered() []Panel {
	snap := r.Snapshot()
	out := make([]Panel, 0, len(snap.Panels))
	for _, p := range snap.Panels {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Subscribe 注册重载回调。回调在独立 goroutine 中执行，panic 会被吞掉。
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readPanelFile(r.path)
	if err != nil {
		return err
	}
	panels := make(map[string]Panel)
	for name, p := range cfg.Panels {
		norm, err := normalizePanel(name, p)
		if err != nil {
			return err
		}
		panels[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Panels:   panels,
	}
	r.mu.Unlock()
	logger.Infof("Panel registry loaded %d panels from %s", len(panels), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer safeRecover("panel listener")
			cb(snap)
		}(fn)
	}
}

func normalizePanel(name string, p Panel) (Panel, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		p.Title = p.ID
	}
	p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
	switch p.Kind {
	case KindVelocity, KindSummary, KindHoldings, KindAllocation, KindIncidents:
	default:
		return Panel{}, fmt.Errorf("panel %s has unknown kind %q", p.ID, p.Kind)
	}
	if len(p.Schema) > 0 {
		compiled, err := compileSchema(p.Schema)
		if err != nil {
			return Panel{}, fmt.Errorf("panel %s schema compile failed: %w", p.ID, err)
		}
		p.schemaCompiled = compiled
		if len(p.Options) > 0 {
			if err := compiled.Validate(normalizeOptions(p.Options)); err != nil {
				return Panel{}, fmt.Errorf("panel %s options invalid: %w", p.ID, err)
			}
		}
	}
	return p, nil
}

// ValidateOptions 用面板自带 schema 校验一组选项。无 schema 时恒通过。
func (p Panel) ValidateOptions(options map[string]interface{}) error {
	if p.schemaCompiled == nil {
		return nil
	}
	return p.schemaCompiled.Validate(normalizeOptions(options))
}

// normalizeOptions 把 yaml 解出的 map[interface{}]interface{} 等形态
// 统一成 jsonschema 可校验的 JSON 形态。
func normalizeOptions(options map[string]interface{}) interface{} {
	raw, err := json.Marshal(options)
	if err != nil {
		return options
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return options
	}
	return doc
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Panels:   make(map[string]Panel, len(src.Panels)),
	}
	for id, p := range src.Panels {
		dst.Panels[id] = p
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readPanelFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read panel config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse panel config failed: %w", err)
	}
	return cfg, nil
}
