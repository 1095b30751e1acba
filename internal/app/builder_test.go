package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tdcfg "tradedesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *tdcfg.Config {
	t.Helper()
	dir := t.TempDir()
	panels := filepath.Join(dir, "panels.yaml")
	require.NoError(t, os.WriteFile(panels, []byte(`panels:
  summary:
    title: 账户概览
    kind: summary
    order: 1
  velocity:
    title: 交易频率
    kind: velocity
    order: 2
`), 0o644))

	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`source:
  mode: push
dashboard:
  panels_path: `+panels+`
store:
  incident_path: `+filepath.Join(dir, "incidents.db")+`
  snapshot_path: `+filepath.Join(dir, "snapshots.db")+`
`), 0o644))

	cfg, err := tdcfg.Load(cfgFile)
	require.NoError(t, err)
	return cfg
}

func TestBuildPushMode(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)
	defer app.closeStores()

	assert.NotNil(t, app.Server())
	// push 模式下没有主动拉取方
	assert.Nil(t, app.refresher)
	require.NotNil(t, app.Summary)
	assert.Equal(t, "push", app.Summary.Source.Mode)
	assert.Len(t, app.Summary.Panels, 2)
}

func TestBuildRejectsNilConfig(t *testing.T) {
	_, err := NewAppBuilder(nil).Build(context.Background())
	assert.Error(t, err)
}
