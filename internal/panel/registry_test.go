package panel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePanels = `panels:
  velocity:
    title: "Trade Velocity"
    kind: velocity
    order: 1
    options:
      window_count: 24
    schema:
      type: object
      properties:
        window_count:
          type: integer
          minimum: 1
          maximum: 168
  summary:
    title: "Portfolio Summary"
    kind: summary
    order: 0
  incidents:
    kind: incidents
    order: 9
    enabled: false
`

func writePanels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRegistryLoadsPanels(t *testing.T) {
	r, err := NewRegistry(writePanels(t, samplePanels))
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.Len(t, snap.Panels, 3)

	p, ok := r.Panel("velocity")
	require.True(t, ok)
	assert.Equal(t, "Trade Velocity", p.Title)
	assert.True(t, p.IsEnabled())

	// incidents 被禁用，Ordered 只剩两个且按 order 排序
	ordered := r.Ordered()
	require.Len(t, ordered, 2)
	assert.Equal(t, "summary", ordered[0].ID)
	assert.Equal(t, "velocity", ordered[1].ID)
}

func TestNewRegistryRejectsUnknownKind(t *testing.T) {
	_, err := NewRegistry(writePanels(t, "panels:\n  x:\n    kind: gauge\n"))
	assert.Error(t, err)
}

func TestNewRegistryRejectsUnknownField(t *testing.T) {
	_, err := NewRegistry(writePanels(t, "panels:\n  x:\n    kind: summary\n    colour: red\n"))
	assert.Error(t, err)
}

func TestPanelValidateOptions(t *testing.T) {
	r, err := NewRegistry(writePanels(t, samplePanels))
	require.NoError(t, err)

	p, ok := r.Panel("velocity")
	require.True(t, ok)
	assert.NoError(t, p.ValidateOptions(map[string]interface{}{"window_count": 12}))
	assert.Error(t, p.ValidateOptions(map[string]interface{}{"window_count": 0}))

	// summary 无 schema，任何选项都通过
	s, ok := r.Panel("summary")
	require.True(t, ok)
	assert.NoError(t, s.ValidateOptions(map[string]interface{}{"anything": true}))
}

func TestNewRegistryRejectsBadOptions(t *testing.T) {
	bad := `panels:
  velocity:
    kind: velocity
    options:
      window_count: 0
    schema:
      type: object
      properties:
        window_count:
          type: integer
          minimum: 1
`
	_, err := NewRegistry(writePanels(t, bad))
	assert.Error(t, err)
}

func TestReloadBumpsVersion(t *testing.T) {
	path := writePanels(t, samplePanels)
	r, err := NewRegistry(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("panels:\n  summary:\n    kind: summary\n"), 0o644))
	require.NoError(t, r.reload())

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.Version)
	assert.Len(t, snap.Panels, 1)
}
