package terraform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirsCreatesLayout(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), "workspace"))
	require.NoError(t, m.EnsureDirs())

	assert.DirExists(t, m.DeploymentsDir())
	assert.DirExists(t, m.TemplatesDir())
	assert.DirExists(t, m.PluginsDir())

	data, err := os.ReadFile(filepath.Join(m.Workspace, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ".tf-token.json")
	assert.Contains(t, string(data), "*.tfstate")

	// idempotent
	require.NoError(t, m.EnsureDirs())
}

func TestCreateDeploymentWritesMainTF(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	dir, err := m.CreateDeployment(proxmoxCfg(), "", containerSpec())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.DeploymentsDir(), "web01"), dir)

	first, err := os.ReadFile(filepath.Join(dir, "main.tf"))
	require.NoError(t, err)
	assert.Contains(t, string(first), "proxmox_virtual_environment_container")

	// regeneration is byte identical
	_, err = m.CreateDeployment(proxmoxCfg(), "", containerSpec())
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "main.tf"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCreateDeploymentRejectsUnsafeName(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	spec := containerSpec()
	spec.Name = "../escape"
	_, err := m.CreateDeployment(proxmoxCfg(), "", spec)
	assert.Error(t, err)
}

func TestTemplateRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	spec := containerSpec()

	require.NoError(t, m.SaveTemplate("web-base", spec))
	require.NoError(t, m.SaveTemplate("alpha", vmSpec()))

	names, err := m.ListTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "web-base"}, names)

	loaded, err := m.LoadTemplate("web-base")
	require.NoError(t, err)
	assert.Equal(t, spec, loaded)

	require.NoError(t, m.DeleteTemplate("alpha"))
	names, err = m.ListTemplates()
	require.NoError(t, err)
	assert.Equal(t, []string{"web-base"}, names)
}

func TestLoadTemplateValidates(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	spec := containerSpec()
	spec.Cores = 2
	require.NoError(t, m.SaveTemplate("ok", spec))

	// corrupt the stored template
	path := filepath.Join(m.TemplatesDir(), "ok.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"x"}`), 0o644))

	_, err := m.LoadTemplate("ok")
	assert.Error(t, err)
}

func TestTemplateNameValidation(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir())
	assert.Error(t, m.SaveTemplate("../sneaky", containerSpec()))
	assert.Error(t, m.SaveTemplate("", containerSpec()))
	_, err := m.LoadTemplate(".hidden")
	assert.Error(t, err)
}

func TestListTemplatesEmptyWorkspace(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), "missing"))
	names, err := m.ListTemplates()
	require.NoError(t, err)
	assert.Empty(t, names)
}
