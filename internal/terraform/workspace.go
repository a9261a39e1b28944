// Package terraform generates HCL for Proxmox deployments and drives the
// terraform binary through its staged lifecycle: provider mirror, init,
// plan, apply. Failures are classified against known Proxmox error shapes
// so callers can print actionable guidance instead of raw provider output.
package terraform

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/infraforge/infraforge/internal/config"
)

const workspaceGitignore = `.tf-token.json
**/.terraform/
*.tfstate
*.tfstate.backup
`

// Manager owns a Terraform workspace directory and its layout:
//
//	<workspace>/deployments/<name>/main.tf
//	<workspace>/templates/<name>.json
//	<workspace>/plugins/          (local provider mirror)
type Manager struct {
	Workspace string

	// Logf receives progress lines. Nil discards them.
	Logf func(format string, args ...any)

	run commandFunc
}

// NewManager returns a Manager rooted at workspace.
func NewManager(workspace string) *Manager {
	return &Manager{Workspace: workspace, run: runTerraform}
}

func (m *Manager) logf(format string, args ...any) {
	if m.Logf != nil {
		m.Logf(format, args...)
	}
}

// DeploymentsDir returns the directory holding per-deployment workspaces.
func (m *Manager) DeploymentsDir() string { return filepath.Join(m.Workspace, "deployments") }

// TemplatesDir returns the directory holding saved spec templates.
func (m *Manager) TemplatesDir() string { return filepath.Join(m.Workspace, "templates") }

// PluginsDir returns the local provider plugin mirror directory.
func (m *Manager) PluginsDir() string { return filepath.Join(m.Workspace, "plugins") }

// EnsureDirs creates the workspace layout and drops a .gitignore covering
// state files and the cached API token, so a workspace under version
// control never leaks credentials.
func (m *Manager) EnsureDirs() error {
	for _, dir := range []string{m.Workspace, m.DeploymentsDir(), m.TemplatesDir(), m.PluginsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating workspace directory: %w", err)
		}
	}

	gitignore := filepath.Join(m.Workspace, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		if err := os.WriteFile(gitignore, []byte(workspaceGitignore), 0o644); err != nil {
			return fmt.Errorf("writing workspace .gitignore: %w", err)
		}
	}
	return nil
}

var deploymentNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// CreateDeployment writes the deployment's main.tf and returns its
// directory. Regenerating an unchanged spec produces byte-identical
// output, so reruns are safe.
func (m *Manager) CreateDeployment(cfg config.ProxmoxConfig, apiToken string, spec *config.DeploymentSpec) (string, error) {
	if !deploymentNameRe.MatchString(spec.Name) {
		return "", fmt.Errorf("deployment name %q contains characters unsafe for a directory name", spec.Name)
	}
	if err := m.EnsureDirs(); err != nil {
		return "", err
	}

	dir := filepath.Join(m.DeploymentsDir(), spec.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating deployment directory: %w", err)
	}

	hcl, err := GenerateHCL(cfg, apiToken, spec)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "main.tf"), []byte(hcl), 0o600); err != nil {
		return "", fmt.Errorf("writing main.tf: %w", err)
	}

	m.logf("wrote %s", filepath.Join(dir, "main.tf"))
	return dir, nil
}
