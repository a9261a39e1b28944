package terraform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/infraforge/infraforge/internal/config"
)

// SaveTemplate stores a deployment spec as a reusable named template.
func (m *Manager) SaveTemplate(name string, spec *config.DeploymentSpec) error {
	if err := validateTemplateName(name); err != nil {
		return err
	}
	if err := m.EnsureDirs(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(m.TemplatesDir(), name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving template %s: %w", name, err)
	}
	return nil
}

// LoadTemplate reads a saved spec template and validates it.
func (m *Manager) LoadTemplate(name string) (*config.DeploymentSpec, error) {
	if err := validateTemplateName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(m.TemplatesDir(), name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", name, err)
	}

	var spec config.DeploymentSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return &spec, nil
}

// ListTemplates returns the saved template names, sorted.
func (m *Manager) ListTemplates() ([]string, error) {
	entries, err := os.ReadDir(m.TemplatesDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// DeleteTemplate removes a saved template.
func (m *Manager) DeleteTemplate(name string) error {
	if err := validateTemplateName(name); err != nil {
		return err
	}
	path := filepath.Join(m.TemplatesDir(), name+".json")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting template %s: %w", name, err)
	}
	return nil
}

func validateTemplateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid template name %q", name)
	}
	return nil
}
