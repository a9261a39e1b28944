package handlers

import (
	"fmt"

	"github.com/infraforge/infraforge/internal/terraform"
)

// TemplatesList prints the names of all saved deployment templates.
func TemplatesList(configPath string) error {
	tf, err := templateManager(configPath)
	if err != nil {
		return err
	}

	names, err := tf.ListTemplates()
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("No templates saved. Save one with 'infraforge templates save <name> <spec.yaml>'.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// TemplatesSave validates a spec file and stores it as a reusable template.
func TemplatesSave(configPath, name, specPath string) error {
	tf, err := templateManager(configPath)
	if err != nil {
		return err
	}

	spec, err := loadSpecFile(specPath)
	if err != nil {
		return fmt.Errorf("failed to load spec: %w", err)
	}
	if err := tf.SaveTemplate(name, spec); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	fmt.Printf("Saved template %q\n", name)
	return nil
}

// TemplatesDelete removes a saved template.
func TemplatesDelete(configPath, name string) error {
	tf, err := templateManager(configPath)
	if err != nil {
		return err
	}
	if err := tf.DeleteTemplate(name); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	fmt.Printf("Deleted template %q\n", name)
	return nil
}

func templateManager(configPath string) (*terraform.Manager, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	tf := terraform.NewManager(cfg.Terraform.Workspace)
	if err := tf.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare workspace: %w", err)
	}
	return tf, nil
}
