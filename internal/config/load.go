package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadSpecFile reads a deployment spec from a YAML file and applies sizing
// and network defaults before validation.
func LoadSpecFile(path string) (*DeploymentSpec, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	spec := DeploymentSpec{
		Kind:          KindVM,
		Cores:         2,
		MemoryMB:      2048,
		DiskGB:        10,
		Storage:       "local-lvm",
		Bridge:        "vmbr0",
		SubnetMask:    24,
		StartOnCreate: true,
		Unprivileged:  true,
	}
	if err := mapstructure.Decode(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode spec: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("spec validation failed: %w", err)
	}

	return &spec, nil
}

func (c *Config) applyDefaults() {
	if c.Proxmox.Port == 0 {
		c.Proxmox.Port = 8006
	}
	if c.Proxmox.AuthMethod == "" {
		c.Proxmox.AuthMethod = "password"
	}
	if c.Terraform.Workspace == "" {
		c.Terraform.Workspace = defaultWorkspace()
	}
	if c.Ansible.PlaybookDir == "" {
		c.Ansible.PlaybookDir = "playbooks"
	}
}

func defaultWorkspace() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".infraforge/terraform"
	}
	return home + "/.infraforge/terraform"
}

// Validate checks connection settings for fatal configuration errors.
func (c *Config) Validate() error {
	if c.Proxmox.Host == "" {
		return fmt.Errorf("proxmox.host is required")
	}
	if c.Proxmox.User == "" {
		return fmt.Errorf("proxmox.user is required")
	}
	switch c.Proxmox.AuthMethod {
	case "password":
		if c.Proxmox.Password == "" {
			return fmt.Errorf("proxmox.password is required for password auth")
		}
	case "token":
		if c.Proxmox.TokenName == "" || c.Proxmox.TokenValue == "" {
			return fmt.Errorf("proxmox.token_name and proxmox.token_value are required for token auth")
		}
	default:
		return fmt.Errorf("proxmox.auth_method must be \"password\" or \"token\", got %q", c.Proxmox.AuthMethod)
	}
	if c.IPAM.Enabled && (c.IPAM.URL == "" || c.IPAM.AppID == "") {
		return fmt.Errorf("ipam.url and ipam.app_id are required when ipam is enabled")
	}
	return nil
}
