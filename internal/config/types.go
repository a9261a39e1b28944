// Package config defines the InfraForge configuration model: connection
// settings for the Proxmox cluster and the enrichment sources, workspace
// locations for Terraform and Ansible, and the deployment spec that drives
// provisioning.
package config

// Config is the top-level InfraForge configuration.
type Config struct {
	Proxmox   ProxmoxConfig   `mapstructure:"proxmox"`
	Terraform TerraformConfig `mapstructure:"terraform"`
	Ansible   AnsibleConfig   `mapstructure:"ansible"`
	DNS       DNSConfig       `mapstructure:"dns"`
	IPAM      IPAMConfig      `mapstructure:"ipam"`
}

// ProxmoxConfig holds Proxmox VE API connection settings.
type ProxmoxConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`

	// AuthMethod is either "password" or "token".
	AuthMethod string `mapstructure:"auth_method"`
	Password   string `mapstructure:"password"`
	TokenName  string `mapstructure:"token_name"`
	TokenValue string `mapstructure:"token_value"`

	VerifySSL bool `mapstructure:"verify_ssl"`
}

// TerraformConfig holds the Terraform workspace location.
type TerraformConfig struct {
	// Workspace is the root directory for deployments, saved spec
	// templates, and the local provider plugin mirror.
	Workspace string `mapstructure:"workspace"`
}

// AnsibleConfig holds playbook execution settings.
type AnsibleConfig struct {
	PlaybookDir string `mapstructure:"playbook_dir"`

	// HostKeyChecking controls SSH host key verification during playbook
	// runs. Disable only for freshly provisioned hosts whose keys are not
	// yet known.
	HostKeyChecking bool `mapstructure:"host_key_checking"`
}

// DNSConfig holds reverse-lookup settings for host enrichment.
type DNSConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Server is an optional DNS server address ("host:port"). Empty uses
	// the system resolver.
	Server string `mapstructure:"server"`

	// Zones are search suffixes appended when resolving bare hostnames.
	Zones []string `mapstructure:"zones"`
}

// IPAMConfig holds phpIPAM connection settings for host enrichment.
type IPAMConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	AppID   string `mapstructure:"app_id"`
	Token   string `mapstructure:"token"`
}
