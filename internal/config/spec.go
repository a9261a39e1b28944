package config

import (
	"fmt"
	"net"
	"strings"
)

// Kind selects the Proxmox resource shape for a deployment.
type Kind string

const (
	// KindContainer deploys an LXC container from an appliance template.
	KindContainer Kind = "container"
	// KindVM deploys a QEMU virtual machine, cloned from a template VM.
	KindVM Kind = "vm"
)

// DeploymentSpec describes a single VM or container deployment. It is
// immutable once handed to the Terraform generator; the caller owns it.
type DeploymentSpec struct {
	Name string `mapstructure:"name" json:"name"`
	Node string `mapstructure:"node" json:"node"`
	Kind Kind   `mapstructure:"kind" json:"kind"`

	Cores    int `mapstructure:"cores" json:"cores"`
	MemoryMB int `mapstructure:"memory_mb" json:"memory_mb"`
	DiskGB   int `mapstructure:"disk_gb" json:"disk_gb"`

	Storage string `mapstructure:"storage" json:"storage"`
	Bridge  string `mapstructure:"bridge" json:"bridge"`

	IPAddress  string `mapstructure:"ip_address" json:"ip_address"`
	SubnetMask int    `mapstructure:"subnet_mask" json:"subnet_mask"`
	Gateway    string `mapstructure:"gateway" json:"gateway"`
	VLAN       int    `mapstructure:"vlan" json:"vlan"`

	// TemplateVolID is the storage volume of a container template
	// (e.g. "local:vztmpl/debian-12-standard_12.2-1_amd64.tar.zst").
	TemplateVolID string `mapstructure:"template_volid" json:"template_volid"`

	// TemplateVMID is the VMID of the template VM to clone (VM kind only).
	TemplateVMID int `mapstructure:"template_vmid" json:"template_vmid"`

	SSHKeys       string `mapstructure:"ssh_keys" json:"ssh_keys"`
	StartOnCreate bool   `mapstructure:"start_on_create" json:"start_on_create"`
	Unprivileged  bool   `mapstructure:"unprivileged" json:"unprivileged"`
	Description   string `mapstructure:"description" json:"description"`

	// Playbook is an optional Ansible playbook to run against the host
	// after provisioning.
	Playbook string `mapstructure:"playbook" json:"playbook"`
}

// Validate reports the first fatal problem with the spec. Spec errors are
// configuration errors: surfaced immediately, never retried.
func (s *DeploymentSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("deployment name is required")
	}
	if strings.ContainsAny(s.Name, " /\\") {
		return fmt.Errorf("deployment name %q must not contain spaces or path separators", s.Name)
	}
	if s.Node == "" {
		return fmt.Errorf("target node is required")
	}
	switch s.Kind {
	case KindContainer:
		if s.TemplateVolID == "" {
			return fmt.Errorf("container deployments require template_volid")
		}
	case KindVM:
		if s.TemplateVMID <= 0 {
			return fmt.Errorf("vm deployments require template_vmid")
		}
	default:
		return fmt.Errorf("kind must be %q or %q, got %q", KindContainer, KindVM, s.Kind)
	}
	if s.Cores <= 0 {
		return fmt.Errorf("cores must be positive, got %d", s.Cores)
	}
	if s.MemoryMB <= 0 {
		return fmt.Errorf("memory_mb must be positive, got %d", s.MemoryMB)
	}
	if s.DiskGB <= 0 {
		return fmt.Errorf("disk_gb must be positive, got %d", s.DiskGB)
	}
	if s.Storage == "" {
		return fmt.Errorf("storage pool is required")
	}
	if s.IPAddress != "" {
		if net.ParseIP(s.IPAddress) == nil {
			return fmt.Errorf("invalid ip_address %q", s.IPAddress)
		}
		if s.SubnetMask < 1 || s.SubnetMask > 32 {
			return fmt.Errorf("subnet_mask must be 1-32, got %d", s.SubnetMask)
		}
	}
	if s.Gateway != "" && net.ParseIP(s.Gateway) == nil {
		return fmt.Errorf("invalid gateway %q", s.Gateway)
	}
	if s.VLAN < 0 || s.VLAN > 4094 {
		return fmt.Errorf("vlan must be 0-4094, got %d", s.VLAN)
	}
	return nil
}
