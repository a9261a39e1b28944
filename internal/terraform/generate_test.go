package terraform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraforge/infraforge/internal/config"
)

func proxmoxCfg() config.ProxmoxConfig {
	return config.ProxmoxConfig{
		Host:       "pve.lab.local",
		Port:       8006,
		User:       "root@pam",
		AuthMethod: "password",
		Password:   "hunter2",
	}
}

func containerSpec() *config.DeploymentSpec {
	return &config.DeploymentSpec{
		Name:          "web01",
		Node:          "pve1",
		Kind:          config.KindContainer,
		Cores:         2,
		MemoryMB:      2048,
		DiskGB:        10,
		Storage:       "local-lvm",
		Bridge:        "vmbr0",
		IPAddress:     "10.0.0.5",
		SubnetMask:    24,
		Gateway:       "10.0.0.1",
		TemplateVolID: "local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst",
		SSHKeys:       "ssh-ed25519 AAAA... ops@lab",
		StartOnCreate: true,
		Unprivileged:  true,
	}
}

func vmSpec() *config.DeploymentSpec {
	s := containerSpec()
	s.Name = "db01"
	s.Kind = config.KindVM
	s.TemplateVolID = ""
	s.TemplateVMID = 9000
	return s
}

func TestGenerateHCLContainer(t *testing.T) {
	t.Parallel()

	hcl, err := GenerateHCL(proxmoxCfg(), "", containerSpec())
	require.NoError(t, err)

	assert.Contains(t, hcl, `source  = "bpg/proxmox"`)
	assert.Contains(t, hcl, `version = ">= 0.66.0"`)
	assert.Contains(t, hcl, `endpoint = "https://pve.lab.local:8006/"`)
	assert.Contains(t, hcl, `username = "root@pam"`)
	assert.Contains(t, hcl, `password = "hunter2"`)
	assert.Contains(t, hcl, "insecure = true")

	assert.Contains(t, hcl, `resource "proxmox_virtual_environment_container" "web01"`)
	assert.Contains(t, hcl, `node_name = "pve1"`)
	assert.Contains(t, hcl, "unprivileged = true")
	assert.Contains(t, hcl, "cores = 2")
	assert.Contains(t, hcl, "dedicated = 2048")
	assert.Contains(t, hcl, `datastore_id = "local-lvm"`)
	assert.Contains(t, hcl, "size = 10")
	assert.Contains(t, hcl, `bridge = "vmbr0"`)
	assert.Contains(t, hcl, `template_file_id = "local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst"`)
	assert.Contains(t, hcl, `type = "debian"`)
	assert.Contains(t, hcl, `hostname = "web01"`)
	assert.Contains(t, hcl, `address = "10.0.0.5/24"`)
	assert.Contains(t, hcl, `gateway = "10.0.0.1"`)
	assert.Contains(t, hcl, `"ssh-ed25519 AAAA... ops@lab",`)

	assert.NotContains(t, hcl, "vlan_id")
	assert.NotContains(t, hcl, "api_token")
}

func TestGenerateHCLVM(t *testing.T) {
	t.Parallel()

	hcl, err := GenerateHCL(proxmoxCfg(), "root@pam!infraforge-terraform=secret", vmSpec())
	require.NoError(t, err)

	assert.Contains(t, hcl, `resource "proxmox_virtual_environment_vm" "db01"`)
	assert.Contains(t, hcl, `api_token = "root@pam!infraforge-terraform=secret"`)
	assert.NotContains(t, hcl, "password = ")
	assert.Contains(t, hcl, "vm_id = 9000")
	assert.Contains(t, hcl, `interface = "scsi0"`)
	assert.Contains(t, hcl, "agent {")
	assert.NotContains(t, hcl, "proxmox_virtual_environment_container")
}

func TestGenerateHCLDHCPWhenNoAddress(t *testing.T) {
	t.Parallel()

	spec := containerSpec()
	spec.IPAddress = ""
	spec.Gateway = ""

	hcl, err := GenerateHCL(proxmoxCfg(), "", spec)
	require.NoError(t, err)
	assert.Contains(t, hcl, `address = "dhcp"`)
	assert.NotContains(t, hcl, "gateway")
}

func TestGenerateHCLVLANAndVerifiedTLS(t *testing.T) {
	t.Parallel()

	cfg := proxmoxCfg()
	cfg.VerifySSL = true
	spec := containerSpec()
	spec.VLAN = 42

	hcl, err := GenerateHCL(cfg, "", spec)
	require.NoError(t, err)
	assert.Contains(t, hcl, "vlan_id = 42")
	assert.NotContains(t, hcl, "insecure")
}

func TestGenerateHCLDeterministic(t *testing.T) {
	t.Parallel()

	first, err := GenerateHCL(proxmoxCfg(), "", containerSpec())
	require.NoError(t, err)
	second, err := GenerateHCL(proxmoxCfg(), "", containerSpec())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateHCLRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	spec := containerSpec()
	spec.Cores = 0
	_, err := GenerateHCL(proxmoxCfg(), "", spec)
	assert.Error(t, err)
}

func TestDetectOSType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		volID string
		want  string
	}{
		{"local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst", "debian"},
		{"local:vztmpl/ubuntu-24.04-standard_24.04-2_amd64.tar.zst", "ubuntu"},
		{"local:vztmpl/alpine-3.20-default_20240908_amd64.tar.xz", "alpine"},
		{"local:vztmpl/rockylinux-9-default_20240912_amd64.tar.xz", "centos"},
		{"local:vztmpl/mystery-os.tar.zst", "unmanaged"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectOSType(tt.volID), tt.volID)
	}
}

func TestResourceLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "web01", resourceLabel("web01"))
	assert.Equal(t, "web_01_east", resourceLabel("web.01 east"))
	assert.Equal(t, "d_9lives", resourceLabel("9lives"))
}
