package terraform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/infraforge/infraforge/internal/config"
)

// providerVersion pins the bpg/proxmox provider constraint written into
// generated configurations.
const providerVersion = ">= 0.66.0"

// GenerateHCL renders a complete single-file Terraform configuration for a
// deployment spec. apiToken is the full PVE token ("user!name=secret");
// when empty the provider falls back to username and password auth from
// cfg. Output is deterministic for a given input.
func GenerateHCL(cfg config.ProxmoxConfig, apiToken string, spec *config.DeploymentSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString("terraform {\n")
	b.WriteString("  required_providers {\n")
	b.WriteString("    proxmox = {\n")
	b.WriteString("      source  = \"bpg/proxmox\"\n")
	fmt.Fprintf(&b, "      version = %q\n", providerVersion)
	b.WriteString("    }\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")

	b.WriteString("provider \"proxmox\" {\n")
	fmt.Fprintf(&b, "  endpoint = %q\n", fmt.Sprintf("https://%s:%d/", cfg.Host, cfg.Port))
	if apiToken != "" {
		fmt.Fprintf(&b, "  api_token = %q\n", apiToken)
	} else {
		fmt.Fprintf(&b, "  username = %q\n", cfg.User)
		fmt.Fprintf(&b, "  password = %q\n", cfg.Password)
	}
	if !cfg.VerifySSL {
		b.WriteString("  insecure = true\n")
	}
	b.WriteString("}\n\n")

	switch spec.Kind {
	case config.KindContainer:
		writeContainer(&b, spec)
	case config.KindVM:
		writeVM(&b, spec)
	default:
		return "", fmt.Errorf("unsupported deployment kind %q", spec.Kind)
	}

	return b.String(), nil
}

func writeContainer(b *strings.Builder, spec *config.DeploymentSpec) {
	fmt.Fprintf(b, "resource \"proxmox_virtual_environment_container\" %q {\n", resourceLabel(spec.Name))
	fmt.Fprintf(b, "  node_name = %q\n", spec.Node)
	if spec.Description != "" {
		fmt.Fprintf(b, "  description = %q\n", spec.Description)
	}
	fmt.Fprintf(b, "  unprivileged = %t\n", spec.Unprivileged)
	fmt.Fprintf(b, "  started = %t\n", spec.StartOnCreate)
	b.WriteString("\n")

	fmt.Fprintf(b, "  cpu {\n    cores = %d\n  }\n\n", spec.Cores)
	fmt.Fprintf(b, "  memory {\n    dedicated = %d\n  }\n\n", spec.MemoryMB)

	b.WriteString("  disk {\n")
	fmt.Fprintf(b, "    datastore_id = %q\n", spec.Storage)
	fmt.Fprintf(b, "    size = %d\n", spec.DiskGB)
	b.WriteString("  }\n\n")

	b.WriteString("  network_interface {\n")
	b.WriteString("    name = \"veth0\"\n")
	fmt.Fprintf(b, "    bridge = %q\n", spec.Bridge)
	if spec.VLAN > 0 {
		fmt.Fprintf(b, "    vlan_id = %d\n", spec.VLAN)
	}
	b.WriteString("  }\n\n")

	b.WriteString("  operating_system {\n")
	fmt.Fprintf(b, "    template_file_id = %q\n", spec.TemplateVolID)
	fmt.Fprintf(b, "    type = %q\n", detectOSType(spec.TemplateVolID))
	b.WriteString("  }\n\n")

	b.WriteString("  initialization {\n")
	fmt.Fprintf(b, "    hostname = %q\n", spec.Name)
	writeIPConfig(b, spec, "    ")
	writeUserAccount(b, spec, "    ")
	b.WriteString("  }\n")
	b.WriteString("}\n")
}

func writeVM(b *strings.Builder, spec *config.DeploymentSpec) {
	fmt.Fprintf(b, "resource \"proxmox_virtual_environment_vm\" %q {\n", resourceLabel(spec.Name))
	fmt.Fprintf(b, "  name = %q\n", spec.Name)
	fmt.Fprintf(b, "  node_name = %q\n", spec.Node)
	if spec.Description != "" {
		fmt.Fprintf(b, "  description = %q\n", spec.Description)
	}
	fmt.Fprintf(b, "  started = %t\n", spec.StartOnCreate)
	b.WriteString("\n")

	if spec.TemplateVMID > 0 {
		fmt.Fprintf(b, "  clone {\n    vm_id = %d\n    full = true\n  }\n\n", spec.TemplateVMID)
	}

	fmt.Fprintf(b, "  cpu {\n    cores = %d\n    type = \"host\"\n  }\n\n", spec.Cores)
	fmt.Fprintf(b, "  memory {\n    dedicated = %d\n  }\n\n", spec.MemoryMB)

	b.WriteString("  disk {\n")
	fmt.Fprintf(b, "    datastore_id = %q\n", spec.Storage)
	b.WriteString("    interface = \"scsi0\"\n")
	fmt.Fprintf(b, "    size = %d\n", spec.DiskGB)
	b.WriteString("  }\n\n")

	b.WriteString("  network_device {\n")
	fmt.Fprintf(b, "    bridge = %q\n", spec.Bridge)
	if spec.VLAN > 0 {
		fmt.Fprintf(b, "    vlan_id = %d\n", spec.VLAN)
	}
	b.WriteString("  }\n\n")

	b.WriteString("  agent {\n    enabled = true\n  }\n\n")

	b.WriteString("  initialization {\n")
	fmt.Fprintf(b, "    datastore_id = %q\n", spec.Storage)
	writeIPConfig(b, spec, "    ")
	writeUserAccount(b, spec, "    ")
	b.WriteString("  }\n")
	b.WriteString("}\n")
}

func writeIPConfig(b *strings.Builder, spec *config.DeploymentSpec, indent string) {
	fmt.Fprintf(b, "%sip_config {\n", indent)
	fmt.Fprintf(b, "%s  ipv4 {\n", indent)
	if spec.IPAddress == "" {
		fmt.Fprintf(b, "%s    address = \"dhcp\"\n", indent)
	} else {
		fmt.Fprintf(b, "%s    address = %q\n", indent, fmt.Sprintf("%s/%d", spec.IPAddress, spec.SubnetMask))
		if spec.Gateway != "" {
			fmt.Fprintf(b, "%s    gateway = %q\n", indent, spec.Gateway)
		}
	}
	fmt.Fprintf(b, "%s  }\n", indent)
	fmt.Fprintf(b, "%s}\n", indent)
}

func writeUserAccount(b *strings.Builder, spec *config.DeploymentSpec, indent string) {
	keys := splitSSHKeys(spec.SSHKeys)
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(b, "%suser_account {\n", indent)
	fmt.Fprintf(b, "%s  keys = [\n", indent)
	for _, key := range keys {
		fmt.Fprintf(b, "%s    %q,\n", indent, key)
	}
	fmt.Fprintf(b, "%s  ]\n", indent)
	fmt.Fprintf(b, "%s}\n", indent)
}

// splitSSHKeys splits the spec's ssh_keys field, one authorized key per
// line, dropping blanks.
func splitSSHKeys(keys string) []string {
	var out []string
	for _, line := range strings.Split(keys, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// osTypes are the operating_system types the bpg provider accepts, matched
// against the template file name. Order matters only for readability; the
// names do not overlap.
var osTypes = []string{
	"alpine", "archlinux", "centos", "debian", "devuan",
	"fedora", "gentoo", "nixos", "opensuse", "ubuntu",
}

// detectOSType guesses the container OS type from its template volume name,
// falling back to "unmanaged" when nothing matches.
func detectOSType(templateVolID string) string {
	name := strings.ToLower(templateVolID)
	for _, os := range osTypes {
		if strings.Contains(name, os) {
			return os
		}
	}
	if strings.Contains(name, "rocky") || strings.Contains(name, "alma") {
		return "centos"
	}
	return "unmanaged"
}

var labelUnsafeRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// resourceLabel converts a deployment name into a valid Terraform resource
// label. Labels cannot start with a digit.
func resourceLabel(name string) string {
	label := labelUnsafeRe.ReplaceAllString(name, "_")
	if label == "" || (label[0] >= '0' && label[0] <= '9') {
		label = "d_" + label
	}
	return label
}
