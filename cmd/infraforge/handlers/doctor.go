package handlers

import (
	"context"
	"fmt"

	"github.com/infraforge/infraforge/internal/util/prerequisites"
)

// Doctor checks the local environment: client tools, configuration, and
// Proxmox API reachability.
func Doctor(ctx context.Context, configPath string) error {
	fmt.Println("Client tools:")
	results := checkAllTools()
	for _, r := range results.Results {
		printToolRow(r)
	}
	fmt.Println()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("%s  configuration: %v\n", crossMark, err)
		return fmt.Errorf("configuration check failed")
	}
	fmt.Printf("%s  configuration loaded (auth: %s)\n", checkMark, cfg.Proxmox.AuthMethod)

	client, err := newProxmoxClient(ctx, cfg.Proxmox)
	if err != nil {
		fmt.Printf("%s  Proxmox API at %s:%d: %v\n", crossMark, cfg.Proxmox.Host, cfg.Proxmox.Port, err)
		return fmt.Errorf("Proxmox connectivity check failed")
	}

	version, err := client.Version(ctx)
	if err != nil {
		fmt.Printf("%s  Proxmox API at %s:%d: %v\n", crossMark, cfg.Proxmox.Host, cfg.Proxmox.Port, err)
		return fmt.Errorf("Proxmox connectivity check failed")
	}
	fmt.Printf("%s  Proxmox VE %s at %s:%d\n", checkMark, version, cfg.Proxmox.Host, cfg.Proxmox.Port)

	if nextID, err := client.NextVMID(ctx); err == nil {
		fmt.Printf("   next free VMID: %d\n", nextID)
	}

	return results.Error()
}

const (
	checkMark = "✅"
	crossMark = "❌"
)

func printToolRow(r prerequisites.CheckResult) {
	switch {
	case r.Found && r.Version != "":
		fmt.Printf("%s  %-16s %s\n", checkMark, r.Tool.Name, r.Version)
	case r.Found:
		fmt.Printf("%s  %-16s %s\n", checkMark, r.Tool.Name, r.Path)
	case r.Tool.Required:
		fmt.Printf("%s  %-16s missing - %s\n", crossMark, r.Tool.Name, r.Tool.Description)
	default:
		fmt.Printf("%s  %-16s missing (optional) - %s\n", "⚠️", r.Tool.Name, r.Tool.Description)
	}
}
