package commands

import (
	"github.com/spf13/cobra"

	"github.com/infraforge/infraforge/cmd/infraforge/handlers"
)

// Doctor returns the command for environment and connectivity diagnostics.
func Doctor() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check local tools and Proxmox connectivity",
		Long: `Check that the local environment can run deployments.

Verifies the client tools (terraform, ansible-playbook, ping, nmap), loads
the configuration, and probes the Proxmox API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: infraforge.yaml)")

	return cmd
}
