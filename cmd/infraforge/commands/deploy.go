package commands

import (
	"github.com/spf13/cobra"

	"github.com/infraforge/infraforge/cmd/infraforge/handlers"
)

// Deploy returns the command for provisioning a VM or container.
//
// The full pipeline runs: pre-flight validation against the cluster,
// Terraform generation and apply with live Proxmox task progress, and the
// spec's Ansible playbook once the host accepts SSH.
//
// Optional flags:
//
//	--config, -c:   Path to configuration YAML (default: infraforge.yaml)
//	--from-template: Load the spec from a saved template instead of a file
//	--skip-preflight: Skip pre-flight validation (not recommended)
func Deploy() *cobra.Command {
	var (
		configPath    string
		fromTemplate  string
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "deploy [spec.yaml]",
		Short: "Provision a VM or container from a deployment spec",
		Long: `Provision a VM or container on Proxmox VE.

The spec file describes one deployment: its kind (vm or container), sizing,
network settings, source template, and an optional Ansible playbook to run
once the host is reachable.

Examples:
  # Deploy from a spec file
  infraforge deploy web01.yaml

  # Deploy from a saved template
  infraforge deploy --from-template web-base

  # Use a specific config file
  infraforge deploy -c production.yaml web01.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specPath := ""
			if len(args) == 1 {
				specPath = args[0]
			}
			return handlers.Deploy(cmd.Context(), handlers.DeployOptions{
				ConfigPath:    configPath,
				SpecPath:      specPath,
				FromTemplate:  fromTemplate,
				SkipPreflight: skipPreflight,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: infraforge.yaml)")
	cmd.Flags().StringVar(&fromTemplate, "from-template", "", "Deploy from a saved spec template")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip pre-flight validation")

	return cmd
}
