// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the infraforge CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infraforge",
		Short: "Provision and configure VMs and containers on Proxmox VE",
	}

	cmd.AddCommand(Deploy())
	cmd.AddCommand(Scan())
	cmd.AddCommand(Run())
	cmd.AddCommand(Templates())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())

	return cmd
}
