package commands

import (
	"github.com/spf13/cobra"

	"github.com/infraforge/infraforge/cmd/infraforge/handlers"
)

// Templates returns the command group for saved deployment spec templates.
func Templates() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage saved deployment spec templates",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: infraforge.yaml)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.TemplatesList(configPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save <name> <spec.yaml>",
		Short: "Save a spec file as a reusable template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.TemplatesSave(configPath, args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.TemplatesDelete(configPath, args[0])
		},
	})

	return cmd
}
