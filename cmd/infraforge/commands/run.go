package commands

import (
	"github.com/spf13/cobra"

	"github.com/infraforge/infraforge/cmd/infraforge/handlers"
)

// Run returns the command for running an Ansible playbook against hosts.
func Run() *cobra.Command {
	var (
		configPath string
		hosts      []string
		user       string
		privateKey string
		become     bool
	)

	cmd := &cobra.Command{
		Use:   "run <playbook>",
		Short: "Run an Ansible playbook against hosts",
		Long: `Run a playbook from the configured playbook directory.

Output streams live and is also written to a per-run log file. With no
--host flags the playbook is listed but not run.

Examples:
  # Run site.yml against two hosts
  infraforge run site.yml --host 10.0.0.5 --host 10.0.0.6

  # Run as a specific user with key auth and privilege escalation
  infraforge run site.yml --host 10.0.0.5 -u deploy --private-key ~/.ssh/id_ed25519 --become`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Run(cmd.Context(), handlers.RunPlaybookOptions{
				ConfigPath: configPath,
				Playbook:   args[0],
				Hosts:      hosts,
				User:       user,
				PrivateKey: privateKey,
				Become:     become,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: infraforge.yaml)")
	cmd.Flags().StringArrayVar(&hosts, "host", nil, "Target host (repeatable)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "SSH user")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "SSH private key file")
	cmd.Flags().BoolVar(&become, "become", false, "Escalate privileges on the target")

	return cmd
}
