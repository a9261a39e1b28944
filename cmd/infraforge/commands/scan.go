package commands

import (
	"github.com/spf13/cobra"

	"github.com/infraforge/infraforge/cmd/infraforge/handlers"
)

// Scan returns the command for network host discovery and enrichment.
func Scan() *cobra.Command {
	var (
		configPath string
		noEnrich   bool
		osScan     bool
	)

	cmd := &cobra.Command{
		Use:   "scan <targets>",
		Short: "Discover and enrich hosts on the network",
		Long: `Discover live hosts and enrich them with DNS, IPAM, and OS data.

Targets accept CIDR prefixes, ranges, single addresses, and hostnames,
comma separated:

  10.0.1.0/24
  10.0.5.1-10.0.5.100
  10.0.5.1-100
  10.0.5.50, web01, db01.lab.local

Examples:
  # Sweep a subnet and enrich the live hosts
  infraforge scan 10.0.1.0/24

  # Plain reachability sweep, no lookups
  infraforge scan --no-enrich 10.0.5.1-100

  # Include nmap OS fingerprinting
  infraforge scan --os-scan 10.0.1.0/24`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Scan(cmd.Context(), handlers.ScanOptions{
				ConfigPath: configPath,
				Targets:    args[0],
				Enrich:     !noEnrich,
				OSScan:     osScan,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: infraforge.yaml)")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip DNS/IPAM/OS enrichment")
	cmd.Flags().BoolVar(&osScan, "os-scan", false, "Fingerprint operating systems with nmap")

	return cmd
}
