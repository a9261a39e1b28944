package handlers

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/discovery"
	"github.com/infraforge/infraforge/internal/ipam"
	"github.com/infraforge/infraforge/internal/util/prerequisites"
)

// ScanOptions holds the scan command parameters.
type ScanOptions struct {
	ConfigPath string
	Targets    string
	Enrich     bool
	OSScan     bool
}

// Scan discovers reachable hosts in the target expression and, unless
// disabled, enriches the live ones with DNS, IPAM and OS information.
func Scan(ctx context.Context, opts ScanOptions) error {
	if err := checkTools(prerequisites.ScanTools()).Error(); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	resolver := discovery.NewResolver(cfg.DNS.Server)

	ips, resolved, unresolved := discovery.ResolveTargets(ctx, opts.Targets, resolver.LookupHost, cfg.DNS.Zones)
	for _, name := range unresolved {
		fmt.Printf("warning: could not resolve %q, skipping\n", name)
	}
	if len(ips) == 0 {
		return fmt.Errorf("no addresses to scan in %q", opts.Targets)
	}

	fmt.Printf("Sweeping %d addresses...\n", len(ips))
	alive, dead, err := discovery.PingSweep(ctx, ips, nil)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	fmt.Printf("%d up, %d down\n", len(alive), len(dead))

	if !opts.Enrich || len(alive) == 0 {
		for _, ip := range alive {
			if name, ok := resolved[ip]; ok {
				fmt.Printf("%s\t%s\n", ip, name)
			} else {
				fmt.Println(ip)
			}
		}
		return nil
	}

	records, err := enrichHosts(ctx, cfg, alive, opts.OSScan)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IP\tHOSTNAME\tOS\tSOURCES")
	for _, ip := range alive {
		rec := records[ip]
		if rec == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.IP, orDash(rec.BestHostname()), orDash(rec.OSGuess), sourceSummary(*rec))
	}
	return w.Flush()
}

// enrichHosts wires the configured enrichment sources and runs them against
// the live hosts. OS scanning is attempted only when nmap is actually
// available.
func enrichHosts(ctx context.Context, cfg *config.Config, alive []string, osScan bool) (map[string]*discovery.HostRecord, error) {
	enricher := &discovery.Enricher{}

	if cfg.DNS.Enabled {
		enricher.DNS = discovery.NewResolver(cfg.DNS.Server)
	}
	if cfg.IPAM.Enabled {
		enricher.IPAM = ipam.NewClient(cfg.IPAM)
	}
	if osScan {
		found, sudoOK := discovery.CheckNmap()
		if found {
			enricher.OSScan = discovery.NewNmapDetector(sudoOK)
		} else {
			fmt.Println("warning: nmap not found, skipping OS detection")
		}
	}

	return enricher.Enrich(ctx, alive, nil)
}

func sourceSummary(rec discovery.HostRecord) string {
	summary := ""
	for _, s := range []struct {
		label string
		state discovery.SourceState
	}{
		{"dns", rec.DNSState},
		{"ipam", rec.IPAMState},
		{"nmap", rec.NmapState},
	} {
		if s.state == discovery.StateDone {
			if summary != "" {
				summary += ","
			}
			summary += s.label
		}
	}
	return orDash(summary)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
