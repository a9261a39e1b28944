// Package main is the entry point for the infraforge CLI.
//
// infraforge provisions VMs and containers on Proxmox VE: it validates the
// cluster can satisfy a deployment spec, generates and applies Terraform,
// follows Proxmox task progress while it happens, and configures the
// resulting hosts with Ansible. It also discovers and enriches hosts on the
// network for inventory work.
//
// Commands: deploy, scan, run, templates, doctor, version.
//
// For detailed usage information, run:
//
//	infraforge --help
package main

import (
	"fmt"
	"os"

	"github.com/infraforge/infraforge/cmd/infraforge/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
