// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI framework. Factory variables below are replaced in tests for
// dependency injection.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/proxmox"
	"github.com/infraforge/infraforge/internal/sshutil"
	"github.com/infraforge/infraforge/internal/util/prerequisites"
)

const defaultConfigFile = "infraforge.yaml"

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// newProxmoxClient creates a connected Proxmox client.
	newProxmoxClient = func(ctx context.Context, cfg config.ProxmoxConfig) (proxmox.Client, error) {
		client := proxmox.NewRealClient(cfg)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}

	loadConfigFile = config.LoadFile
	loadSpecFile   = config.LoadSpecFile

	checkTools    = prerequisites.Check
	checkAllTools = prerequisites.CheckAll

	verifyLogin = sshutil.VerifyLogin
)

// loadConfig resolves the config path and loads it. An explicit path that
// does not exist is an error; the default path falls back to a helpful hint.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = defaultConfigFile
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("no configuration found at %s; pass one with --config", path)
		}
	}
	return loadConfigFile(path)
}
