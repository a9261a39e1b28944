package handlers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/infraforge/infraforge/internal/ansible"
	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/provisioning"
	"github.com/infraforge/infraforge/internal/terraform"
	"github.com/infraforge/infraforge/internal/util/prerequisites"
)

// DeployOptions holds the deploy command parameters.
type DeployOptions struct {
	ConfigPath    string
	SpecPath      string
	FromTemplate  string
	SkipPreflight bool
}

// runPhases is replaced in tests to observe the assembled pipeline without
// touching a real cluster.
var runPhases = provisioning.RunPhases

// Deploy provisions the resource described by a deployment spec: pre-flight
// checks, Terraform generation and apply, then optional Ansible
// configuration.
func Deploy(ctx context.Context, opts DeployOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tf := terraform.NewManager(cfg.Terraform.Workspace)
	if err := tf.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to prepare workspace: %w", err)
	}

	spec, err := resolveSpec(tf, opts)
	if err != nil {
		return err
	}

	tools := prerequisites.DeployTools()
	if spec.Playbook != "" {
		tools = append(tools, prerequisites.PlaybookTools()...)
	}
	if err := checkTools(tools).Error(); err != nil {
		return err
	}

	client, err := newProxmoxClient(ctx, cfg.Proxmox)
	if err != nil {
		return fmt.Errorf("failed to connect to Proxmox: %w", err)
	}

	runner := &ansible.Runner{
		LogDir:          filepath.Join(cfg.Ansible.PlaybookDir, "logs"),
		HostKeyChecking: cfg.Ansible.HostKeyChecking,
	}

	pctx := provisioning.NewContext(ctx, cfg, spec, client, tf, runner)

	phases := provisioning.DeployPhases()
	if opts.SkipPreflight {
		pctx.Observer.Printf("Skipping pre-flight checks (--skip-preflight)")
		phases = withoutPreflight(phases)
	}

	return runPhases(pctx, phases)
}

// resolveSpec loads the deployment spec from a file or a saved template.
// Exactly one source must be given.
func resolveSpec(tf *terraform.Manager, opts DeployOptions) (*config.DeploymentSpec, error) {
	switch {
	case opts.SpecPath != "" && opts.FromTemplate != "":
		return nil, fmt.Errorf("pass either a spec file or --from-template, not both")
	case opts.FromTemplate != "":
		spec, err := tf.LoadTemplate(opts.FromTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %q: %w", opts.FromTemplate, err)
		}
		return spec, nil
	case opts.SpecPath != "":
		spec, err := loadSpecFile(opts.SpecPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load spec: %w", err)
		}
		return spec, nil
	default:
		return nil, fmt.Errorf("a spec file or --from-template is required")
	}
}

func withoutPreflight(phases []provisioning.Phase) []provisioning.Phase {
	out := make([]provisioning.Phase, 0, len(phases))
	for _, p := range phases {
		if _, ok := p.(*provisioning.PreflightPhase); ok {
			continue
		}
		out = append(out, p)
	}
	return out
}
