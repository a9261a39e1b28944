// Package provisioning orchestrates a deployment end to end: pre-flight
// validation, Terraform generation and apply with live task monitoring,
// host discovery, and post-provision Ansible configuration.
//
// Concurrent deployments of the same spec name share a workspace directory;
// callers are expected to serialize them.
package provisioning

import (
	"context"

	"github.com/infraforge/infraforge/internal/ansible"
	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/discovery"
	"github.com/infraforge/infraforge/internal/monitor"
	"github.com/infraforge/infraforge/internal/preflight"
	"github.com/infraforge/infraforge/internal/proxmox"
	"github.com/infraforge/infraforge/internal/terraform"
)

// State holds the shared results of deployment phases. It is progressively
// populated as each phase completes and is read by subsequent phases.
type State struct {
	// Pre-flight results (populated by PreflightPhase)
	Preflight preflight.Result

	// Terraform results (populated by GeneratePhase and ApplyPhase)
	APIToken  string // full provider token "user!name=secret"
	DeployDir string
	Stages    []terraform.StageResult

	// Proxmox task outcomes observed during apply (populated by ApplyPhase)
	Tasks []monitor.TrackedTask

	// Enriched view of the new host (populated by DiscoverPhase)
	Host *discovery.HostRecord

	// Configuration results (populated by ConfigurePhase)
	PlaybookExitCode *int
}

// NewState creates an empty deployment state.
func NewState() *State {
	return &State{}
}

// Context wraps all dependencies and state needed for a deployment phase.
type Context struct {
	context.Context
	Config   *config.Config
	Spec     *config.DeploymentSpec
	State    *State
	Client   proxmox.Client
	TF       *terraform.Manager
	Ansible  *ansible.Runner
	Observer Observer
}

// NewContext creates a new deployment context with a console observer.
func NewContext(
	ctx context.Context,
	cfg *config.Config,
	spec *config.DeploymentSpec,
	client proxmox.Client,
	tf *terraform.Manager,
	runner *ansible.Runner,
) *Context {
	return &Context{
		Context:  ctx,
		Config:   cfg,
		Spec:     spec,
		State:    NewState(),
		Client:   client,
		TF:       tf,
		Ansible:  runner,
		Observer: NewConsoleObserver(),
	}
}
