package provisioning

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/infraforge/infraforge/internal/ansible"
	"github.com/infraforge/infraforge/internal/discovery"
	"github.com/infraforge/infraforge/internal/ipam"
	"github.com/infraforge/infraforge/internal/monitor"
	"github.com/infraforge/infraforge/internal/preflight"
	"github.com/infraforge/infraforge/internal/sshutil"
	"github.com/infraforge/infraforge/internal/terraform"
	"github.com/infraforge/infraforge/internal/util/retry"
)

// PreflightPhase validates the cluster can satisfy the spec before any
// Terraform runs.
type PreflightPhase struct {
	// validate overrides the validator run, for tests.
	validate func(ctx *Context) preflight.Result
}

func (p *PreflightPhase) Name() string { return "preflight" }

func (p *PreflightPhase) Run(ctx *Context) error {
	run := p.validate
	if run == nil {
		run = func(ctx *Context) preflight.Result {
			v := &preflight.Validator{
				Client:  ctx.Client,
				LogFunc: ctx.Observer.Printf,
			}
			return v.Run(ctx, ctx.Spec)
		}
	}

	result := run(ctx)
	ctx.State.Preflight = result

	for _, check := range result.Checks {
		eventType := EventCheckPassed
		switch check.Status {
		case preflight.StatusFixed:
			eventType = EventCheckFixed
		case preflight.StatusFailed:
			eventType = EventCheckFailed
		}
		ctx.Observer.Event(Event{
			Type:    eventType,
			Phase:   p.Name(),
			Message: fmt.Sprintf("%s: %s", check.Name, check.Message),
		})
	}

	if !result.Passed {
		var lines []string
		for _, f := range result.Failures() {
			lines = append(lines, fmt.Sprintf("%s: %s (%s)", f.Name, f.Message, f.Fix))
		}
		return fmt.Errorf("pre-flight checks failed:\n%s", strings.Join(lines, "\n"))
	}
	return nil
}

// GeneratePhase prepares the Terraform workspace: resolves the provider
// token and writes the deployment's main.tf.
type GeneratePhase struct{}

func (p *GeneratePhase) Name() string { return "generate" }

func (p *GeneratePhase) Run(ctx *Context) error {
	cfg := ctx.Config.Proxmox

	if cfg.AuthMethod == "token" {
		ctx.State.APIToken = fmt.Sprintf("%s!%s=%s", cfg.User, cfg.TokenName, cfg.TokenValue)
	} else {
		token, err := ctx.TF.EnsureToken(ctx, ctx.Client, cfg)
		if err != nil {
			return err
		}
		ctx.State.APIToken = token
	}

	dir, err := ctx.TF.CreateDeployment(cfg, ctx.State.APIToken, ctx.Spec)
	if err != nil {
		return err
	}
	ctx.State.DeployDir = dir

	ctx.Observer.Event(Event{
		Type:     EventResourceCreating,
		Phase:    p.Name(),
		Resource: ctx.Spec.Name,
		Message:  fmt.Sprintf("configuration written to %s", filepath.Join(dir, "main.tf")),
	})
	return nil
}

// ApplyPhase runs the Terraform lifecycle with a Proxmox task monitor
// following along, so clone and start progress shows up live instead of
// Terraform's silence.
type ApplyPhase struct {
	// deploy overrides the Terraform run, for tests.
	deploy func(ctx *Context) ([]terraform.StageResult, error)
}

func (p *ApplyPhase) Name() string { return "apply" }

func (p *ApplyPhase) Run(ctx *Context) error {
	deploy := p.deploy
	if deploy == nil {
		deploy = func(ctx *Context) ([]terraform.StageResult, error) {
			return ctx.TF.Deploy(ctx, ctx.State.DeployDir)
		}
	}

	mon := monitor.New(ctx.Client, ctx.Spec.Node, func(format string, args ...any) {
		ctx.Observer.Event(Event{
			Type:    EventTaskProgress,
			Phase:   p.Name(),
			Message: fmt.Sprintf(format, args...),
		})
	})
	mon.Start(ctx)

	results, err := deploy(ctx)

	// Stop gets a fresh context: the apply context may already be done,
	// and the final poll should still run.
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	mon.Stop(stopCtx)
	cancel()

	ctx.State.Stages = results
	ctx.State.Tasks = mon.Tasks()

	if err != nil {
		var stageErr *terraform.StageError
		if errors.As(err, &stageErr) && stageErr.Classification.Known {
			ctx.Observer.Event(Event{
				Type:    EventResourceFailed,
				Phase:   p.Name(),
				Message: stageErr.Classification.Title,
				Fields:  map[string]string{"guidance": stageErr.Classification.Guidance},
			})
		}
		return err
	}

	ctx.Observer.Event(Event{
		Type:     EventResourceCreated,
		Phase:    p.Name(),
		Resource: ctx.Spec.Name,
		Message:  "terraform apply complete",
	})
	return nil
}

// DiscoverPhase waits for the new host to answer ping and enriches it with
// DNS and IPAM data, so the deployment report names the host the way the
// network sees it. A DHCP-addressed spec skips the phase: there is no
// address to probe.
type DiscoverPhase struct {
	// probe and enrich override the real implementations, for tests.
	probe  func(ctx *Context, ip string) error
	enrich func(ctx *Context, ip string) (*discovery.HostRecord, error)
}

const pingWaitTimeout = 2 * time.Minute

func (p *DiscoverPhase) Name() string { return "discover" }

func (p *DiscoverPhase) Run(ctx *Context) error {
	host := ctx.Spec.IPAddress
	if host == "" {
		ctx.Observer.Printf("DHCP address, skipping host discovery")
		return nil
	}

	probe := p.probe
	if probe == nil {
		probe = waitForPing
	}
	if err := probe(ctx, host); err != nil {
		return fmt.Errorf("host %s never answered ping: %w", host, err)
	}
	ctx.Observer.Printf("%s is answering ping", host)

	enrich := p.enrich
	if enrich == nil {
		enrich = enrichHost
	}
	rec, err := enrich(ctx, host)
	if err != nil {
		// Enrichment is informational; a failed lookup must not undo a
		// successful apply.
		ctx.Observer.Printf("enrichment failed for %s: %v", host, err)
		return nil
	}
	ctx.State.Host = rec
	if name := rec.BestHostname(); name != "" {
		ctx.Observer.Printf("%s is known as %s", host, name)
	}
	return nil
}

func waitForPing(ctx *Context, ip string) error {
	sweeper := &discovery.Sweeper{Workers: 1}
	return retry.WithExponentialBackoff(ctx, func() error {
		alive, _, err := sweeper.Sweep(ctx, []string{ip}, nil)
		if err != nil {
			return err
		}
		if len(alive) == 0 {
			return fmt.Errorf("%s not reachable yet", ip)
		}
		return nil
	},
		retry.WithMaxRetries(int(pingWaitTimeout/(5*time.Second))),
		retry.WithInitialDelay(5*time.Second),
		retry.WithMaxDelay(15*time.Second))
}

func enrichHost(ctx *Context, ip string) (*discovery.HostRecord, error) {
	enricher := &discovery.Enricher{}
	if ctx.Config.DNS.Enabled {
		enricher.DNS = discovery.NewResolver(ctx.Config.DNS.Server)
	}
	if ctx.Config.IPAM.Enabled {
		enricher.IPAM = ipam.NewClient(ctx.Config.IPAM)
	}

	records, err := enricher.Enrich(ctx, []string{ip}, nil)
	if err != nil {
		return nil, err
	}
	return records[ip], nil
}

// ConfigurePhase waits for the new host to accept SSH and runs the spec's
// playbook against it. A spec without a playbook skips the phase.
type ConfigurePhase struct {
	// waitSSH and runPlaybook override the real implementations, for tests.
	waitSSH     func(ctx *Context, host string) error
	runPlaybook func(ctx *Context, host string) (int, error)
}

const sshWaitTimeout = 5 * time.Minute

func (p *ConfigurePhase) Name() string { return "configure" }

func (p *ConfigurePhase) Run(ctx *Context) error {
	if ctx.Spec.Playbook == "" {
		ctx.Observer.Printf("no playbook configured, skipping")
		return nil
	}
	host := ctx.Spec.IPAddress
	if host == "" {
		return fmt.Errorf("playbook %q needs a static ip_address in the spec; DHCP leases are not discoverable here", ctx.Spec.Playbook)
	}

	wait := p.waitSSH
	if wait == nil {
		wait = func(ctx *Context, host string) error {
			return sshutil.WaitForSSH(ctx, host, 22, sshWaitTimeout)
		}
	}
	if err := wait(ctx, host); err != nil {
		return err
	}

	run := p.runPlaybook
	if run == nil {
		run = func(ctx *Context, host string) (int, error) {
			playbook := ctx.Spec.Playbook
			if !filepath.IsAbs(playbook) {
				playbook = filepath.Join(ctx.Config.Ansible.PlaybookDir, playbook)
			}
			r, err := ctx.Ansible.Start(ctx, ansible.RunOptions{
				Playbook: playbook,
				Hosts:    []string{host},
			}, func(ev ansible.StreamEvent) {
				ctx.Observer.Printf("%s", ev.Line)
			})
			if err != nil {
				return -1, err
			}
			return r.Wait()
		}
	}

	code, err := run(ctx, host)
	ctx.State.PlaybookExitCode = &code
	if err != nil && code != 0 {
		return fmt.Errorf("playbook %s exited with code %d", ctx.Spec.Playbook, code)
	}
	return err
}
