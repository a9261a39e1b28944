package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/infraforge/infraforge/internal/ansible"
	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/util/prerequisites"
)

// RunPlaybookOptions holds the run command parameters.
type RunPlaybookOptions struct {
	ConfigPath string
	Playbook   string
	Hosts      []string
	User       string
	PrivateKey string
	Become     bool
}

// Run executes an Ansible playbook against the given hosts, streaming the
// output to the terminal. The exit code of the playbook becomes the error.
// Without hosts the playbook is only listed: name, task count, roles, and
// the outcome of its most recent run.
func Run(ctx context.Context, opts RunPlaybookOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(opts.Hosts) == 0 {
		return listPlaybook(cfg, opts.Playbook)
	}

	if err := checkTools(prerequisites.PlaybookTools()).Error(); err != nil {
		return err
	}

	// With key auth we can prove the login works before ansible does
	// anything, turning a bad key or user into an immediate error.
	if opts.PrivateKey != "" {
		for _, host := range opts.Hosts {
			if err := verifyLogin(ctx, host, 0, opts.User, opts.PrivateKey); err != nil {
				return err
			}
		}
	}

	playbook := opts.Playbook
	if !filepath.IsAbs(playbook) {
		playbook = filepath.Join(cfg.Ansible.PlaybookDir, playbook)
	}

	var creds *ansible.CredentialProfile
	if opts.User != "" || opts.PrivateKey != "" || opts.Become {
		creds = &ansible.CredentialProfile{
			User:       opts.User,
			PrivateKey: opts.PrivateKey,
			Become:     opts.Become,
		}
	}

	runner := &ansible.Runner{
		LogDir:          filepath.Join(cfg.Ansible.PlaybookDir, "logs"),
		HostKeyChecking: cfg.Ansible.HostKeyChecking,
	}

	run, err := runner.Start(ctx, ansible.RunOptions{
		Playbook:    playbook,
		Hosts:       opts.Hosts,
		Credentials: creds,
	}, func(ev ansible.StreamEvent) {
		fmt.Println(ev.Line)
	})
	if err != nil {
		return fmt.Errorf("failed to start playbook: %w", err)
	}

	code, err := run.Wait()
	if err != nil && code < 0 {
		return fmt.Errorf("playbook run failed: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("playbook exited with code %d (log: %s)", code, run.LogPath)
	}
	return nil
}

// listPlaybook prints the named playbook's summary without running it.
func listPlaybook(cfg *config.Config, playbook string) error {
	dir := cfg.Ansible.PlaybookDir
	infos, err := ansible.DiscoverPlaybooks(dir, filepath.Join(dir, "logs"))
	if err != nil {
		return fmt.Errorf("failed to scan playbooks: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(playbook), filepath.Ext(playbook))
	for _, info := range infos {
		if info.Name != name {
			continue
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTASKS\tROLES\tLAST RUN")
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			info.Name, info.TaskCount, orDash(strings.Join(info.Roles, ",")), lastRunSummary(info.LastExitCode))
		return w.Flush()
	}
	return fmt.Errorf("playbook %q not found in %s", name, dir)
}

func lastRunSummary(exitCode *int) string {
	switch {
	case exitCode == nil:
		return "never"
	case *exitCode == 0:
		return "ok"
	default:
		return fmt.Sprintf("failed (%d)", *exitCode)
	}
}
