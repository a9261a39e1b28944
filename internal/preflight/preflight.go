// Package preflight validates that a Proxmox cluster can satisfy a
// deployment spec before any Terraform runs, and remediates the one
// failure it can fix on its own: a missing container template.
package preflight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/proxmox"
)

// CheckStatus is the outcome of a single pre-flight check.
type CheckStatus string

const (
	StatusPassed CheckStatus = "passed"
	StatusFailed CheckStatus = "failed"
	StatusFixed  CheckStatus = "fixed"
)

// CheckResult records one check's outcome. Fix carries a remediation hint
// when the check failed and the validator could not repair it.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string
}

// Result is a full pre-flight run. Passed is true only when every check
// passed or was fixed.
type Result struct {
	Checks []CheckResult
	Passed bool
}

// Failures returns the checks that ended in failure.
func (r Result) Failures() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if c.Status == StatusFailed {
			out = append(out, c)
		}
	}
	return out
}

// Validator runs the pre-flight checks for a deployment spec.
type Validator struct {
	Client proxmox.Client

	// PollInterval paces template download polling. Zero means 2s.
	PollInterval time.Duration
	// DownloadTimeout bounds a template auto-download. Zero means 120s.
	DownloadTimeout time.Duration

	// LogFunc receives progress lines. Nil discards them.
	LogFunc func(format string, args ...any)
}

func (v *Validator) logf(format string, args ...any) {
	if v.LogFunc != nil {
		v.LogFunc(format, args...)
	}
}

// Run executes the checks in order: API connectivity, target node, template
// availability (containers only, with auto-download), and storage capacity.
// A connectivity failure short-circuits the run since nothing after it can
// produce a meaningful answer.
func (v *Validator) Run(ctx context.Context, spec *config.DeploymentSpec) Result {
	var result Result

	conn := v.checkConnectivity(ctx)
	result.Checks = append(result.Checks, conn)
	if conn.Status == StatusFailed {
		return result
	}

	result.Checks = append(result.Checks, v.checkNode(ctx, spec.Node))

	if spec.Kind == config.KindContainer {
		result.Checks = append(result.Checks, v.checkTemplate(ctx, spec))
	}

	result.Checks = append(result.Checks, v.checkStorage(ctx, spec))

	result.Passed = true
	for _, c := range result.Checks {
		if c.Status == StatusFailed {
			result.Passed = false
			break
		}
	}
	return result
}

func (v *Validator) checkConnectivity(ctx context.Context) CheckResult {
	check := CheckResult{Name: "API connectivity"}

	version, err := v.Client.Version(ctx)
	if err != nil {
		check.Status = StatusFailed
		check.Message = fmt.Sprintf("cannot reach Proxmox API: %v", err)
		check.Fix = "Fix: verify the host, port, and credentials in the proxmox section of the config"
		return check
	}

	check.Status = StatusPassed
	check.Message = fmt.Sprintf("connected to Proxmox VE %s", version)
	return check
}

func (v *Validator) checkNode(ctx context.Context, node string) CheckResult {
	check := CheckResult{Name: "target node"}

	nodes, err := v.Client.Nodes(ctx)
	if err != nil {
		check.Status = StatusFailed
		check.Message = fmt.Sprintf("cannot list cluster nodes: %v", err)
		check.Fix = "Fix: check API token permissions (Sys.Audit on /nodes)"
		return check
	}

	var available []string
	for _, n := range nodes {
		available = append(available, n.Name)
		if n.Name != node {
			continue
		}
		if !n.Online() {
			check.Status = StatusFailed
			check.Message = fmt.Sprintf("node %q exists but is offline", node)
			check.Fix = "Fix: bring the node back online or target a different node"
			return check
		}
		check.Status = StatusPassed
		check.Message = fmt.Sprintf("node %q is online", node)
		return check
	}

	check.Status = StatusFailed
	check.Message = fmt.Sprintf("node %q not found in cluster (available: %s)", node, strings.Join(available, ", "))
	check.Fix = "Fix: set node to one of the available cluster nodes"
	return check
}

// checkTemplate verifies the container template volume exists on the target
// node, downloading it from the appliance catalog when it does not.
func (v *Validator) checkTemplate(ctx context.Context, spec *config.DeploymentSpec) CheckResult {
	check := CheckResult{Name: "container template"}

	volID := spec.TemplateVolID
	storage, filename, ok := splitVolID(volID)
	if !ok {
		check.Status = StatusFailed
		check.Message = fmt.Sprintf("template %q is not a storage:volume reference", volID)
		check.Fix = "Fix: use the storage:vztmpl/name.tar.zst form, e.g. local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst"
		return check
	}

	volumes, err := v.Client.StorageContent(ctx, spec.Node, storage)
	if err != nil {
		check.Status = StatusFailed
		check.Message = fmt.Sprintf("cannot list storage %q on node %q: %v", storage, spec.Node, err)
		check.Fix = "Fix: verify the storage exists and the token has Datastore.Audit on it"
		return check
	}
	for _, vol := range volumes {
		if vol.VolID == volID {
			check.Status = StatusPassed
			check.Message = fmt.Sprintf("template %s present on %s", volID, spec.Node)
			return check
		}
	}

	v.logf("template %s missing, attempting download", volID)
	if err := v.downloadTemplate(ctx, spec.Node, storage, filename); err != nil {
		check.Status = StatusFailed
		check.Message = fmt.Sprintf("template %s missing and auto-download failed: %v", volID, err)
		check.Fix = fmt.Sprintf("Fix: download it manually with `pveam download %s %s`", storage, templateName(filename))
		return check
	}

	check.Status = StatusFixed
	check.Message = fmt.Sprintf("template %s downloaded to %s", volID, spec.Node)
	return check
}

// downloadTemplate starts an appliance download for the template and polls
// the resulting task until it stops or the timeout lapses.
func (v *Validator) downloadTemplate(ctx context.Context, node, storage, filename string) error {
	wanted := templateName(filename)

	catalog, err := v.Client.ApplianceCatalog(ctx, node)
	if err != nil {
		return fmt.Errorf("listing appliance catalog: %w", err)
	}
	var match *proxmox.Appliance
	for i, app := range catalog {
		if app.Template == wanted {
			match = &catalog[i]
			break
		}
	}
	if match == nil {
		return fmt.Errorf("template %q not in the appliance catalog", wanted)
	}

	upid, err := v.Client.DownloadAppliance(ctx, node, storage, match.Template)
	if err != nil {
		return fmt.Errorf("starting download: %w", err)
	}
	v.logf("download started, task %s", upid)

	interval := v.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := v.DownloadTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("download task %s did not finish within %s", upid, timeout)
		case <-ticker.C:
			status, err := v.Client.TaskStatus(ctx, node, upid)
			if err != nil {
				return fmt.Errorf("polling download task: %w", err)
			}
			if !status.Stopped() {
				continue
			}
			if !status.OK() {
				return fmt.Errorf("download task failed: %s", status.ExitStatus)
			}
			return nil
		}
	}
}

func (v *Validator) checkStorage(ctx context.Context, spec *config.DeploymentSpec) CheckResult {
	check := CheckResult{Name: "storage capacity"}

	stores, err := v.Client.NodeStorage(ctx, spec.Node)
	if err != nil {
		check.Status = StatusFailed
		check.Message = fmt.Sprintf("cannot list storage on node %q: %v", spec.Node, err)
		check.Fix = "Fix: check API token permissions (Datastore.Audit)"
		return check
	}

	for _, s := range stores {
		if s.Name != spec.Storage {
			continue
		}
		avail := s.AvailGB()
		if avail < float64(spec.DiskGB) {
			check.Status = StatusFailed
			check.Message = fmt.Sprintf("storage %q has %.1f GiB free, spec needs %d GiB", spec.Storage, avail, spec.DiskGB)
			check.Fix = "Fix: free up space, shrink the disk size, or pick another storage"
			return check
		}
		check.Status = StatusPassed
		check.Message = fmt.Sprintf("storage %q has %.1f GiB free", spec.Storage, avail)
		return check
	}

	check.Status = StatusFailed
	check.Message = fmt.Sprintf("storage %q not found on node %q", spec.Storage, spec.Node)
	check.Fix = "Fix: set storage to a datastore available on the target node"
	return check
}

// splitVolID splits "storage:vztmpl/name.tar.zst" into its storage and
// volume path halves.
func splitVolID(volID string) (storage, filename string, ok bool) {
	storage, filename, ok = strings.Cut(volID, ":")
	return storage, filename, ok && storage != "" && filename != ""
}

// templateName strips the content-type prefix from a volume path, leaving
// the appliance file name the catalog uses.
func templateName(filename string) string {
	if _, name, ok := strings.Cut(filename, "/"); ok {
		return name
	}
	return filename
}
