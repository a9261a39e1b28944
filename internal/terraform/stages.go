package terraform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Stage is one step of the Terraform lifecycle.
type Stage string

const (
	StageMirror Stage = "mirror"
	StageInit   Stage = "init"
	StagePlan   Stage = "plan"
	StageApply  Stage = "apply"
)

const (
	mirrorTimeout = 2 * time.Minute
	initTimeout   = 2 * time.Minute
	planTimeout   = 2 * time.Minute
	applyTimeout  = 5 * time.Minute
)

// mirrorMarker is dropped into the plugin directory after a successful
// provider mirror so later deployments skip the network round trip.
const mirrorMarker = ".mirrored"

// StageError is a failed lifecycle stage, carrying the command output and
// its classification against known Proxmox failure shapes.
type StageError struct {
	Stage          Stage
	Output         string
	Classification Classification
	Err            error
}

func (e *StageError) Error() string {
	if e.Classification.Known {
		return fmt.Sprintf("terraform %s failed: %s", e.Stage, e.Classification.Title)
	}
	return fmt.Sprintf("terraform %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageResult records one executed stage.
type StageResult struct {
	Stage    Stage
	Output   string
	Duration time.Duration
}

type commandFunc func(ctx context.Context, dir string, args ...string) (string, error)

// Deploy runs the full lifecycle for a deployment directory: provider
// mirror, init, plan, apply. It stops at the first failure and returns the
// results of the stages that ran, the failing stage included.
func (m *Manager) Deploy(ctx context.Context, dir string) ([]StageResult, error) {
	var results []StageResult

	for _, stage := range []Stage{StageMirror, StageInit, StagePlan, StageApply} {
		res, err := m.runStage(ctx, stage, dir)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (m *Manager) runStage(ctx context.Context, stage Stage, dir string) (StageResult, error) {
	var (
		args    []string
		timeout time.Duration
	)

	switch stage {
	case StageMirror:
		if m.mirrored() {
			m.logf("provider mirror present, skipping")
			return StageResult{Stage: stage}, nil
		}
		args = []string{"providers", "mirror", m.PluginsDir()}
		timeout = mirrorTimeout
	case StageInit:
		args = []string{"init", "-input=false"}
		if m.mirrored() {
			args = append(args, "-plugin-dir", m.PluginsDir())
		}
		timeout = initTimeout
	case StagePlan:
		args = []string{"plan", "-input=false"}
		timeout = planTimeout
	case StageApply:
		args = []string{"apply", "-auto-approve", "-input=false"}
		timeout = applyTimeout
	default:
		return StageResult{}, fmt.Errorf("unknown stage %q", stage)
	}

	m.logf("terraform %s (%s)", stage, dir)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run := m.run
	if run == nil {
		run = runTerraform
	}
	output, err := run(ctx, dir, args...)

	result := StageResult{Stage: stage, Output: output, Duration: time.Since(start)}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		return result, &StageError{
			Stage:          stage,
			Output:         output,
			Classification: Classify(output),
			Err:            err,
		}
	}

	if stage == StageMirror {
		if err := m.markMirrored(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// mirrored reports whether a completed provider mirror exists.
func (m *Manager) mirrored() bool {
	_, err := os.Stat(filepath.Join(m.PluginsDir(), mirrorMarker))
	return err == nil
}

func (m *Manager) markMirrored() error {
	if err := os.WriteFile(filepath.Join(m.PluginsDir(), mirrorMarker), nil, 0o644); err != nil {
		return fmt.Errorf("marking provider mirror complete: %w", err)
	}
	return nil
}

func runTerraform(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "terraform", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TF_IN_AUTOMATION=1")
	out, err := cmd.CombinedOutput()
	return string(out), err
}
