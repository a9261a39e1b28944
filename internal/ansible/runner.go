package ansible

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/infraforge/infraforge/internal/util/retry"
)

// StreamKind distinguishes playbook output lines from run lifecycle notes.
type StreamKind string

const (
	// StreamOutput is a line of merged stdout/stderr from ansible-playbook.
	StreamOutput StreamKind = "output"
	// StreamStatus is a lifecycle note from the runner itself.
	StreamStatus StreamKind = "status"
)

// StreamEvent is one unit of run output delivered to the stream callback.
type StreamEvent struct {
	Kind StreamKind
	Line string
}

// Runner starts playbook runs. The zero value finds ansible-playbook on
// PATH and logs next to the playbooks.
type Runner struct {
	// Binary is the ansible-playbook executable. Empty means PATH lookup.
	Binary string

	// LogDir receives one log file per run. Empty disables file logging.
	LogDir string

	// HostKeyChecking is passed through to Ansible. Freshly provisioned
	// hosts have unknown keys, so deploy flows disable it.
	HostKeyChecking bool
}

// RunOptions describe a single playbook run.
type RunOptions struct {
	Playbook    string
	Hosts       []string
	Credentials *CredentialProfile
	ExtraArgs   []string
}

// Run is a live or finished playbook execution.
type Run struct {
	ID      string
	LogPath string

	cmd   *exec.Cmd
	stdin io.WriteCloser

	done     chan struct{}
	mu       sync.Mutex
	exitCode int
	waitErr  error
}

// Start launches ansible-playbook and returns immediately. Output lines are
// delivered to stream in order, stdout and stderr merged the way a terminal
// would show them. A missing binary is a fatal error: retrying cannot fix
// an absent tool.
func (r *Runner) Start(ctx context.Context, opts RunOptions, stream func(StreamEvent)) (*Run, error) {
	if stream == nil {
		stream = func(StreamEvent) {}
	}
	if len(opts.Hosts) == 0 {
		return nil, fmt.Errorf("no target hosts")
	}
	if _, err := os.Stat(opts.Playbook); err != nil {
		return nil, fmt.Errorf("playbook %s: %w", opts.Playbook, err)
	}

	binary := r.Binary
	if binary == "" {
		path, err := exec.LookPath("ansible-playbook")
		if err != nil {
			return nil, retry.Fatal(fmt.Errorf("ansible-playbook not found on PATH: %w", err))
		}
		binary = path
	}

	inventory, cleanInventory, err := WriteInventory(opts.Hosts)
	if err != nil {
		return nil, err
	}
	credArgs, cleanCreds, err := opts.Credentials.Args()
	if err != nil {
		cleanInventory()
		return nil, err
	}
	cleanup := func() {
		cleanInventory()
		cleanCreds()
	}

	args := []string{"-i", inventory}
	args = append(args, credArgs...)
	args = append(args, opts.ExtraArgs...)
	args = append(args, opts.Playbook)

	run := &Run{
		ID:   uuid.NewString(),
		done: make(chan struct{}),
	}

	var logFile *os.File
	if r.LogDir != "" {
		if err := os.MkdirAll(r.LogDir, 0o755); err != nil {
			cleanup()
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		base := strings.TrimSuffix(filepath.Base(opts.Playbook), filepath.Ext(opts.Playbook))
		run.LogPath = filepath.Join(r.LogDir, fmt.Sprintf("%s-%s.log", base, run.ID[:8]))
		logFile, err = os.Create(run.LogPath)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("creating run log: %w", err)
		}
		fmt.Fprintf(logFile, "# Playbook: %s\n# Hosts: %s\n# Started: %s\n",
			opts.Playbook, strings.Join(opts.Hosts, ", "), time.Now().Format(time.RFC3339))
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = append(os.Environ(),
		"ANSIBLE_FORCE_COLOR=false",
		fmt.Sprintf("ANSIBLE_HOST_KEY_CHECKING=%v", r.HostKeyChecking),
	)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cleanup()
		closeLog(logFile, nil)
		pr.Close()
		pw.Close()
		return nil, err
	}
	run.stdin = stdin
	run.cmd = cmd

	if err := cmd.Start(); err != nil {
		cleanup()
		closeLog(logFile, nil)
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("starting ansible-playbook: %w", err)
	}
	stream(StreamEvent{Kind: StreamStatus, Line: fmt.Sprintf("run %s started", run.ID[:8])})

	// reader drains the merged pipe until the process exits and pw closes
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if logFile != nil {
				fmt.Fprintln(logFile, line)
			}
			stream(StreamEvent{Kind: StreamOutput, Line: line})
		}
	}()

	go func() {
		waitErr := cmd.Wait()
		pw.Close()
		<-readerDone

		code := 0
		if waitErr != nil {
			code = -1
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			}
		}
		closeLog(logFile, &code)
		cleanup()

		run.mu.Lock()
		run.exitCode = code
		run.waitErr = waitErr
		run.mu.Unlock()

		stream(StreamEvent{Kind: StreamStatus, Line: fmt.Sprintf("run %s exited with code %d", run.ID[:8], code)})
		close(run.done)
	}()

	return run, nil
}

// closeLog writes the exit footer when known and closes the file.
func closeLog(f *os.File, exitCode *int) {
	if f == nil {
		return
	}
	if exitCode != nil {
		fmt.Fprintf(f, "# Exit code: %d\n", *exitCode)
	}
	f.Close()
}

// Send forwards a line to the playbook's stdin, for prompts like vault
// passwords or pause confirmations.
func (r *Run) Send(line string) error {
	select {
	case <-r.done:
		return fmt.Errorf("run has finished")
	default:
	}
	_, err := io.WriteString(r.stdin, line+"\n")
	return err
}

// Kill terminates the playbook process. Wait still runs to completion and
// performs cleanup.
func (r *Run) Kill() error {
	if r.cmd.Process == nil {
		return fmt.Errorf("run not started")
	}
	return r.cmd.Process.Kill()
}

// Wait blocks until the run finishes and returns its exit code. A negative
// code means the process died without one (killed, for instance).
func (r *Run) Wait() (int, error) {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode, r.waitErr
}

// Done is closed once the run has finished and its logs are flushed.
func (r *Run) Done() <-chan struct{} { return r.done }
