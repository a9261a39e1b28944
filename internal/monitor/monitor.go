// Package monitor follows Proxmox task activity on a node while a
// deployment is running, translating raw UPID task records and log lines
// into readable progress output.
package monitor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/infraforge/infraforge/internal/proxmox"
)

// taskTypeLabels maps Proxmox task types to the labels shown to the user.
// Unknown types fall back to the raw type string.
var taskTypeLabels = map[string]string{
	"qmclone":     "Cloning VM",
	"qmcreate":    "Creating VM",
	"qmconfig":    "Configuring VM",
	"qmstart":     "Starting VM",
	"qmstop":      "Stopping VM",
	"qmresize":    "Resizing disk",
	"qmmove":      "Moving disk",
	"qmmigrate":   "Migrating VM",
	"vzcreate":    "Creating container",
	"vzstart":     "Starting container",
	"vzstop":      "Stopping container",
	"vzdump":      "Backing up",
	"vzrestore":   "Restoring from backup",
	"download":    "Downloading",
	"imgcopy":     "Copying image",
	"resize":      "Resizing disk",
	"move_volume": "Moving volume",
	"pull":        "Downloading file",
}

// Label returns the human label for a Proxmox task type.
func Label(taskType string) string {
	if label, ok := taskTypeLabels[taskType]; ok {
		return label
	}
	return taskType
}

var percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// TrackedTask is the monitor's view of one Proxmox task.
type TrackedTask struct {
	UPID       string
	Type       string
	ID         string
	Label      string
	Progress   float64
	Done       bool
	OK         bool
	ExitStatus string

	lastEmitted float64
	logOffset   int
}

// name is the task's display form: the type label plus the target guest ID
// when the task has one.
func (t *TrackedTask) name() string {
	if t.ID != "" {
		return fmt.Sprintf("%s (%s)", t.Label, t.ID)
	}
	return t.Label
}

const (
	defaultInterval = 2 * time.Second
	stopJoinTimeout = 5 * time.Second

	// progressStep is the minimum percentage gain between two progress
	// lines for the same task, to keep chatty tasks from flooding output.
	progressStep = 5.0

	taskListLimit = 20
	taskLogLimit  = 50
)

// Monitor polls a node's task list and logs while active. Discovery is
// anchored at the baseline timestamp taken at Start, so tasks that predate
// the run are never reported.
type Monitor struct {
	client proxmox.Client
	node   string
	logf   func(format string, args ...any)

	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	tasks    map[string]*TrackedTask
	baseline int64

	stopCh chan struct{}
	done   chan struct{}
}

// New returns a Monitor for a node. logf receives progress lines and must
// not be nil.
func New(client proxmox.Client, node string, logf func(format string, args ...any)) *Monitor {
	return &Monitor{
		client:   client,
		node:     node,
		logf:     logf,
		interval: defaultInterval,
		now:      time.Now,
		tasks:    make(map[string]*TrackedTask),
	}
}

// Start begins polling in a background goroutine. It is an error to start
// a monitor twice.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		return
	}
	m.baseline = m.now().Unix()
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})

	go m.loop(ctx)
}

// Stop halts polling, waits briefly for the loop to exit, then performs one
// final poll so task outcomes that landed during shutdown are still
// reported. Tasks that never reached a terminal status are finalized as
// unknown. Stop is safe to call more than once.
func (m *Monitor) Stop(ctx context.Context) {
	m.mu.Lock()
	if m.stopCh == nil {
		m.mu.Unlock()
		return
	}
	stopCh, done := m.stopCh, m.done
	m.stopCh = nil
	m.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
	}

	m.pollOnce(ctx)
	m.finalizeRemaining()
}

// Tasks returns a snapshot of every task seen so far.
func (m *Monitor) Tasks() []TrackedTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TrackedTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, *t)
	}
	return out
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.mu.Lock()
	stopCh := m.stopCh
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

// pollOnce discovers new tasks since the baseline and refreshes the status
// and log of every task not yet finalized.
func (m *Monitor) pollOnce(ctx context.Context) {
	pollsTotal.Inc()

	m.mu.Lock()
	baseline := m.baseline
	m.mu.Unlock()

	tasks, err := m.client.NodeTasks(ctx, m.node, baseline, taskListLimit)
	if err == nil {
		for _, task := range tasks {
			m.discover(task)
		}
	}

	for _, upid := range m.activeUPIDs() {
		m.refresh(ctx, upid)
	}
}

func (m *Monitor) discover(task proxmox.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.tasks[task.UPID]; seen {
		return
	}
	tracked := &TrackedTask{
		UPID:  task.UPID,
		Type:  task.Type,
		ID:    task.ID,
		Label: Label(task.Type),
	}
	m.tasks[task.UPID] = tracked
	tasksDiscovered.Inc()

	m.logf("%s", tracked.name())
}

func (m *Monitor) activeUPIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for upid, t := range m.tasks {
		if !t.Done {
			out = append(out, upid)
		}
	}
	return out
}

// refresh pulls new log lines and the current status for one task,
// emitting progress at progressStep granularity and finalizing the task
// exactly once when it stops.
func (m *Monitor) refresh(ctx context.Context, upid string) {
	m.mu.Lock()
	t, ok := m.tasks[upid]
	if !ok || t.Done {
		m.mu.Unlock()
		return
	}
	offset := t.logOffset
	m.mu.Unlock()

	lines, err := m.client.TaskLog(ctx, m.node, upid, offset, taskLogLimit)
	if err == nil && len(lines) > 0 {
		m.consumeLog(upid, lines)
	}

	status, err := m.client.TaskStatus(ctx, m.node, upid)
	if err != nil || !status.Stopped() {
		return
	}
	m.finalize(upid, status.OK(), status.ExitStatus)
}

func (m *Monitor) consumeLog(upid string, lines []proxmox.TaskLogLine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[upid]
	if !ok || t.Done {
		return
	}

	for _, line := range lines {
		if line.N > t.logOffset {
			t.logOffset = line.N
		}
		match := percentRe.FindStringSubmatch(line.T)
		if match == nil {
			continue
		}
		pct, err := strconv.ParseFloat(match[1], 64)
		if err != nil || pct > 100 {
			continue
		}
		// progress only moves forward
		if pct > t.Progress {
			t.Progress = pct
		}
	}

	if t.Progress-t.lastEmitted >= progressStep {
		t.lastEmitted = t.Progress
		m.logf("%s: %.0f%%", t.Label, t.Progress)
	}
}

func (m *Monitor) finalize(upid string, ok bool, exitStatus string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, present := m.tasks[upid]
	if !present || t.Done {
		return
	}
	t.Done = true
	t.OK = ok
	t.ExitStatus = exitStatus
	if ok {
		t.Progress = 100
		tasksFinalized.WithLabelValues("ok").Inc()
		m.logf("%s: done", t.name())
	} else {
		tasksFinalized.WithLabelValues("failed").Inc()
		m.logf("%s: failed: %s", t.name(), exitStatus)
	}
}

// finalizeRemaining marks every still-active task as finished with an
// unknown outcome. Runs only during Stop, after the final poll.
func (m *Monitor) finalizeRemaining() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		if t.Done {
			continue
		}
		t.Done = true
		t.ExitStatus = "unknown"
		tasksFinalized.WithLabelValues("unknown").Inc()
		m.logf("%s: still running at shutdown", t.name())
	}
}
