package discovery

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/infraforge/infraforge/internal/util/async"
)

const (
	// DefaultSweepWorkers is the concurrent probe limit of a sweep.
	DefaultSweepWorkers = 50

	// MaxSweepHosts caps the size of a single sweep. Larger inputs are
	// rejected up front rather than queued for hours.
	MaxSweepHosts = 1024

	probeTimeout = 5 * time.Second
)

// ProbeFunc reports whether a single address answered a liveness probe.
type ProbeFunc func(ctx context.Context, ip string) bool

// SweepCallback receives each probe result as it completes. Results arrive
// in completion order, not input order, and never concurrently.
type SweepCallback func(ip string, alive bool)

// Sweeper probes a set of addresses concurrently.
type Sweeper struct {
	// Workers bounds concurrent probes. Zero means DefaultSweepWorkers.
	Workers int

	// Probe overrides the liveness check. Nil means a single ICMP echo
	// via the system ping binary.
	Probe ProbeFunc
}

// PingSweep probes ips with the default ping-based Sweeper. The callback
// may be nil.
func PingSweep(ctx context.Context, ips []string, cb SweepCallback) (alive, dead []string, err error) {
	return (&Sweeper{}).Sweep(ctx, ips, cb)
}

// Sweep probes every address and partitions the input into alive and dead,
// each sorted numerically. Every input address lands in exactly one of the
// two slices; repeated addresses are probed once.
func (s *Sweeper) Sweep(ctx context.Context, ips []string, cb SweepCallback) (alive, dead []string, err error) {
	ips = dedupe(ips)
	if len(ips) > MaxSweepHosts {
		return nil, nil, fmt.Errorf("refusing to sweep %d addresses (limit %d)", len(ips), MaxSweepHosts)
	}
	if len(ips) == 0 {
		return nil, nil, nil
	}

	probe := s.Probe
	if probe == nil {
		probe = pingProbe
	}
	workers := s.Workers
	if workers <= 0 {
		workers = DefaultSweepWorkers
	}

	var mu sync.Mutex
	tasks := make([]async.Task, len(ips))
	for i, ip := range ips {
		ip := ip
		tasks[i] = async.Task{
			Name: ip,
			Func: func(ctx context.Context) error {
				ok := probe(ctx, ip)

				mu.Lock()
				if ok {
					alive = append(alive, ip)
				} else {
					dead = append(dead, ip)
				}
				if cb != nil {
					cb(ip, ok)
				}
				mu.Unlock()
				return nil
			},
		}
	}

	if err := async.RunParallel(ctx, tasks, workers); err != nil {
		return nil, nil, err
	}

	sortByIP(alive)
	sortByIP(dead)
	return alive, dead, nil
}

// dedupe drops repeated addresses, keeping first-seen order. Callers can
// hand in overlapping ranges; probing an address twice would land it in
// both result slices.
func dedupe(ips []string) []string {
	seen := make(map[string]struct{}, len(ips))
	result := make([]string, 0, len(ips))
	for _, ip := range ips {
		if _, ok := seen[ip]; !ok {
			seen[ip] = struct{}{}
			result = append(result, ip)
		}
	}
	return result
}

// pingProbe sends one ICMP echo with a one second reply window. The outer
// context bound covers slow resolver or interface stalls.
func pingProbe(ctx context.Context, ip string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	return exec.CommandContext(ctx, "ping", "-c", "1", "-W", "1", ip).Run() == nil
}
