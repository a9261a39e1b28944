package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/infraforge/infraforge/internal/ipam"
	"github.com/infraforge/infraforge/internal/util/async"
)

// SourceState tracks one enrichment source's progress for a host.
type SourceState string

const (
	StatePending SourceState = "pending"
	StateRunning SourceState = "running"
	StateDone    SourceState = "done"
	StateError   SourceState = "error"
	StateSkipped SourceState = "skipped"
)

// Terminal reports whether the source has finished, successfully or not.
func (s SourceState) Terminal() bool {
	return s == StateDone || s == StateError || s == StateSkipped
}

// HostRecord is the accumulated enrichment data for one address.
type HostRecord struct {
	IP string

	DNSHostname     string
	IPAMHostname    string
	IPAMDescription string
	OSGuess         string

	DNSState  SourceState
	IPAMState SourceState
	NmapState SourceState
}

// BestHostname prefers the DNS name, falls back to the IPAM name, and is
// empty when neither source produced one.
func (r HostRecord) BestHostname() string {
	if r.DNSHostname != "" {
		return r.DNSHostname
	}
	return r.IPAMHostname
}

// Complete reports whether all enrichment sources have reached a terminal
// state for this host.
func (r HostRecord) Complete() bool {
	return r.DNSState.Terminal() && r.IPAMState.Terminal() && r.NmapState.Terminal()
}

// ReverseLookuper resolves an address to a hostname.
type ReverseLookuper interface {
	ReverseLookup(ctx context.Context, ip string) (string, error)
}

// AddressSearcher looks an address up in an IPAM system.
type AddressSearcher interface {
	SearchIP(ctx context.Context, ip string) (*ipam.Address, error)
}

// OSDetector guesses the operating system running at an address.
type OSDetector interface {
	Detect(ctx context.Context, ip string) (string, error)
}

// EnrichCallback receives a snapshot of a host's record after every state
// change. Snapshots are copies; callbacks never run concurrently.
type EnrichCallback func(rec HostRecord)

// Enricher runs enrichment sources against a set of hosts. A nil source is
// skipped and the matching state set to StateSkipped. The cheap sources
// (DNS, IPAM) run first in a wide pool; OS scans run afterwards in a
// narrow one since each scan holds a raw socket and tens of seconds.
type Enricher struct {
	DNS    ReverseLookuper
	IPAM   AddressSearcher
	OSScan OSDetector

	// FastWorkers bounds the DNS/IPAM pool. Zero means min(20, 2n).
	FastWorkers int
	// ScanWorkers bounds the OS scan pool. Zero means min(5, n).
	ScanWorkers int

	mu sync.Mutex
}

// Enrich runs all configured sources for every address and returns the
// final records keyed by IP. The callback may be nil.
func (e *Enricher) Enrich(ctx context.Context, ips []string, cb EnrichCallback) (map[string]*HostRecord, error) {
	if len(ips) > MaxSweepHosts {
		return nil, fmt.Errorf("refusing to enrich %d addresses (limit %d)", len(ips), MaxSweepHosts)
	}

	records := make(map[string]*HostRecord, len(ips))
	for _, ip := range ips {
		rec := &HostRecord{
			IP:        ip,
			DNSState:  StatePending,
			IPAMState: StatePending,
			NmapState: StatePending,
		}
		if e.DNS == nil {
			rec.DNSState = StateSkipped
		}
		if e.IPAM == nil {
			rec.IPAMState = StateSkipped
		}
		if e.OSScan == nil {
			rec.NmapState = StateSkipped
		}
		records[ip] = rec
	}
	if len(ips) == 0 {
		return records, nil
	}

	var fast []async.Task
	for _, ip := range ips {
		ip := ip
		if e.DNS != nil {
			fast = append(fast, async.Task{
				Name: "dns " + ip,
				Func: func(ctx context.Context) error {
					e.transition(records[ip], cb, func(r *HostRecord) { r.DNSState = StateRunning })
					name, err := e.DNS.ReverseLookup(ctx, ip)
					e.transition(records[ip], cb, func(r *HostRecord) {
						if err != nil {
							r.DNSState = StateError
							return
						}
						r.DNSHostname = name
						r.DNSState = StateDone
					})
					return nil
				},
			})
		}
		if e.IPAM != nil {
			fast = append(fast, async.Task{
				Name: "ipam " + ip,
				Func: func(ctx context.Context) error {
					e.transition(records[ip], cb, func(r *HostRecord) { r.IPAMState = StateRunning })
					addr, err := e.IPAM.SearchIP(ctx, ip)
					e.transition(records[ip], cb, func(r *HostRecord) {
						if err != nil {
							r.IPAMState = StateError
							return
						}
						if addr != nil {
							r.IPAMHostname = addr.Hostname
							r.IPAMDescription = addr.Description
						}
						r.IPAMState = StateDone
					})
					return nil
				},
			})
		}
	}

	if len(fast) > 0 {
		workers := e.FastWorkers
		if workers <= 0 {
			workers = min(20, 2*len(ips))
		}
		if err := async.RunParallel(ctx, fast, workers); err != nil {
			return records, err
		}
	}

	if e.OSScan != nil {
		scans := make([]async.Task, 0, len(ips))
		for _, ip := range ips {
			ip := ip
			scans = append(scans, async.Task{
				Name: "osscan " + ip,
				Func: func(ctx context.Context) error {
					e.transition(records[ip], cb, func(r *HostRecord) { r.NmapState = StateRunning })
					guess, err := e.OSScan.Detect(ctx, ip)
					e.transition(records[ip], cb, func(r *HostRecord) {
						if err != nil {
							r.NmapState = StateError
							return
						}
						r.OSGuess = guess
						r.NmapState = StateDone
					})
					return nil
				},
			})
		}

		workers := e.ScanWorkers
		if workers <= 0 {
			workers = min(5, len(ips))
		}
		if err := async.RunParallel(ctx, scans, workers); err != nil {
			return records, err
		}
	}

	return records, nil
}

// transition mutates a record and delivers a snapshot under the same lock,
// so callbacks observe states in the order they happened.
func (e *Enricher) transition(rec *HostRecord, cb EnrichCallback, mutate func(*HostRecord)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mutate(rec)
	if cb != nil {
		cb(*rec)
	}
}
