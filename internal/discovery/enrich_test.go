package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraforge/infraforge/internal/ipam"
)

type fakeDNS struct {
	names map[string]string
}

func (f *fakeDNS) ReverseLookup(_ context.Context, ip string) (string, error) {
	name, ok := f.names[ip]
	if !ok {
		return "", errors.New("no PTR record")
	}
	return name, nil
}

type fakeIPAM struct {
	addrs map[string]*ipam.Address
	err   error
}

func (f *fakeIPAM) SearchIP(_ context.Context, ip string) (*ipam.Address, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.addrs[ip], nil
}

type fakeScanner struct {
	guesses map[string]string
}

func (f *fakeScanner) Detect(_ context.Context, ip string) (string, error) {
	guess, ok := f.guesses[ip]
	if !ok {
		return "", errors.New("scan failed")
	}
	return guess, nil
}

func TestEnrichAllSources(t *testing.T) {
	t.Parallel()

	e := &Enricher{
		DNS:  &fakeDNS{names: map[string]string{"10.0.0.1": "web01.lab.local"}},
		IPAM: &fakeIPAM{addrs: map[string]*ipam.Address{"10.0.0.2": {Hostname: "db01", Description: "postgres"}}},
		OSScan: &fakeScanner{guesses: map[string]string{
			"10.0.0.1": "Linux 5.X",
			"10.0.0.2": "Linux 6.X",
		}},
	}

	records, err := e.Enrich(context.Background(), []string{"10.0.0.1", "10.0.0.2"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	web := records["10.0.0.1"]
	assert.Equal(t, "web01.lab.local", web.DNSHostname)
	assert.Equal(t, StateDone, web.DNSState)
	assert.Equal(t, StateDone, web.IPAMState)
	assert.Empty(t, web.IPAMHostname)
	assert.Equal(t, "Linux 5.X", web.OSGuess)
	assert.True(t, web.Complete())

	db := records["10.0.0.2"]
	assert.Equal(t, StateError, db.DNSState)
	assert.Equal(t, "db01", db.IPAMHostname)
	assert.Equal(t, "postgres", db.IPAMDescription)
	assert.Equal(t, "Linux 6.X", db.OSGuess)
	assert.True(t, db.Complete())
}

func TestEnrichNilSourcesAreSkipped(t *testing.T) {
	t.Parallel()

	e := &Enricher{DNS: &fakeDNS{names: map[string]string{"10.0.0.1": "web01"}}}
	records, err := e.Enrich(context.Background(), []string{"10.0.0.1"}, nil)
	require.NoError(t, err)

	rec := records["10.0.0.1"]
	assert.Equal(t, StateDone, rec.DNSState)
	assert.Equal(t, StateSkipped, rec.IPAMState)
	assert.Equal(t, StateSkipped, rec.NmapState)
	assert.True(t, rec.Complete())
}

func TestEnrichRejectsOversizedInput(t *testing.T) {
	t.Parallel()

	ips := make([]string, 0, MaxSweepHosts+1)
	for n := 0; n <= MaxSweepHosts; n++ {
		ips = append(ips, fmt.Sprintf("10.0.%d.%d", n/256, n%256))
	}

	e := &Enricher{DNS: &fakeDNS{}}
	_, err := e.Enrich(context.Background(), ips, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to enrich")
}

func TestEnrichCallbackSeesOrderedStates(t *testing.T) {
	t.Parallel()

	e := &Enricher{DNS: &fakeDNS{names: map[string]string{"10.0.0.1": "web01"}}}

	var mu sync.Mutex
	var states []SourceState
	_, err := e.Enrich(context.Background(), []string{"10.0.0.1"}, func(rec HostRecord) {
		mu.Lock()
		states = append(states, rec.DNSState)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, []SourceState{StateRunning, StateDone}, states)
}

func TestEnrichScanPhaseRunsAfterFastPhase(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []string

	e := &Enricher{
		DNS: reverseFunc(func(_ context.Context, ip string) (string, error) {
			mu.Lock()
			order = append(order, "dns")
			mu.Unlock()
			return "host-" + ip, nil
		}),
		OSScan: detectFunc(func(_ context.Context, _ string) (string, error) {
			mu.Lock()
			order = append(order, "scan")
			mu.Unlock()
			return "Linux", nil
		}),
	}

	_, err := e.Enrich(context.Background(), []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, nil)
	require.NoError(t, err)

	require.Len(t, order, 6)
	assert.Equal(t, []string{"dns", "dns", "dns"}, order[:3])
	assert.Equal(t, []string{"scan", "scan", "scan"}, order[3:])
}

func TestBestHostname(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dns-name", HostRecord{DNSHostname: "dns-name", IPAMHostname: "ipam-name"}.BestHostname())
	assert.Equal(t, "ipam-name", HostRecord{IPAMHostname: "ipam-name"}.BestHostname())
	assert.Empty(t, HostRecord{}.BestHostname())
}

type reverseFunc func(ctx context.Context, ip string) (string, error)

func (f reverseFunc) ReverseLookup(ctx context.Context, ip string) (string, error) { return f(ctx, ip) }

type detectFunc func(ctx context.Context, ip string) (string, error)

func (f detectFunc) Detect(ctx context.Context, ip string) (string, error) { return f(ctx, ip) }
