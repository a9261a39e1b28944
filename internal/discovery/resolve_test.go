package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTargetsMixedInput(t *testing.T) {
	t.Parallel()

	lookup := func(_ context.Context, host string) ([]string, error) {
		switch host {
		case "web01.lab.local":
			return []string{"10.0.0.5"}, nil
		case "db01":
			return nil, errors.New("NXDOMAIN")
		case "db01.lab.local":
			return []string{"fe80::1", "10.0.0.6"}, nil
		default:
			return nil, errors.New("NXDOMAIN")
		}
	}

	ips, resolved, unresolved := ResolveTargets(
		context.Background(),
		"web01.lab.local, db01, ghost, 10.0.0.1-2",
		lookup,
		[]string{"lab.local."},
	)

	assert.Equal(t, []string{"10.0.0.5", "10.0.0.6", "10.0.0.1", "10.0.0.2"}, ips)
	assert.Equal(t, []string{"ghost"}, unresolved)

	assert.Equal(t, "web01.lab.local", resolved["10.0.0.5"])
	assert.Equal(t, "db01", resolved["10.0.0.6"])
	assert.Empty(t, resolved["10.0.0.1"])
}

func TestResolveTargetsHostnameWinsOverRange(t *testing.T) {
	t.Parallel()

	lookup := func(_ context.Context, host string) ([]string, error) {
		if host == "web01" {
			return []string{"10.0.0.1"}, nil
		}
		return nil, errors.New("NXDOMAIN")
	}

	ips, resolved, unresolved := ResolveTargets(context.Background(), "web01, 10.0.0.1-2", lookup, nil)
	require.Empty(t, unresolved)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, ips)
	assert.Equal(t, "web01", resolved["10.0.0.1"])
}

func TestResolveTargetsQualifiedNameSkipsZones(t *testing.T) {
	t.Parallel()

	var queried []string
	lookup := func(_ context.Context, host string) ([]string, error) {
		queried = append(queried, host)
		return nil, errors.New("NXDOMAIN")
	}

	_, _, unresolved := ResolveTargets(context.Background(), "web01.example.com", lookup, []string{"lab.local"})
	assert.Equal(t, []string{"web01.example.com"}, queried)
	assert.Equal(t, []string{"web01.example.com"}, unresolved)
}

func TestIsAddressToken(t *testing.T) {
	t.Parallel()

	assert.True(t, isAddressToken("10.0.0.1"))
	assert.True(t, isAddressToken("10.0.0.0/24"))
	assert.True(t, isAddressToken("10.0.0.1-9"))
	assert.False(t, isAddressToken("web01"))
	assert.False(t, isAddressToken("web-east"))
	assert.False(t, isAddressToken("cluster/blue"))
}
