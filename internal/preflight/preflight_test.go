package preflight

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/proxmox"
)

func containerSpec() *config.DeploymentSpec {
	return &config.DeploymentSpec{
		Name:          "web01",
		Node:          "pve1",
		Kind:          config.KindContainer,
		DiskGB:        10,
		Storage:       "local-lvm",
		TemplateVolID: "local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst",
	}
}

func healthyClient() *proxmox.MockClient {
	return &proxmox.MockClient{
		VersionFunc: func(context.Context) (string, error) { return "8.2.4", nil },
		NodesFunc: func(context.Context) ([]proxmox.Node, error) {
			return []proxmox.Node{{Name: "pve1", Status: "online"}, {Name: "pve2", Status: "online"}}, nil
		},
		StorageContentFunc: func(_ context.Context, _, _ string) ([]proxmox.Volume, error) {
			return []proxmox.Volume{{VolID: "local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst"}}, nil
		},
		NodeStorageFunc: func(_ context.Context, _ string) ([]proxmox.Storage, error) {
			return []proxmox.Storage{{Name: "local-lvm", Avail: 100 << 30}}, nil
		},
	}
}

func TestRunAllChecksPass(t *testing.T) {
	t.Parallel()

	v := &Validator{Client: healthyClient()}
	result := v.Run(context.Background(), containerSpec())

	require.True(t, result.Passed)
	require.Len(t, result.Checks, 4)
	for _, c := range result.Checks {
		assert.Equal(t, StatusPassed, c.Status, c.Name)
	}
	assert.Empty(t, result.Failures())
}

func TestRunVMSkipsTemplateCheck(t *testing.T) {
	t.Parallel()

	spec := containerSpec()
	spec.Kind = config.KindVM
	spec.TemplateVolID = ""

	v := &Validator{Client: healthyClient()}
	result := v.Run(context.Background(), spec)

	require.True(t, result.Passed)
	require.Len(t, result.Checks, 3)
	for _, c := range result.Checks {
		assert.NotEqual(t, "container template", c.Name)
	}
}

func TestRunConnectivityFailureShortCircuits(t *testing.T) {
	t.Parallel()

	client := healthyClient()
	client.VersionFunc = func(context.Context) (string, error) {
		return "", errors.New("connection refused")
	}

	v := &Validator{Client: client}
	result := v.Run(context.Background(), containerSpec())

	assert.False(t, result.Passed)
	require.Len(t, result.Checks, 1)
	assert.Equal(t, StatusFailed, result.Checks[0].Status)
	assert.Contains(t, result.Checks[0].Fix, "Fix:")
}

func TestRunNodeMissingListsAvailable(t *testing.T) {
	t.Parallel()

	spec := containerSpec()
	spec.Node = "pve9"

	v := &Validator{Client: healthyClient()}
	result := v.Run(context.Background(), spec)

	assert.False(t, result.Passed)
	failures := result.Failures()
	require.NotEmpty(t, failures)
	assert.Contains(t, failures[0].Message, `node "pve9" not found`)
	assert.Contains(t, failures[0].Message, "pve1, pve2")
}

func TestRunNodeOffline(t *testing.T) {
	t.Parallel()

	client := healthyClient()
	client.NodesFunc = func(context.Context) ([]proxmox.Node, error) {
		return []proxmox.Node{{Name: "pve1", Status: "offline"}}, nil
	}

	v := &Validator{Client: client}
	result := v.Run(context.Background(), containerSpec())

	assert.False(t, result.Passed)
	require.NotEmpty(t, result.Failures())
	assert.Contains(t, result.Failures()[0].Message, "offline")
}

func TestRunStorageTooSmall(t *testing.T) {
	t.Parallel()

	client := healthyClient()
	client.NodeStorageFunc = func(_ context.Context, _ string) ([]proxmox.Storage, error) {
		return []proxmox.Storage{{Name: "local-lvm", Avail: 5 << 30}}, nil
	}

	v := &Validator{Client: client}
	result := v.Run(context.Background(), containerSpec())

	assert.False(t, result.Passed)
	require.NotEmpty(t, result.Failures())
	assert.Contains(t, result.Failures()[0].Message, "spec needs 10 GiB")
}

func TestTemplateAutoDownloadSucceeds(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	client := healthyClient()
	client.StorageContentFunc = func(_ context.Context, _, _ string) ([]proxmox.Volume, error) {
		return nil, nil
	}
	client.ApplianceCatalogFunc = func(_ context.Context, _ string) ([]proxmox.Appliance, error) {
		return []proxmox.Appliance{
			{Template: "alpine-3.20-default_20240908_amd64.tar.xz"},
			{Template: "debian-12-standard_12.7-1_amd64.tar.zst"},
		}, nil
	}
	client.DownloadApplianceFunc = func(_ context.Context, _, _, _ string) (string, error) {
		return "UPID:pve1:0001:dl", nil
	}
	client.TaskStatusFunc = func(_ context.Context, _, _ string) (proxmox.TaskStatus, error) {
		if polls.Add(1) < 3 {
			return proxmox.TaskStatus{Status: "running"}, nil
		}
		return proxmox.TaskStatus{Status: "stopped", ExitStatus: "OK"}, nil
	}

	v := &Validator{Client: client, PollInterval: time.Millisecond}
	result := v.Run(context.Background(), containerSpec())

	require.True(t, result.Passed)
	var tmpl *CheckResult
	for i := range result.Checks {
		if result.Checks[i].Name == "container template" {
			tmpl = &result.Checks[i]
		}
	}
	require.NotNil(t, tmpl)
	assert.Equal(t, StatusFixed, tmpl.Status)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestTemplateAutoDownloadNotInCatalog(t *testing.T) {
	t.Parallel()

	client := healthyClient()
	client.StorageContentFunc = func(_ context.Context, _, _ string) ([]proxmox.Volume, error) {
		return nil, nil
	}
	client.ApplianceCatalogFunc = func(_ context.Context, _ string) ([]proxmox.Appliance, error) {
		return []proxmox.Appliance{{Template: "alpine-3.20-default_20240908_amd64.tar.xz"}}, nil
	}

	v := &Validator{Client: client}
	result := v.Run(context.Background(), containerSpec())

	assert.False(t, result.Passed)
	require.NotEmpty(t, result.Failures())
	assert.Contains(t, result.Failures()[0].Message, "auto-download failed")
	assert.Contains(t, result.Failures()[0].Fix, "pveam download local debian-12-standard_12.7-1_amd64.tar.zst")
}

func TestTemplateAutoDownloadTimesOut(t *testing.T) {
	t.Parallel()

	client := healthyClient()
	client.StorageContentFunc = func(_ context.Context, _, _ string) ([]proxmox.Volume, error) {
		return nil, nil
	}
	client.ApplianceCatalogFunc = func(_ context.Context, _ string) ([]proxmox.Appliance, error) {
		return []proxmox.Appliance{{Template: "debian-12-standard_12.7-1_amd64.tar.zst"}}, nil
	}
	client.DownloadApplianceFunc = func(_ context.Context, _, _, _ string) (string, error) {
		return "UPID:pve1:0002:dl", nil
	}
	client.TaskStatusFunc = func(_ context.Context, _, _ string) (proxmox.TaskStatus, error) {
		return proxmox.TaskStatus{Status: "running"}, nil
	}

	v := &Validator{
		Client:          client,
		PollInterval:    time.Millisecond,
		DownloadTimeout: 20 * time.Millisecond,
	}
	result := v.Run(context.Background(), containerSpec())

	assert.False(t, result.Passed)
	require.NotEmpty(t, result.Failures())
	assert.Contains(t, result.Failures()[0].Message, "did not finish within")
}

func TestTemplateDownloadTaskFails(t *testing.T) {
	t.Parallel()

	client := healthyClient()
	client.StorageContentFunc = func(_ context.Context, _, _ string) ([]proxmox.Volume, error) {
		return nil, nil
	}
	client.ApplianceCatalogFunc = func(_ context.Context, _ string) ([]proxmox.Appliance, error) {
		return []proxmox.Appliance{{Template: "debian-12-standard_12.7-1_amd64.tar.zst"}}, nil
	}
	client.DownloadApplianceFunc = func(_ context.Context, _, _, _ string) (string, error) {
		return "UPID:pve1:0003:dl", nil
	}
	client.TaskStatusFunc = func(_ context.Context, _, _ string) (proxmox.TaskStatus, error) {
		return proxmox.TaskStatus{Status: "stopped", ExitStatus: "command failed: no space left"}, nil
	}

	v := &Validator{Client: client, PollInterval: time.Millisecond}
	result := v.Run(context.Background(), containerSpec())

	assert.False(t, result.Passed)
	require.NotEmpty(t, result.Failures())
	assert.Contains(t, result.Failures()[0].Message, "no space left")
}

func TestSplitVolID(t *testing.T) {
	t.Parallel()

	storage, filename, ok := splitVolID("local:vztmpl/debian-12.tar.zst")
	require.True(t, ok)
	assert.Equal(t, "local", storage)
	assert.Equal(t, "vztmpl/debian-12.tar.zst", filename)
	assert.Equal(t, "debian-12.tar.zst", templateName(filename))

	_, _, ok = splitVolID("debian-12.tar.zst")
	assert.False(t, ok)
}
