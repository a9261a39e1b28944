package terraform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCall struct {
	dir  string
	args []string
}

func fakeManager(t *testing.T, calls *[]fakeCall, fail func(args []string) (string, error)) *Manager {
	t.Helper()

	m := NewManager(t.TempDir())
	m.run = func(_ context.Context, dir string, args ...string) (string, error) {
		*calls = append(*calls, fakeCall{dir: dir, args: args})
		if fail != nil {
			return fail(args)
		}
		return "ok", nil
	}
	require.NoError(t, m.EnsureDirs())
	return m
}

func TestDeployRunsStagesInOrder(t *testing.T) {
	t.Parallel()

	var calls []fakeCall
	m := fakeManager(t, &calls, nil)

	results, err := m.Deploy(context.Background(), "/deploy/web01")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, []Stage{StageMirror, StageInit, StagePlan, StageApply},
		[]Stage{results[0].Stage, results[1].Stage, results[2].Stage, results[3].Stage})

	require.Len(t, calls, 4)
	assert.Equal(t, []string{"providers", "mirror", m.PluginsDir()}, calls[0].args)
	assert.Equal(t, []string{"init", "-input=false", "-plugin-dir", m.PluginsDir()}, calls[1].args)
	assert.Equal(t, []string{"plan", "-input=false"}, calls[2].args)
	assert.Equal(t, []string{"apply", "-auto-approve", "-input=false"}, calls[3].args)
	for _, c := range calls {
		assert.Equal(t, "/deploy/web01", c.dir)
	}
}

func TestDeploySkipsMirrorWhenMarkerPresent(t *testing.T) {
	t.Parallel()

	var calls []fakeCall
	m := fakeManager(t, &calls, nil)
	require.NoError(t, os.WriteFile(filepath.Join(m.PluginsDir(), mirrorMarker), nil, 0o644))

	_, err := m.Deploy(context.Background(), "/deploy/web01")
	require.NoError(t, err)

	require.Len(t, calls, 3)
	assert.Equal(t, "init", calls[0].args[0])
	assert.Contains(t, calls[0].args, "-plugin-dir")
}

func TestDeployMirrorSuccessWritesMarker(t *testing.T) {
	t.Parallel()

	var calls []fakeCall
	m := fakeManager(t, &calls, nil)

	_, err := m.Deploy(context.Background(), "/deploy/web01")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(m.PluginsDir(), mirrorMarker))
}

func TestDeployInitWithoutMirrorOmitsPluginDir(t *testing.T) {
	t.Parallel()

	var calls []fakeCall
	m := fakeManager(t, &calls, func(args []string) (string, error) {
		if args[0] == "providers" {
			return "mirror failed: could not connect to registry.terraform.io", errors.New("exit status 1")
		}
		return "ok", nil
	})

	_, err := m.Deploy(context.Background(), "/deploy/web01")
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageMirror, stageErr.Stage)
	assert.True(t, stageErr.Classification.Known)
	assert.Equal(t, "provider registry unreachable", stageErr.Classification.Title)
	assert.NoFileExists(t, filepath.Join(m.PluginsDir(), mirrorMarker))
}

func TestDeployStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	var calls []fakeCall
	m := fakeManager(t, &calls, func(args []string) (string, error) {
		if args[0] == "plan" {
			return "Error: storage 'slow-disk' does not exist", errors.New("exit status 1")
		}
		return "ok", nil
	})

	results, err := m.Deploy(context.Background(), "/deploy/web01")
	require.Error(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, StagePlan, results[2].Stage)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePlan, stageErr.Stage)
	assert.Contains(t, stageErr.Error(), "storage pool not found")
	assert.Contains(t, stageErr.Classification.Guidance, `"slow-disk"`)

	for _, c := range calls {
		assert.NotEqual(t, "apply", c.args[0])
	}
}

func TestStageErrorUnknownOutputKeepsRawError(t *testing.T) {
	t.Parallel()

	var calls []fakeCall
	m := fakeManager(t, &calls, func(args []string) (string, error) {
		if args[0] == "apply" {
			return "Error: something entirely novel", errors.New("exit status 1")
		}
		return "ok", nil
	})

	_, err := m.Deploy(context.Background(), "/deploy/web01")
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.False(t, stageErr.Classification.Known)
	assert.Contains(t, stageErr.Error(), "exit status 1")
	assert.Equal(t, "Error: something entirely novel", stageErr.Output)
}
