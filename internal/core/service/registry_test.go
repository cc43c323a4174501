package service

import (
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/martijn/harvestd/internal/core/domain"
	"github.com/martijn/harvestd/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopSpawn(run *domain.Run) (*exec.Cmd, error) {
	return &exec.Cmd{}, nil
}

func TestRegistryAdmitIsSingleFlight(t *testing.T) {
	r := NewRegistry()
	var spawned atomic.Int32

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, _, err := r.Admit(func(run *domain.Run) (*exec.Cmd, error) {
				spawned.Add(1)
				return &exec.Cmd{}, nil
			})
			if assert.NoError(t, err) {
				ids[i] = h.run.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), spawned.Load())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRegistryAdmitSpawnFailure(t *testing.T) {
	r := NewRegistry()
	_, admitted, err := r.Admit(func(run *domain.Run) (*exec.Cmd, error) {
		return nil, errors.New("exec: not found")
	})
	require.Error(t, err)
	assert.False(t, admitted)
	assert.Nil(t, r.Handle())

	_, admitted, err = r.Admit(noopSpawn)
	require.NoError(t, err)
	assert.True(t, admitted)
}

func TestRegistryProgressIsMonotonic(t *testing.T) {
	r := NewRegistry()
	h, _, err := r.Admit(noopSpawn)
	require.NoError(t, err)
	id := h.run.ID

	r.SetProgress(id, 40)
	r.SetProgress(id, 10)
	_, progress := r.Snapshot()
	assert.Equal(t, 40, progress)

	r.SetProgress("stale-run", 90)
	_, progress = r.Snapshot()
	assert.Equal(t, 40, progress)

	r.ForceProgress(id, 100)
	_, progress = r.Snapshot()
	assert.Equal(t, 100, progress)
}

func TestRegistryLogAccumulator(t *testing.T) {
	r := NewRegistry()
	h, _, err := r.Admit(noopSpawn)
	require.NoError(t, err)

	r.AppendLog(h.run.ID, "a\n")
	r.AppendLog(h.run.ID, "b")
	r.AppendLog("other", "ignored")

	output, ok := r.Log(h.run.ID)
	assert.True(t, ok)
	assert.Equal(t, "a\nb", output)

	_, ok = r.Log("other")
	assert.False(t, ok)
}

func TestRegistryRelease(t *testing.T) {
	r := NewRegistry()

	err := r.Release("nothing-active")
	require.Error(t, err)
	assert.True(t, errors.IsAssertionFailure(err))

	h, _, err := r.Admit(noopSpawn)
	require.NoError(t, err)

	err = r.Release("someone-else")
	assert.True(t, errors.IsAssertionFailure(err))
	assert.NotNil(t, r.Handle(), "a mismatched release keeps the active run")

	require.NoError(t, r.Release(h.run.ID))
	id, progress := r.Snapshot()
	assert.Empty(t, id)
	assert.Zero(t, progress)
}
