package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/martijn/harvestd/internal/adapter/system"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "schedule.cron")
	store := NewScheduleStore(path, system.NewAdapter())

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "missing file means nothing stored")

	require.NoError(t, store.Save(ctx, "*/5 * * * *"))
	expression, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "*/5 * * * *", expression)
	assert.Equal(t, path, store.Path())

	// Hand edits often leave surrounding whitespace
	require.NoError(t, os.WriteFile(path, []byte("  0 3 * * 1 \n\n"), 0o644))
	expression, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0 3 * * 1", expression)

	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollectorConfigStore(t *testing.T) {
	ctx := context.Background()
	store := NewCollectorConfigStore(filepath.Join(t.TempDir(), "config.json"), system.NewAdapter())

	_, err := store.Load(ctx)
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	document := json.RawMessage(`{"KEYWORDS_GEO":["გზა"]}`)
	require.NoError(t, store.Save(ctx, document))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(document), string(got))
}

func TestArtifactStore(t *testing.T) {
	workdir := t.TempDir()
	dir := filepath.Join(t.TempDir(), "artifacts")
	source := filepath.Join(workdir, "found_tenders.json")
	store := NewArtifactStore(source, dir, system.NewAdapter())

	runID := uuid.New().String()

	t.Run("missing source is skipped", func(t *testing.T) {
		moved, err := store.Relocate(runID)
		require.NoError(t, err)
		assert.False(t, moved)

		_, err = store.Open(runID)
		assert.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("relocates output under the run id", func(t *testing.T) {
		require.NoError(t, os.WriteFile(source, []byte(`[{"id":1}]`), 0o644))

		moved, err := store.Relocate(runID)
		require.NoError(t, err)
		assert.True(t, moved)
		assert.NoFileExists(t, source)
		assert.FileExists(t, filepath.Join(dir, runID+".json"))

		data, err := store.Open(runID)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1}]`, string(data))
	})

	t.Run("rejects ids that are not run ids", func(t *testing.T) {
		_, err := store.Open("../../etc/passwd")
		assert.True(t, errors.Is(err, repository.ErrNotFound))

		_, err = store.Relocate("not-a-uuid")
		assert.Error(t, err)
	})
}
