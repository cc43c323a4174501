package file

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/martijn/harvestd/internal/adapter/system"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/errors"
)

// ArtifactStore files the collector's output document under the run that
// produced it
type ArtifactStore struct {
	source string // file the collector writes, e.g. <workdir>/found_tenders.json
	dir    string
	fs     *system.Adapter
}

func NewArtifactStore(source, dir string, fs *system.Adapter) *ArtifactStore {
	return &ArtifactStore{source: source, dir: dir, fs: fs}
}

// Relocate moves the collector output to <dir>/<runID>.json. A missing source
// means the run produced nothing; that is not an error.
func (s *ArtifactStore) Relocate(runID string) (bool, error) {
	path, err := s.pathFor(runID)
	if err != nil {
		return false, err
	}

	err = s.fs.MoveFile(s.source, path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Open returns the artifact bytes of a run
func (s *ArtifactStore) Open(runID string) ([]byte, error) {
	path, err := s.pathFor(runID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(repository.ErrNotFound, "artifact for run %s", runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read artifact for run %s", runID)
	}
	return data, nil
}

// pathFor only accepts run IDs, so callers cannot escape the artifact directory
func (s *ArtifactStore) pathFor(runID string) (string, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return "", errors.Wrapf(repository.ErrNotFound, "invalid run id %q", runID)
	}
	return filepath.Join(s.dir, id.String()+".json"), nil
}
