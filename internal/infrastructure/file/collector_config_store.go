package file

import (
	"context"
	"encoding/json"
	"os"

	"github.com/martijn/harvestd/internal/adapter/system"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/errors"
)

// collectorConfigStore is the JSON file handed to the collector via --config
type collectorConfigStore struct {
	path string
	fs   *system.Adapter
}

func NewCollectorConfigStore(path string, fs *system.Adapter) repository.CollectorConfigRepository {
	return &collectorConfigStore{path: path, fs: fs}
}

func (s *collectorConfigStore) Load(ctx context.Context) (json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(repository.ErrNotFound, "collector config %s", s.path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read collector config %s", s.path)
	}
	return json.RawMessage(data), nil
}

func (s *collectorConfigStore) Save(ctx context.Context, document json.RawMessage) error {
	return s.fs.WriteFileAtomic(s.path, document, 0o644)
}
