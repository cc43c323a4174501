package file

import (
	"context"
	"os"
	"strings"

	"github.com/martijn/harvestd/internal/adapter/system"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/errors"
)

// scheduleStore keeps the cron expression as a one-line text file
type scheduleStore struct {
	path string
	fs   *system.Adapter
}

func NewScheduleStore(path string, fs *system.Adapter) repository.ScheduleRepository {
	return &scheduleStore{path: path, fs: fs}
}

func (s *scheduleStore) Load(ctx context.Context) (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read schedule file %s", s.path)
	}

	expression := strings.TrimSpace(string(data))
	if expression == "" {
		return "", false, nil
	}
	return expression, true, nil
}

func (s *scheduleStore) Save(ctx context.Context, expression string) error {
	return s.fs.WriteFileAtomic(s.path, []byte(expression+"\n"), 0o644)
}

func (s *scheduleStore) Path() string {
	return s.path
}
