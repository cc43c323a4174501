package service

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/martijn/harvestd/internal/core/domain"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultScheduleExpression = "0 2 * * *"
	watchDebounce             = 250 * time.Millisecond
)

// RunStarter is what a schedule fire triggers
type RunStarter interface {
	Start(ctx context.Context) (string, error)
}

type ScheduleOptions struct {
	Default  string
	Location *time.Location
	// Enabled=false keeps the schedule editable but never fires it
	Enabled bool
}

// ScheduleService owns the cron expression and its single registration with
// the background trigger
type ScheduleService struct {
	repo   repository.ScheduleRepository
	runs   RunStarter
	opts   ScheduleOptions
	parser cron.Parser
	log    *zap.SugaredLogger

	mu         sync.Mutex
	expression string
	schedule   cron.Schedule
	cron       *cron.Cron
	entryID    cron.EntryID
}

func NewScheduleService(
	repo repository.ScheduleRepository,
	runs RunStarter,
	opts ScheduleOptions,
	log *zap.SugaredLogger,
) *ScheduleService {
	if opts.Default == "" {
		opts.Default = DefaultScheduleExpression
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &ScheduleService{
		repo:   repo,
		runs:   runs,
		opts:   opts,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		log:    log,
	}
}

// Load reads the stored expression, falling back to the default when nothing
// usable is stored
func (s *ScheduleService) Load(ctx context.Context) error {
	expression, ok, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	if ok {
		if schedule, err := s.parse(expression); err == nil {
			s.mu.Lock()
			s.expression, s.schedule = expression, schedule
			s.mu.Unlock()
			return nil
		}
		s.log.Warnw("Stored schedule is invalid, using default", "path", s.repo.Path(), "expression", expression, "default", s.opts.Default)
	}

	schedule, err := s.parse(s.opts.Default)
	if err != nil {
		return errors.WithHint(err, "fix schedule.default in the config file")
	}
	s.mu.Lock()
	s.expression, s.schedule = s.opts.Default, schedule
	s.mu.Unlock()
	return nil
}

func (s *ScheduleService) parse(expression string) (cron.Schedule, error) {
	schedule, err := s.parser.Parse(expression)
	if err != nil {
		return nil, NewValidationError("expression", err.Error())
	}
	return schedule, nil
}

func (s *ScheduleService) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expression
}

// Schedule is the current expression with its next fire time
func (s *ScheduleService) Schedule(now time.Time) domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := domain.Schedule{
		Expression: s.expression,
		Timezone:   s.opts.Location.String(),
		Enabled:    s.opts.Enabled,
	}
	if s.schedule != nil {
		next := s.nextLocked(now)
		result.Next = &next
	}
	return result
}

// Set validates and stores a new expression and swaps the trigger over to
// it. An invalid expression returns a *ValidationError and changes nothing.
func (s *ScheduleService) Set(ctx context.Context, expression string) error {
	expression = strings.TrimSpace(expression)
	schedule, err := s.parse(expression)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Save(ctx, expression); err != nil {
		return errors.Wrap(err, "failed to persist schedule")
	}
	s.applyLocked(expression, schedule)
	s.log.Infow("Schedule updated", "expression", expression)
	return nil
}

// NextFire returns the first fire time strictly after now, in UTC
func (s *ScheduleService) NextFire(now time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return time.Time{}, errors.New("schedule not loaded")
	}
	return s.nextLocked(now), nil
}

func (s *ScheduleService) nextLocked(now time.Time) time.Time {
	return s.schedule.Next(now.In(s.opts.Location)).UTC()
}

// applyLocked swaps the registration: the old entry is removed before the new
// one is added so both never fire
func (s *ScheduleService) applyLocked(expression string, schedule cron.Schedule) {
	s.expression, s.schedule = expression, schedule
	if s.cron == nil {
		return
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	if s.opts.Enabled {
		s.entryID = s.cron.Schedule(schedule, cron.FuncJob(s.fire))
	}
}

func (s *ScheduleService) fire() {
	id, err := s.runs.Start(context.Background())
	if err != nil {
		s.log.Errorw("Scheduled run failed to start", "error", err)
		return
	}
	s.log.Infow("Scheduled run triggered", "run_id", id)
}

// Start launches the background trigger. Calling it twice is a no-op.
func (s *ScheduleService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}

	s.cron = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.opts.Location))
	if s.schedule != nil {
		s.applyLocked(s.expression, s.schedule)
	}
	s.cron.Start()
	s.log.Infow("Scheduler started", "expression", s.expression, "timezone", s.opts.Location.String(), "enabled", s.opts.Enabled)
}

// Stop halts the trigger and waits for a running fire to return
func (s *ScheduleService) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.entryID = 0
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Infow("Scheduler stopped")
}

// Watch reconciles edits made to the schedule file by other processes until
// ctx is cancelled. Invalid edits are logged and ignored.
func (s *ScheduleService) Watch(ctx context.Context) error {
	path := s.repo.Path()
	if path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create schedule watcher")
	}
	defer w.Close()

	// The directory is watched because atomic replaces swap the file inode
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}
	s.log.Debugw("Watching schedule file", "path", path)

	name := filepath.Base(path)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warnw("Schedule watcher error", "error", err)
		case <-timer.C:
			s.reload(ctx)
		}
	}
}

func (s *ScheduleService) reload(ctx context.Context) {
	expression, ok, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Warnw("Failed to reload schedule", "error", err)
		return
	}
	if !ok || expression == s.Get() {
		return
	}

	schedule, err := s.parse(expression)
	if err != nil {
		s.log.Warnw("Ignoring invalid schedule edit", "expression", expression, "error", err)
		return
	}

	s.mu.Lock()
	s.applyLocked(expression, schedule)
	s.mu.Unlock()
	s.log.Infow("Schedule reloaded from file", "expression", expression)
}
