package service

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/martijn/harvestd/internal/core/domain"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/errors"
	"go.uber.org/zap"
)

const (
	DefaultStopGrace = 10 * time.Second
	orphanNote       = "\n[harvestd] supervisor restarted before the run finished\n"
)

// CollectorOptions describes how the collector process is launched
type CollectorOptions struct {
	Command    []string
	Args       []string
	ConfigPath string
	Workdir    string
	StopGrace  time.Duration
	Progress   ProgressStrategy
}

// argv is the full command line: command, --config <path>, extra args
func (o CollectorOptions) argv() []string {
	argv := append([]string{}, o.Command...)
	if o.ConfigPath != "" {
		argv = append(argv, "--config", o.ConfigPath)
	}
	return append(argv, o.Args...)
}

// RunService supervises the collector: at most one run at a time, its output
// relayed to observers, its result recorded when the child exits
type RunService struct {
	runRepo   repository.RunRepository
	artifacts repository.ArtifactRepository
	registry  *Registry
	channel   *LogChannel
	opts      CollectorOptions
	log       *zap.SugaredLogger

	drains sync.WaitGroup
}

func NewRunService(
	runRepo repository.RunRepository,
	artifacts repository.ArtifactRepository,
	opts CollectorOptions,
	log *zap.SugaredLogger,
) *RunService {
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if opts.Progress == nil {
		opts.Progress = autoStrategy{}
	}
	return &RunService{
		runRepo:   runRepo,
		artifacts: artifacts,
		registry:  NewRegistry(),
		channel:   NewLogChannel(),
		opts:      opts,
		log:       log,
	}
}

// Start launches the collector and returns the new run id. When a run is
// already active its id is returned instead and nothing is spawned.
func (s *RunService) Start(ctx context.Context) (string, error) {
	var output io.ReadCloser

	h, admitted, err := s.registry.Admit(func(run *domain.Run) (*exec.Cmd, error) {
		cmd, out, err := s.spawn()
		if err != nil {
			return nil, err
		}
		s.channel.Reset()
		output = out
		return cmd, nil
	})
	if err != nil {
		s.log.Errorw("Failed to start collector", "command", s.opts.Command, "error", err)
		return "", err
	}
	if !admitted {
		s.log.Debugw("Run already active", "run_id", h.run.ID)
		return h.run.ID, nil
	}

	id := h.run.ID
	s.log.Infow("Run started", "run_id", id, "pid", h.cmd.Process.Pid)

	// The in-flight row is replaced as a whole when the run finalizes
	if err := s.runRepo.Save(ctx, h.run); err != nil {
		s.log.Warnw("Failed to record in-flight run", "run_id", id, "error", err)
	}

	s.drains.Add(1)
	go s.drain(h, output)

	return id, nil
}

func (s *RunService) spawn() (*exec.Cmd, io.ReadCloser, error) {
	argv := s.opts.argv()
	if len(argv) == 0 {
		return nil, nil, errors.WithHint(errors.New("no collector command configured"), "set collector.command in the config file")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.opts.Workdir
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	configureProcessGroup(cmd)

	// One pipe for both streams keeps stdout and stderr interleaved as written
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create output pipe")
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, nil, errors.WithHint(
			errors.Wrapf(err, "failed to start collector %s", argv[0]),
			"check collector.command and collector.workdir in the config file",
		)
	}
	return cmd, out, nil
}

func (s *RunService) drain(h *activeRun, output io.Reader) {
	defer s.drains.Done()

	id := h.run.ID
	reader := bufio.NewReader(output)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			s.consume(id, line)
		}
		if err != nil {
			if err != io.EOF {
				s.log.Warnw("Reading collector output failed", "run_id", id, "error", err)
			}
			break
		}
	}

	waitErr := h.cmd.Wait()
	code := exitCode(h.cmd.ProcessState)
	close(h.exited)
	if waitErr != nil && h.cmd.ProcessState == nil {
		s.log.Errorw("Waiting for collector failed", "run_id", id, "error", waitErr)
	}

	s.finalize(h, code)
}

func (s *RunService) consume(id, raw string) {
	clean := strings.ToValidUTF8(raw, "")
	s.registry.AppendLog(id, clean)

	// Progress first, so an observer that sees the line also sees its progress
	line := strings.TrimRight(clean, "\r\n")
	if pct, ok := s.opts.Progress.Parse(line); ok {
		s.registry.SetProgress(id, pct)
	}
	s.channel.Publish(line)
}

func (s *RunService) finalize(h *activeRun, code int) {
	defer close(h.done)

	ctx := context.Background()
	id := h.run.ID

	s.registry.ForceProgress(id, 100)
	output, _ := s.registry.Log(id)
	h.run.Finish(code, output)

	if err := s.runRepo.Save(ctx, h.run); err != nil {
		s.log.Errorw("Failed to record finished run", "run_id", id, "error", err)
	}

	moved, err := s.artifacts.Relocate(id)
	if err != nil {
		s.log.Warnw("Failed to relocate artifact", "run_id", id, "error", err)
	} else if moved {
		s.log.Debugw("Artifact stored", "run_id", id)
	}

	if err := s.registry.Release(id); err != nil {
		s.log.Errorw("Registry inconsistent at finalize", "run_id", id, "error", err)
	}

	s.log.Infow("Run finished", "run_id", id, "exit_code", code, "duration", h.run.Duration().String())
}

// Stop interrupts the active run, escalating to a kill of its process group
// after the grace period. It reports whether there was a live run to stop.
func (s *RunService) Stop(ctx context.Context) bool {
	h := s.registry.Handle()
	if h == nil {
		return false
	}
	select {
	case <-h.exited:
		return false
	default:
	}

	id := h.run.ID
	s.log.Infow("Stopping run", "run_id", id)
	if err := interruptGroup(h.cmd); err != nil {
		s.log.Warnw("Failed to interrupt collector", "run_id", id, "error", err)
	}

	timer := time.NewTimer(s.opts.StopGrace)
	defer timer.Stop()

	select {
	case <-h.exited:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}

	s.log.Warnw("Collector did not exit after interrupt, killing", "run_id", id, "grace", s.opts.StopGrace.String())
	if err := killGroup(h.cmd); err != nil {
		s.log.Warnw("Failed to kill collector", "run_id", id, "error", err)
	}
	return true
}

// Wait blocks until the active run, if any, is finalized
func (s *RunService) Wait(ctx context.Context) error {
	h := s.registry.Handle()
	if h == nil {
		return nil
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the active run and waits for its drain to finish
func (s *RunService) Shutdown(ctx context.Context) error {
	s.Stop(ctx)

	done := make(chan struct{})
	go func() {
		s.drains.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the active run id and progress without lines
func (s *RunService) Status() domain.LiveUpdate {
	id, progress := s.registry.Snapshot()
	return domain.LiveUpdate{ID: id, Progress: progress, Lines: []string{}}
}

// Subscribe attaches a new observer of the run output
func (s *RunService) Subscribe() *Observer {
	return s.channel.Subscribe()
}

func (s *RunService) Observers() int {
	return s.channel.Observers()
}

// Poll builds the next snapshot for an observer. It returns false when no
// run is active and no new lines arrived.
func (s *RunService) Poll(o *Observer) (domain.LiveUpdate, bool) {
	lines := o.Next()
	id, progress := s.registry.Snapshot()
	if id == "" && len(lines) == 0 {
		return domain.LiveUpdate{}, false
	}
	if lines == nil {
		lines = []string{}
	}
	return domain.LiveUpdate{ID: id, Progress: progress, Lines: lines}, true
}

// GetRun returns a recorded run. The active run carries its output so far.
func (s *RunService) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	run, err := s.runRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if output, ok := s.registry.Log(id); ok {
		run.Log = output
	}
	return run, nil
}

// GetLog returns the captured output of a run
func (s *RunService) GetLog(ctx context.Context, id string) (string, error) {
	if output, ok := s.registry.Log(id); ok {
		return output, nil
	}
	run, err := s.runRepo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return run.Log, nil
}

// ListRuns lists recorded runs, most recent first
func (s *RunService) ListRuns(ctx context.Context, filter repository.RunFilter) ([]*domain.Run, error) {
	return s.runRepo.List(ctx, filter)
}

func (s *RunService) CountRuns(ctx context.Context, filter repository.RunFilter) (int, error) {
	return s.runRepo.Count(ctx, filter)
}

// OpenArtifact returns the output document a run produced
func (s *RunService) OpenArtifact(ctx context.Context, id string) ([]byte, error) {
	return s.artifacts.Open(id)
}

// RecoverOrphans finalizes runs a previous supervisor left unfinished. It
// must run before the first Start.
func (s *RunService) RecoverOrphans(ctx context.Context) (int, error) {
	runs, err := s.runRepo.FindUnfinished(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to find unfinished runs")
	}

	activeID, _ := s.registry.Snapshot()
	recovered := 0
	for _, run := range runs {
		if run.ID == activeID {
			continue
		}
		run.Finish(domain.OrphanExitCode, run.Log+orphanNote)
		if err := s.runRepo.Save(ctx, run); err != nil {
			return recovered, errors.Wrapf(err, "failed to finalize orphaned run %s", run.ID)
		}
		s.log.Warnw("Finalized orphaned run", "run_id", run.ID, "started", run.StartedAt)
		recovered++
	}
	return recovered, nil
}
