package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// OrphanExitCode marks runs whose supervisor died before the child finished
const OrphanExitCode = -1

// Run is one execution of the collector. FinishedAt and ExitCode stay nil
// while the run is active.
type Run struct {
	ID         string     `db:"id"`
	StartedAt  time.Time  `db:"started"`
	FinishedAt *time.Time `db:"finished"`
	ExitCode   *int       `db:"exit_code"`
	Log        string     `db:"log"`
}

func NewRun() *Run {
	return &Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}

// Finish records the terminal state; the run is immutable afterwards
func (r *Run) Finish(exitCode int, log string) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.ExitCode = &exitCode
	r.Log = log
}

func (r *Run) IsFinished() bool {
	return r.FinishedAt != nil
}

func (r *Run) Status() RunStatus {
	switch {
	case !r.IsFinished():
		return RunStatusRunning
	case r.ExitCode != nil && *r.ExitCode == 0:
		return RunStatusSuccess
	default:
		return RunStatusFailed
	}
}

// Duration is zero for active runs
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
