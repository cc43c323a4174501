package service

import (
	"os/exec"
	"strings"
	"sync"

	"github.com/martijn/harvestd/internal/core/domain"
	"github.com/martijn/harvestd/internal/errors"
)

// activeRun is the handle of the run currently in flight
type activeRun struct {
	run      *domain.Run
	cmd      *exec.Cmd
	progress int
	log      strings.Builder

	exited chan struct{} // closed once the child has been reaped
	done   chan struct{} // closed once the run is finalized
}

// Registry tracks the single active run behind one mutex
type Registry struct {
	mu     sync.Mutex
	active *activeRun
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Admit registers a new run unless one is already active, in which case the
// active run is returned with admitted=false. spawn runs under the lock; when
// it fails nothing is registered.
func (r *Registry) Admit(spawn func(run *domain.Run) (*exec.Cmd, error)) (h *activeRun, admitted bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return r.active, false, nil
	}

	run := domain.NewRun()
	cmd, err := spawn(run)
	if err != nil {
		return nil, false, err
	}

	r.active = &activeRun{
		run:    run,
		cmd:    cmd,
		exited: make(chan struct{}),
		done:   make(chan struct{}),
	}
	return r.active, true, nil
}

// Snapshot returns the active run id and progress; id is empty when idle
func (r *Registry) Snapshot() (id string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", 0
	}
	return r.active.run.ID, r.active.progress
}

// Handle returns the active run or nil
func (r *Registry) Handle() *activeRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SetProgress raises the progress of run id. Lower values and stale ids are
// ignored.
func (r *Registry) SetProgress(id string, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active.run.ID != id {
		return
	}
	if percent > r.active.progress {
		r.active.progress = percent
	}
}

// ForceProgress overwrites the progress of run id
func (r *Registry) ForceProgress(id string, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.run.ID == id {
		r.active.progress = percent
	}
}

// AppendLog adds raw output to the accumulator of run id
func (r *Registry) AppendLog(id, chunk string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.run.ID == id {
		r.active.log.WriteString(chunk)
	}
}

// Log returns the output captured so far when id is the active run
func (r *Registry) Log(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active.run.ID != id {
		return "", false
	}
	return r.active.log.String(), true
}

// Release clears the registry. It fails when id is not the active run.
func (r *Registry) Release(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return errors.AssertionFailedf("release of run %s with no active run", id)
	}
	if r.active.run.ID != id {
		return errors.AssertionFailedf("release of run %s while run %s is active", id, r.active.run.ID)
	}
	r.active = nil
	return nil
}
