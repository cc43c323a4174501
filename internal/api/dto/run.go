package dto

import "time"

// RunResponse is one entry of the run history
type RunResponse struct {
	ID       string     `json:"id"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished"`
	ExitCode *int       `json:"exit_code"`
	Status   string     `json:"status"`
	Log      *string    `json:"log,omitempty"`
}

// RunListResponse represents a list of runs
type RunListResponse struct {
	Items      []RunResponse  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// StartRunResponse carries the id of the started (or already active) run
type StartRunResponse struct {
	RunID string `json:"run_id"`
}

type StopRunResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusResponse describes the active run; ID is null when idle
type StatusResponse struct {
	ID        *string `json:"id"`
	Progress  int     `json:"progress"`
	Observers int     `json:"observers"`
}
