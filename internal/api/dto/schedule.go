package dto

import "time"

// UpdateScheduleRequest represents the schedule update request
type UpdateScheduleRequest struct {
	Expression string `json:"expression" binding:"required"`
}

// ScheduleResponse represents the current schedule
type ScheduleResponse struct {
	Expression string     `json:"expression"`
	Timezone   string     `json:"timezone"`
	Enabled    bool       `json:"enabled"`
	Next       *time.Time `json:"next"`
}

// NextRunResponse is the next fire time in UTC
type NextRunResponse struct {
	Expression string    `json:"expression"`
	Next       time.Time `json:"next"`
}
