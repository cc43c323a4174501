package repository

import "context"

// ScheduleRepository persists the raw cron expression
type ScheduleRepository interface {
	// Load returns the stored expression and false when nothing is stored yet
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, expression string) error
	// Path is the backing location, watched for external edits
	Path() string
}
