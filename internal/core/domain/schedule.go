package domain

import "time"

// Schedule is the cron expression driving recurring runs. Next is derived
// on demand and never stored.
type Schedule struct {
	Expression string
	Timezone   string
	Enabled    bool
	Next       *time.Time
}
