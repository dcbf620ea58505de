package model

import "time"

// BroadcastJob describes an accepted broadcast before it runs.
type BroadcastJob struct {
	ID        string
	Sender    string
	Total     int
	StartedAt time.Time
}

// BroadcastResult tallies one broadcast. Skipped counts groups never
// attempted because the run was cancelled.
type BroadcastResult struct {
	JobID   string
	Total   int
	Success int
	Failed  int
	Skipped int
}
