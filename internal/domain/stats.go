package domain

import "time"

// CycleStats holds statistics about one poll cycle.
type CycleStats struct {
	Fetched    int
	Dispatched int
	Skipped    int
	Duration   time.Duration
}
