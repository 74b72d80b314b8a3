package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SyncRunStatusSucceeded = "SUCCEEDED"
	SyncRunStatusFailed    = "FAILED"
)

// Result of one synchronization cycle with the sequencer
type SyncRun struct {
	ID         uuid.UUID
	Line       int
	Pushed     int
	Pulled     int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
