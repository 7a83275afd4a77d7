package model

import (
	"context"
	"time"
)

// Completion is emitted once when the student finishes a practical. It is the
// only data the lab engine hands to the progress system.
type Completion struct {
	SessionID    string
	ExperimentID string
	StudentName  string
	RewardXP     int
	FinishedAt   time.Time
}

// ProfileStore is owned by the surrounding application. The lab session never
// calls it directly; it is reached through the completion callback.
type ProfileStore interface {
	// AwardCompletion records the completion and adds its reward to the
	// student's XP, returning the new total.
	AwardCompletion(ctx context.Context, c Completion) (int, error)

	// TotalXP returns the student's accumulated XP (0 for unknown students).
	TotalXP(ctx context.Context, student string) (int, error)
}
