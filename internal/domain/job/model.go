package job

import (
	"fmt"
	"time"
)

// State of a tracked analysis job. Absence of a record is the fourth state:
// no run is tracked under the key.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"

	// StateAbsent is reported to pollers when no record exists under a key.
	// It is never stored; Validate rejects it.
	StateAbsent State = "absent"
)

// Progress messages shown to pollers while a run is active.
const (
	ProgressStarting   = "Initializing data collection..."
	ProgressVerifying  = "Verifying player ID..."
	ProgressProcessing = "Calculating performance metrics..."
	ProgressDone       = "Data processing complete"
)

// ProgressCollecting names the collection stage for a resolved player.
func ProgressCollecting(playerName string) string {
	return fmt.Sprintf("Finding match data for %s...", playerName)
}

// Job is the tracked state of one analysis run.
type Job struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	State     State     `json:"state"`
	Progress  string    `json:"progress,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if j.Key == "" {
		return fmt.Errorf("job key is required")
	}
	switch j.State {
	case StateRunning, StateCompleted, StateFailed:
	default:
		return fmt.Errorf("invalid job state: %s", j.State)
	}

	return nil
}
