package models

import "time"

// ExperimentStatus tracks the experiment lifecycle.
type ExperimentStatus string

const (
	// ExperimentStatusDraft is the only state an experiment can start from.
	ExperimentStatusDraft ExperimentStatus = "draft"
	// ExperimentStatusRunning means the orchestrator is executing pairs.
	ExperimentStatusRunning ExperimentStatus = "running"
	// ExperimentStatusCompleted is terminal success (including cancelled
	// runs that finished their admitted pairs).
	ExperimentStatusCompleted ExperimentStatus = "completed"
	// ExperimentStatusFailed is terminal failure.
	ExperimentStatusFailed ExperimentStatus = "failed"
)

// IsValid checks if the experiment status is valid.
func (s ExperimentStatus) IsValid() bool {
	switch s {
	case ExperimentStatusDraft, ExperimentStatusRunning, ExperimentStatusCompleted, ExperimentStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a terminal one.
func (s ExperimentStatus) IsTerminal() bool {
	return s == ExperimentStatusCompleted || s == ExperimentStatusFailed
}

// SceneFilter selects the scenes an experiment runs over. Empty fields
// match everything.
type SceneFilter struct {
	Split    string   `json:"split,omitempty"`
	SceneIDs []string `json:"sceneIds,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Experiment is a run plan: which scenes, which conditions, which engine
// config. Deleting an experiment cascades to its runs.
type Experiment struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Config      []byte           `json:"config,omitempty"`
	Conditions  []Condition      `json:"conditions"`
	SceneFilter SceneFilter      `json:"sceneFilter"`
	Status      ExperimentStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
