// Package store persists scenes, experiments, and run records. The engine
// treats the interface as an opaque handle; memory and postgres back it.
package store

import (
	"context"
	"errors"

	"github.com/kotoba-lab/tessa/pkg/models"
)

var (
	// ErrNotFound is returned when a scene or experiment does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating an entity whose id is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the persistence contract shared by the experiment driver and the
// runner's store sink.
type Store interface {
	// PutScene inserts or replaces a scene.
	PutScene(ctx context.Context, scene *models.Scene) error
	// ListScenes returns the scenes matching the filter, ordered by scene id.
	// Empty filter fields match everything.
	ListScenes(ctx context.Context, filter models.SceneFilter) ([]*models.Scene, error)

	// CreateExperiment stores a new experiment in draft status.
	CreateExperiment(ctx context.Context, exp *models.Experiment) error
	// GetExperiment loads one experiment by id.
	GetExperiment(ctx context.Context, id string) (*models.Experiment, error)
	// SetExperimentStatus transitions the experiment's status.
	SetExperimentStatus(ctx context.Context, id string, status models.ExperimentStatus) error
	// ListExperimentsByStatus returns experiments in the given status.
	ListExperimentsByStatus(ctx context.Context, status models.ExperimentStatus) ([]*models.Experiment, error)
	// DeleteExperiment removes the experiment and cascades to its runs.
	DeleteExperiment(ctx context.Context, id string) error

	// AppendRun stores one run record. Appending a record with the same
	// (runId, sampleId, condition) key again is a no-op.
	AppendRun(ctx context.Context, record *models.RunRecord) error
	// ListRuns returns the records of one run, ordered by sample id then
	// condition.
	ListRuns(ctx context.Context, runID string) ([]*models.RunRecord, error)
	// DeleteRunsForExperiment removes all records whose run id matches.
	DeleteRunsForExperiment(ctx context.Context, runID string) error
}

// matchesFilter applies SceneFilter semantics shared by both backends'
// in-process paths.
func matchesFilter(scene *models.Scene, filter models.SceneFilter) bool {
	if filter.Split != "" && scene.Split != filter.Split {
		return false
	}
	if len(filter.SceneIDs) > 0 {
		found := false
		for _, id := range filter.SceneIDs {
			if id == scene.SceneID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Tags) > 0 {
		tagged := make(map[string]bool, len(scene.Tags))
		for _, tag := range scene.Tags {
			tagged[tag] = true
		}
		any := false
		for _, tag := range filter.Tags {
			if tagged[tag] {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}
