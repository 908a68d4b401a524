package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kotoba-lab/tessa/pkg/models"
)

// Memory is an in-process Store backed by mutexed maps. It is the default
// backend for tests and for runs that don't need persistence.
type Memory struct {
	mu          sync.RWMutex
	scenes      map[string]*models.Scene
	experiments map[string]*models.Experiment
	runs        map[string]*models.RunRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		scenes:      make(map[string]*models.Scene),
		experiments: make(map[string]*models.Experiment),
		runs:        make(map[string]*models.RunRecord),
	}
}

var _ Store = (*Memory)(nil)

// PutScene inserts or replaces a scene.
func (m *Memory) PutScene(_ context.Context, scene *models.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *scene
	m.scenes[scene.SceneID] = &copied
	return nil
}

// ListScenes returns matching scenes ordered by scene id.
func (m *Memory) ListScenes(_ context.Context, filter models.SceneFilter) ([]*models.Scene, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Scene
	for _, scene := range m.scenes {
		if matchesFilter(scene, filter) {
			copied := *scene
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneID < out[j].SceneID })
	return out, nil
}

// CreateExperiment stores a new experiment.
func (m *Memory) CreateExperiment(_ context.Context, exp *models.Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.experiments[exp.ID]; ok {
		return ErrAlreadyExists
	}
	copied := *exp
	now := time.Now().UTC()
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = now
	}
	copied.UpdatedAt = now
	m.experiments[exp.ID] = &copied
	return nil
}

// GetExperiment loads one experiment.
func (m *Memory) GetExperiment(_ context.Context, id string) (*models.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *exp
	return &copied, nil
}

// SetExperimentStatus transitions the experiment's status.
func (m *Memory) SetExperimentStatus(_ context.Context, id string, status models.ExperimentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.experiments[id]
	if !ok {
		return ErrNotFound
	}
	exp.Status = status
	exp.UpdatedAt = time.Now().UTC()
	return nil
}

// ListExperimentsByStatus returns experiments in the given status.
func (m *Memory) ListExperimentsByStatus(_ context.Context, status models.ExperimentStatus) ([]*models.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Experiment
	for _, exp := range m.experiments {
		if exp.Status == status {
			copied := *exp
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteExperiment removes the experiment and its runs.
func (m *Memory) DeleteExperiment(ctx context.Context, id string) error {
	if err := m.DeleteRunsForExperiment(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.experiments[id]; !ok {
		return ErrNotFound
	}
	delete(m.experiments, id)
	return nil
}

// AppendRun stores one record, ignoring duplicates of the same key.
func (m *Memory) AppendRun(_ context.Context, record *models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := record.Key()
	if _, ok := m.runs[key]; ok {
		return nil
	}
	copied := *record
	m.runs[key] = &copied
	return nil
}

// ListRuns returns the records of one run, ordered by sample id then
// condition.
func (m *Memory) ListRuns(_ context.Context, runID string) ([]*models.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.RunRecord
	for _, record := range m.runs {
		if record.RunID == runID {
			copied := *record
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SampleID != out[j].SampleID {
			return out[i].SampleID < out[j].SampleID
		}
		return out[i].Condition < out[j].Condition
	})
	return out, nil
}

// DeleteRunsForExperiment removes all records of one run.
func (m *Memory) DeleteRunsForExperiment(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, record := range m.runs {
		if record.RunID == runID {
			delete(m.runs, key)
		}
	}
	return nil
}
