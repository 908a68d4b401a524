package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kotoba-lab/tessa/pkg/database"
	"github.com/kotoba-lab/tessa/pkg/models"
)

// Postgres is the persistent Store over pkg/database. Scene and run
// payloads live in JSONB documents; the columns beside them exist for
// filtering and keys.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps a migrated database client.
func NewPostgres(client *database.Client) *Postgres {
	return &Postgres{db: client.DB()}
}

var _ Store = (*Postgres)(nil)

// PutScene inserts or replaces a scene.
func (p *Postgres) PutScene(ctx context.Context, scene *models.Scene) error {
	doc, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("failed to marshal scene %s: %w", scene.SceneID, err)
	}
	tags := scene.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO scenes (scene_id, split, tags, doc)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (scene_id) DO UPDATE SET split = $2, tags = $3, doc = $4`,
		scene.SceneID, scene.Split, tags, doc)
	if err != nil {
		return fmt.Errorf("failed to put scene %s: %w", scene.SceneID, err)
	}
	return nil
}

// ListScenes returns matching scenes ordered by scene id. Filters compose
// with AND; the tag filter matches any overlap.
func (p *Postgres) ListScenes(ctx context.Context, filter models.SceneFilter) ([]*models.Scene, error) {
	query := `SELECT doc FROM scenes WHERE 1=1`
	args := []any{}
	if filter.Split != "" {
		args = append(args, filter.Split)
		query += fmt.Sprintf(" AND split = $%d", len(args))
	}
	if len(filter.SceneIDs) > 0 {
		args = append(args, filter.SceneIDs)
		query += fmt.Sprintf(" AND scene_id = ANY($%d)", len(args))
	}
	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		query += fmt.Sprintf(" AND tags && $%d", len(args))
	}
	query += " ORDER BY scene_id"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*models.Scene
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		var scene models.Scene
		if err := json.Unmarshal(doc, &scene); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scene: %w", err)
		}
		scenes = append(scenes, &scene)
	}
	return scenes, rows.Err()
}

// CreateExperiment stores a new experiment.
func (p *Postgres) CreateExperiment(ctx context.Context, exp *models.Experiment) error {
	sceneFilter, err := json.Marshal(exp.SceneFilter)
	if err != nil {
		return fmt.Errorf("failed to marshal scene filter: %w", err)
	}
	conditions := make([]string, len(exp.Conditions))
	for i, c := range exp.Conditions {
		conditions[i] = string(c)
	}
	now := time.Now().UTC()
	createdAt := exp.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	result, err := p.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, status, conditions, scene_filter, config, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		exp.ID, exp.Name, string(exp.Status), conditions, sceneFilter, exp.Config, createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to create experiment %s: %w", exp.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create experiment %s: %w", exp.ID, err)
	}
	if affected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// GetExperiment loads one experiment.
func (p *Postgres) GetExperiment(ctx context.Context, id string) (*models.Experiment, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, name, status, array_to_json(conditions), scene_filter, config, created_at, updated_at
		 FROM experiments WHERE id = $1`, id)
	return scanExperiment(row)
}

// SetExperimentStatus transitions the experiment's status.
func (p *Postgres) SetExperimentStatus(ctx context.Context, id string, status models.ExperimentStatus) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE experiments SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set status of experiment %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set status of experiment %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExperimentsByStatus returns experiments in the given status, ordered
// by id.
func (p *Postgres) ListExperimentsByStatus(ctx context.Context, status models.ExperimentStatus) ([]*models.Experiment, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, status, array_to_json(conditions), scene_filter, config, created_at, updated_at
		 FROM experiments WHERE status = $1 ORDER BY id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var out []*models.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}

// DeleteExperiment removes the experiment and cascades to its runs. The
// driver launches runs with runId = experiment id, so the cascade keys the
// runs table on it.
func (p *Postgres) DeleteExperiment(ctx context.Context, id string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of experiment %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete runs of experiment %s: %w", id, err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM experiments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete experiment %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// AppendRun stores one record; a duplicate key is a no-op.
func (p *Postgres) AppendRun(ctx context.Context, record *models.RunRecord) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record %s: %w", record.Key(), err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, sample_id, condition, record)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, sample_id, condition) DO NOTHING`,
		record.RunID, record.SampleID, string(record.Condition), doc)
	if err != nil {
		return fmt.Errorf("failed to append run record %s: %w", record.Key(), err)
	}
	return nil
}

// ListRuns returns the records of one run, ordered by sample id then
// condition.
func (p *Postgres) ListRuns(ctx context.Context, runID string) ([]*models.RunRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT record FROM runs WHERE run_id = $1 ORDER BY sample_id, condition`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []*models.RunRecord
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		var record models.RunRecord
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
		}
		out = append(out, &record)
	}
	return out, rows.Err()
}

// DeleteRunsForExperiment removes all records of one run.
func (p *Postgres) DeleteRunsForExperiment(ctx context.Context, runID string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete runs of %s: %w", runID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row rowScanner) (*models.Experiment, error) {
	var (
		exp         models.Experiment
		status      string
		conditions  []byte
		sceneFilter []byte
	)
	err := row.Scan(&exp.ID, &exp.Name, &status, &conditions, &sceneFilter, &exp.Config, &exp.CreatedAt, &exp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan experiment: %w", err)
	}
	exp.Status = models.ExperimentStatus(status)
	if err := json.Unmarshal(conditions, &exp.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal(sceneFilter, &exp.SceneFilter); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene filter: %w", err)
	}
	return &exp, nil
}
