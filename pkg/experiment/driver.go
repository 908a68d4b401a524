package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/kotoba-lab/tessa/pkg/config"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/runner"
	"github.com/kotoba-lab/tessa/pkg/store"
)

// StartError reports a run plan the driver refused to launch. Stored
// experiment state is untouched when Start returns one.
type StartError struct {
	Status int
	Reason string
}

// Error returns the formatted error message.
func (e *StartError) Error() string {
	return fmt.Sprintf("cannot start experiment (%d): %s", e.Status, e.Reason)
}

// IsStartError checks whether the error is a StartError.
func IsStartError(err error) bool {
	var startErr *StartError
	return errors.As(err, &startErr)
}

// RunParams is everything the orchestrator needs for one launched
// experiment.
type RunParams struct {
	RunID      string
	Config     *config.Config
	Conditions []models.Condition
	Samples    []*models.Sample
	Output     io.Writer
	Sink       store.Store
}

// Orchestrator executes a validated run plan. pkg/engine provides the
// production implementation.
type Orchestrator interface {
	Run(ctx context.Context, params RunParams) (runner.Summary, error)
}

// Driver owns the experiment lifecycle: draft → running → completed or
// failed.
type Driver struct {
	store  store.Store
	orch   Orchestrator
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewDriver creates a driver over the given store and orchestrator.
func NewDriver(st store.Store, orch Orchestrator, logger *slog.Logger) *Driver {
	return &Driver{
		store:  st,
		orch:   orch,
		logger: logger.With("component", "experiment_driver"),
	}
}

// Start validates the experiment's run plan and, when it holds, launches
// the orchestrator in a background goroutine with runId = experiment id.
// Validation failures return a *StartError and leave the stored status
// untouched.
func (d *Driver) Start(ctx context.Context, id string) error {
	exp, err := d.store.GetExperiment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &StartError{Status: http.StatusNotFound, Reason: fmt.Sprintf("experiment %q does not exist", id)}
	}
	if err != nil {
		return fmt.Errorf("failed to load experiment %s: %w", id, err)
	}

	if exp.Status != models.ExperimentStatusDraft {
		return &StartError{Status: http.StatusConflict, Reason: fmt.Sprintf("experiment is %s, only draft experiments can start", exp.Status)}
	}
	if len(exp.Conditions) == 0 {
		return &StartError{Status: http.StatusBadRequest, Reason: "experiment has no conditions"}
	}
	for _, c := range exp.Conditions {
		if !c.IsValid() {
			return &StartError{Status: http.StatusBadRequest, Reason: fmt.Sprintf("unknown condition %q", c)}
		}
	}

	cfg, err := config.Parse(exp.Config, "")
	if err != nil {
		return &StartError{Status: http.StatusUnprocessableEntity, Reason: fmt.Sprintf("engine config rejected: %v", err)}
	}

	scenes, err := d.store.ListScenes(ctx, exp.SceneFilter)
	if err != nil {
		return fmt.Errorf("failed to list scenes for experiment %s: %w", id, err)
	}
	if len(scenes) == 0 {
		return &StartError{Status: http.StatusUnprocessableEntity, Reason: "no scenes match the experiment's filter"}
	}
	samples := ExpandScenes(scenes)
	if len(samples) == 0 {
		return &StartError{Status: http.StatusUnprocessableEntity, Reason: "matched scenes expand to no samples"}
	}

	if err := os.MkdirAll(cfg.RunSettings.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	outputPath := filepath.Join(cfg.RunSettings.OutputDir, exp.ID+".jsonl")
	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create run output %s: %w", outputPath, err)
	}

	if err := d.store.SetExperimentStatus(ctx, id, models.ExperimentStatusRunning); err != nil {
		_ = output.Close()
		return fmt.Errorf("failed to mark experiment %s running: %w", id, err)
	}

	d.logger.Info("Experiment launched",
		"experiment_id", id,
		"conditions", len(exp.Conditions),
		"samples", len(samples),
		"output", outputPath)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { _ = output.Close() }()

		summary, runErr := d.orch.Run(ctx, RunParams{
			RunID:      exp.ID,
			Config:     cfg,
			Conditions: exp.Conditions,
			Samples:    samples,
			Output:     output,
			Sink:       d.store,
		})

		// The status write must survive the cancellation that may have
		// ended the run.
		finishCtx := context.WithoutCancel(ctx)
		status := models.ExperimentStatusCompleted
		if runErr != nil {
			status = models.ExperimentStatusFailed
			d.logger.Error("Experiment failed", "experiment_id", id, "error", runErr)
		} else {
			d.logger.Info("Experiment completed",
				"experiment_id", id,
				"total", summary.Total,
				"ok", summary.OK,
				"needs_review", summary.NeedsReview,
				"errors", summary.Errors)
		}
		if err := d.store.SetExperimentStatus(finishCtx, id, status); err != nil {
			d.logger.Error("Failed to record experiment status", "experiment_id", id, "status", status, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every launched experiment has finished.
func (d *Driver) Wait() {
	d.wg.Wait()
}

// Delete removes the experiment and all its run records.
func (d *Driver) Delete(ctx context.Context, id string) error {
	if err := d.store.DeleteExperiment(ctx, id); err != nil {
		return fmt.Errorf("failed to delete experiment %s: %w", id, err)
	}
	d.logger.Info("Experiment deleted", "experiment_id", id)
	return nil
}

// RecoverOrphans marks experiments stuck in running status as failed.
// Callers invoke it at startup, before launching anything: a running
// experiment without a live orchestrator is a leftover from a crashed
// process.
func (d *Driver) RecoverOrphans(ctx context.Context) (int, error) {
	orphans, err := d.store.ListExperimentsByStatus(ctx, models.ExperimentStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to list running experiments: %w", err)
	}
	for _, exp := range orphans {
		if err := d.store.SetExperimentStatus(ctx, exp.ID, models.ExperimentStatusFailed); err != nil {
			return 0, fmt.Errorf("failed to fail orphaned experiment %s: %w", exp.ID, err)
		}
		d.logger.Warn("Recovered orphaned experiment", "experiment_id", exp.ID)
	}
	return len(orphans), nil
}
