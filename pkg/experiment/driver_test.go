package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/runner"
	"github.com/kotoba-lab/tessa/pkg/store"
)

type fakeOrchestrator struct {
	mu     sync.Mutex
	params []RunParams
	err    error
}

func (f *fakeOrchestrator) Run(_ context.Context, params RunParams) (runner.Summary, error) {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	if f.err != nil {
		return runner.Summary{}, f.err
	}
	total := len(params.Samples) * len(params.Conditions)
	return runner.Summary{Total: total, OK: total}, nil
}

func (f *fakeOrchestrator) launched() []RunParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RunParams(nil), f.params...)
}

func validConfig(t *testing.T) []byte {
	t.Helper()
	return []byte(fmt.Sprintf(`
runSettings:
  outputDir: %s
components:
  translator:
    model:
      provider: mock
      name: mock-1
`, t.TempDir()))
}

func seedExperiment(t *testing.T, st store.Store, cfg []byte, status models.ExperimentStatus) *models.Experiment {
	t.Helper()
	ctx := context.Background()
	exp := &models.Experiment{
		ID:         "exp-1",
		Name:       "pipeline comparison",
		Config:     cfg,
		Conditions: []models.Condition{models.ConditionA0, models.ConditionA3},
		Status:     models.ExperimentStatusDraft,
	}
	require.NoError(t, st.CreateExperiment(ctx, exp))
	if status != models.ExperimentStatusDraft {
		require.NoError(t, st.SetExperimentStatus(ctx, exp.ID, status))
	}
	require.NoError(t, st.PutScene(ctx, &models.Scene{
		SceneID: "scene-1",
		LangSrc: "ja",
		LangTgt: "en",
		Segments: []models.Segment{
			{T: 0, Kind: models.SegmentKindNarration, Text: "夜だった。"},
			{T: 1, Kind: models.SegmentKindDialogue, Speaker: "ユキ", Text: "行くよ。"},
		},
	}))
	return exp
}

func startErrorStatus(t *testing.T, err error) int {
	t.Helper()
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	return startErr.Status
}

func TestStartLaunchesValidatedPlan(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	cfg := validConfig(t)
	exp := seedExperiment(t, st, cfg, models.ExperimentStatusDraft)
	orch := &fakeOrchestrator{}
	driver := NewDriver(st, orch, slog.Default())

	require.NoError(t, driver.Start(ctx, exp.ID))
	driver.Wait()

	launched := orch.launched()
	require.Len(t, launched, 1)
	assert.Equal(t, exp.ID, launched[0].RunID, "run id is the experiment id")
	assert.Len(t, launched[0].Samples, 2)
	assert.Equal(t, exp.Conditions, launched[0].Conditions)
	assert.NotNil(t, launched[0].Sink)

	loaded, err := st.GetExperiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentStatusCompleted, loaded.Status)

	// The JSONL destination exists even for an empty run.
	outputDir := launched[0].Config.RunSettings.OutputDir
	_, err = os.Stat(filepath.Join(outputDir, exp.ID+".jsonl"))
	assert.NoError(t, err)
}

func TestStartOrchestratorFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	exp := seedExperiment(t, st, validConfig(t), models.ExperimentStatusDraft)
	driver := NewDriver(st, &fakeOrchestrator{err: errors.New("writer broke")}, slog.Default())

	require.NoError(t, driver.Start(ctx, exp.ID))
	driver.Wait()

	loaded, err := st.GetExperiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentStatusFailed, loaded.Status)
}

func TestStartValidationFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown experiment", func(t *testing.T) {
		driver := NewDriver(store.NewMemory(), &fakeOrchestrator{}, slog.Default())
		err := driver.Start(ctx, "missing")
		assert.Equal(t, http.StatusNotFound, startErrorStatus(t, err))
	})

	t.Run("not draft", func(t *testing.T) {
		st := store.NewMemory()
		exp := seedExperiment(t, st, validConfig(t), models.ExperimentStatusCompleted)
		driver := NewDriver(st, &fakeOrchestrator{}, slog.Default())
		err := driver.Start(ctx, exp.ID)
		assert.Equal(t, http.StatusConflict, startErrorStatus(t, err))
	})

	t.Run("no conditions", func(t *testing.T) {
		st := store.NewMemory()
		require.NoError(t, st.CreateExperiment(ctx, &models.Experiment{
			ID: "exp-1", Config: validConfig(t), Status: models.ExperimentStatusDraft,
		}))
		driver := NewDriver(st, &fakeOrchestrator{}, slog.Default())
		err := driver.Start(ctx, "exp-1")
		assert.Equal(t, http.StatusBadRequest, startErrorStatus(t, err))
	})

	t.Run("unknown condition", func(t *testing.T) {
		st := store.NewMemory()
		require.NoError(t, st.CreateExperiment(ctx, &models.Experiment{
			ID: "exp-1", Config: validConfig(t), Status: models.ExperimentStatusDraft,
			Conditions: []models.Condition{"B9"},
		}))
		driver := NewDriver(st, &fakeOrchestrator{}, slog.Default())
		err := driver.Start(ctx, "exp-1")
		assert.Equal(t, http.StatusBadRequest, startErrorStatus(t, err))
	})

	t.Run("config rejected", func(t *testing.T) {
		st := store.NewMemory()
		exp := seedExperiment(t, st, []byte("components: {}"), models.ExperimentStatusDraft)
		driver := NewDriver(st, &fakeOrchestrator{}, slog.Default())
		err := driver.Start(ctx, exp.ID)
		assert.Equal(t, http.StatusUnprocessableEntity, startErrorStatus(t, err))
	})

	t.Run("no matching scenes", func(t *testing.T) {
		st := store.NewMemory()
		require.NoError(t, st.CreateExperiment(ctx, &models.Experiment{
			ID: "exp-1", Config: validConfig(t), Status: models.ExperimentStatusDraft,
			Conditions:  []models.Condition{models.ConditionA0},
			SceneFilter: models.SceneFilter{Split: "missing"},
		}))
		driver := NewDriver(st, &fakeOrchestrator{}, slog.Default())
		err := driver.Start(ctx, "exp-1")
		assert.Equal(t, http.StatusUnprocessableEntity, startErrorStatus(t, err))
	})
}

func TestStartFailureLeavesStatusUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	exp := seedExperiment(t, st, []byte("components: {}"), models.ExperimentStatusDraft)
	driver := NewDriver(st, &fakeOrchestrator{}, slog.Default())

	require.Error(t, driver.Start(ctx, exp.ID))

	loaded, err := st.GetExperiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentStatusDraft, loaded.Status)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	exp := seedExperiment(t, st, validConfig(t), models.ExperimentStatusCompleted)
	require.NoError(t, st.AppendRun(ctx, &models.RunRecord{
		RunID: exp.ID, SampleID: "scene-1:0", Condition: models.ConditionA0, Status: models.RunStatusOK,
	}))
	driver := NewDriver(st, &fakeOrchestrator{}, slog.Default())

	require.NoError(t, driver.Delete(ctx, exp.ID))

	_, err := st.GetExperiment(ctx, exp.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	runs, err := st.ListRuns(ctx, exp.ID)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecoverOrphans(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedExperiment(t, st, validConfig(t), models.ExperimentStatusRunning)
	driver := NewDriver(st, &fakeOrchestrator{}, slog.Default())

	recovered, err := driver.RecoverOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	loaded, err := st.GetExperiment(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentStatusFailed, loaded.Status)

	recovered, err = driver.RecoverOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, recovered)
}
