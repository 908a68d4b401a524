package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/engine"
	"github.com/kotoba-lab/tessa/pkg/experiment"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/store"
)

func experimentScene(id string, segments int) *models.Scene {
	scene := &models.Scene{
		SceneID: id,
		LangSrc: "ja",
		LangTgt: "en",
		Split:   "dev",
	}
	for i := 0; i < segments; i++ {
		scene.Segments = append(scene.Segments, models.Segment{
			T: i, Kind: models.SegmentKindNarration, Text: fmt.Sprintf("Line %d.", i),
		})
	}
	return scene
}

func TestCancelledExperimentCompletesCleanly(t *testing.T) {
	outputDir := t.TempDir()
	memory := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, memory.PutScene(ctx, experimentScene("sc-1", 5)))
	require.NoError(t, memory.PutScene(ctx, experimentScene("sc-2", 5)))
	require.NoError(t, memory.CreateExperiment(ctx, &models.Experiment{
		ID:         "exp-1",
		Name:       "cancellation",
		Status:     models.ExperimentStatusDraft,
		Conditions: []models.Condition{models.ConditionA0, models.ConditionA2},
		Config: []byte(fmt.Sprintf(`
runSettings:
  concurrency: 2
  outputDir: %s
defaults:
  constraints:
    targetLang: en
components:
  translator:
    model:
      provider: mock
      name: mock-1
`, outputDir)),
	}))

	driver := experiment.NewDriver(memory, &engine.Orchestrator{Logger: slog.Default()}, slog.Default())
	require.NoError(t, driver.Start(ctx, "exp-1"))
	cancel()
	driver.Wait()

	// Cooperative cancellation is not a failure: admitted pairs finish,
	// nothing else starts, and the experiment lands in completed.
	exp, err := memory.GetExperiment(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExperimentStatusCompleted, exp.Status)

	data, err := os.ReadFile(filepath.Join(outputDir, "exp-1.jsonl"))
	require.NoError(t, err)
	records := decodeRecords(t, data)
	assert.LessOrEqual(t, len(records), 20, "2 scenes x 5 segments x 2 conditions is the ceiling")
	for _, record := range records {
		assert.Equal(t, "exp-1", record.RunID)
		assert.True(t, record.Status.IsValid(), "every emitted line is a complete record")
	}

	// The store sink saw exactly what the file saw.
	stored, err := memory.ListRuns(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Len(t, stored, len(records))
}
