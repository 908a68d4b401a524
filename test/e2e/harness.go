// Package e2e runs full pipeline scenarios in process: engine assembly
// from a config document, the mock provider for deterministic
// translations, and scripted providers where a scenario needs to steer a
// single stage.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/config"
	"github.com/kotoba-lab/tessa/pkg/engine"
	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
)

// parseConfig builds a validated config anchored at baseDir.
func parseConfig(t *testing.T, doc, baseDir string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(doc), baseDir)
	require.NoError(t, err)
	return cfg
}

// newEngine assembles an engine; extra providers override built-ins that
// share their name.
func newEngine(t *testing.T, cfg *config.Config, extra ...llm.Provider) *engine.Engine {
	t.Helper()
	eng, err := engine.New(cfg, slog.Default(), extra...)
	require.NoError(t, err)
	return eng
}

func jaSample(id, text string) *models.Sample {
	return &models.Sample{ID: id, JA: models.SourceText{Text: text}}
}

// runToRecords executes one run in memory and decodes its JSONL output.
func runToRecords(t *testing.T, eng *engine.Engine, runID string, samples []*models.Sample, conditions []models.Condition) []*models.RunRecord {
	t.Helper()
	var out bytes.Buffer
	_, err := eng.Run(context.Background(), runID, samples, conditions, &out, nil)
	require.NoError(t, err)
	return decodeRecords(t, out.Bytes())
}

func decodeRecords(t *testing.T, data []byte) []*models.RunRecord {
	t.Helper()
	var records []*models.RunRecord
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		var record models.RunRecord
		require.NoError(t, json.Unmarshal([]byte(line), &record), "line: %s", line)
		records = append(records, &record)
	}
	return records
}

// recordByKey indexes decoded records by (sampleId, condition).
func recordByKey(records []*models.RunRecord) map[string]*models.RunRecord {
	indexed := make(map[string]*models.RunRecord, len(records))
	for _, record := range records {
		indexed[record.SampleID+"|"+string(record.Condition)] = record
	}
	return indexed
}

// countingProvider wraps another provider and counts completions that
// actually reach it, i.e. cache misses.
type countingProvider struct {
	inner llm.Provider
	calls atomic.Int64
}

var _ llm.Provider = (*countingProvider)(nil)

func newCountingProvider(inner llm.Provider) *countingProvider {
	return &countingProvider{inner: inner}
}

func (p *countingProvider) Name() string {
	return p.inner.Name()
}

func (p *countingProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	p.calls.Add(1)
	return p.inner.Complete(ctx, req)
}

func (p *countingProvider) Calls() int64 {
	return p.calls.Load()
}
