// Package engine assembles a validated configuration into a runnable
// pipeline: providers, gateway, resolved prompts, stages and the runner.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/kotoba-lab/tessa/pkg/config"
	"github.com/kotoba-lab/tessa/pkg/hardcheck"
	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/pipeline"
	"github.com/kotoba-lab/tessa/pkg/prompt"
	"github.com/kotoba-lab/tessa/pkg/runner"
	"github.com/kotoba-lab/tessa/pkg/store"
)

// Engine holds the assembled pipeline for one configuration. It is safe
// for concurrent runs.
type Engine struct {
	cfg        *config.Config
	pipeline   runner.Pipeline
	provenance map[string]string
	// resolved keeps the prompts of model-wired components for the per-run
	// prompt dump.
	resolved map[string]prompt.Resolved
	logger   *slog.Logger
}

// defaultPrompts maps component names to their built-in prompts.
func defaultPrompts() map[string]prompt.Resolved {
	return map[string]prompt.Resolved{
		config.ComponentTranslator:          prompt.DefaultTranslator(),
		config.ComponentTranslatorWithState: prompt.DefaultTranslator(),
		config.ComponentStateBuilder:        prompt.DefaultStateBuilder(),
		config.ComponentVerifier:            prompt.DefaultVerifier(),
		config.ComponentRepairer:            prompt.DefaultRepairer(),
		config.ComponentJudge:               prompt.DefaultJudge(),
	}
}

// New assembles an engine from a validated configuration. The extra
// providers, when given, are registered alongside the built-in ones; tests
// use this to script stage responses.
func New(cfg *config.Config, logger *slog.Logger, extra ...llm.Provider) (*Engine, error) {
	providers := []llm.Provider{llm.NewMockProvider()}
	if cfg.UsesProvider(llm.ProviderOpenAI) {
		openai, err := llm.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"))
		if err != nil {
			return nil, err
		}
		providers = append(providers, openai)
	}
	providers = append(providers, extra...)

	gateway := llm.NewGateway(
		llm.NewRegistry(providers...),
		llm.NewCache(cfg.RunSettings.CacheDir, logger),
		llm.NewRateLimiter(cfg.RunSettings.RPM, cfg.RunSettings.TPM),
		logger,
	)

	resolver := prompt.NewResolver(cfg.BaseDir(), cfg.PromptArtifacts)
	defaults := defaultPrompts()

	stages := make(map[string]pipeline.Stage, len(defaults))
	resolved := make(map[string]prompt.Resolved)
	provenance := make(map[string]string)
	for name, def := range defaults {
		stages[name] = pipeline.Stage{Component: name, Prompt: def}
	}

	var resolveErr error
	cfg.Components.Each(func(name string, component *config.Component) {
		if resolveErr != nil {
			return
		}
		res, err := resolver.Resolve(component.Prompt, defaults[name])
		if err != nil {
			resolveErr = fmt.Errorf("failed to resolve %s prompt: %w", name, err)
			return
		}
		model := component.Model
		stages[name] = pipeline.Stage{
			Gateway:   gateway,
			Component: name,
			Model:     &model,
			Prompt:    res,
		}
		resolved[name] = res
		if res.ArtifactID != "" {
			provenance[name] = res.ArtifactID
		}
	})
	if resolveErr != nil {
		return nil, resolveErr
	}

	engine := hardcheck.New(cfg.Defaults.HardCheckToggles(), cfg.Defaults.HardChecks.MaxLength)

	p := runner.Pipeline{
		StateBuilder: pipeline.NewStateBuilder(stages[config.ComponentStateBuilder], logger),
		Translator:   pipeline.NewTranslator(stages[config.ComponentTranslator], logger),
		Verifier:     pipeline.NewVerifier(engine, stages[config.ComponentVerifier], logger),
		Repairer:     pipeline.NewRepairer(stages[config.ComponentRepairer], logger),
		Judge:        pipeline.NewJudge(stages[config.ComponentJudge], cfg.RunSettings.JudgeRuns, logger),
	}
	if cfg.Components.TranslatorWithState != nil {
		p.TranslatorWithState = pipeline.NewTranslator(stages[config.ComponentTranslatorWithState], logger)
	}

	return &Engine{
		cfg:        cfg,
		pipeline:   p,
		provenance: provenance,
		resolved:   resolved,
		logger:     logger.With("component", "engine"),
	}, nil
}

// Run executes samples × conditions as one run, streaming records to
// output and, when sink is non-nil, to the store.
func (e *Engine) Run(ctx context.Context, runID string, samples []*models.Sample, conditions []models.Condition, output io.Writer, sink store.Store) (runner.Summary, error) {
	e.dumpPrompts(runID)

	jobs := make([]runner.Job, 0, len(samples)*len(conditions))
	for _, sample := range samples {
		for _, condition := range conditions {
			jobs = append(jobs, runner.Job{Sample: sample, Condition: condition})
		}
	}

	r := runner.New(e.pipeline, runner.Options{
		RunID:       runID,
		Concurrency: e.cfg.RunSettings.Concurrency,
		MaxRepairs:  *e.cfg.RunSettings.MaxRepairs,
		Defaults:    e.cfg.Defaults.Constraints,
		Provenance:  e.provenance,
		Output:      output,
		Sink:        sink,
		Logger:      e.logger,
	})
	return r.Run(ctx, jobs)
}

// RunOne executes a single (sample, condition) pair under a fresh run id
// and returns its record.
func (e *Engine) RunOne(ctx context.Context, sample *models.Sample, condition models.Condition) (*models.RunRecord, error) {
	var buf bytes.Buffer
	runID := uuid.NewString()
	summary, err := e.Run(ctx, runID, []*models.Sample{sample}, []models.Condition{condition}, &buf, nil)
	if err != nil {
		return nil, err
	}
	if summary.Total != 1 {
		return nil, fmt.Errorf("expected one record, got %d", summary.Total)
	}
	var record models.RunRecord
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		return nil, fmt.Errorf("failed to decode run record: %w", err)
	}
	return &record, nil
}

// dumpPrompts writes the resolved prompt of every model-wired component
// under the configured resolvedPromptDir, once per run.
func (e *Engine) dumpPrompts(runID string) {
	dumper := prompt.NewDumper(e.cfg.RunSettings.ResolvedPromptDir, runID)
	for name, res := range e.resolved {
		if err := dumper.Dump(name, res); err != nil {
			e.logger.Warn("Failed to dump resolved prompt", "run_id", runID, "prompt_component", name, "error", err)
		}
	}
}
