package engine

import (
	"context"
	"log/slog"

	"github.com/kotoba-lab/tessa/pkg/experiment"
	"github.com/kotoba-lab/tessa/pkg/runner"
)

// Orchestrator adapts the engine to the experiment driver: each launched
// experiment gets its own engine assembled from the experiment's config.
type Orchestrator struct {
	Logger *slog.Logger
}

var _ experiment.Orchestrator = (*Orchestrator)(nil)

// Run implements experiment.Orchestrator.
func (o *Orchestrator) Run(ctx context.Context, params experiment.RunParams) (runner.Summary, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	eng, err := New(params.Config, logger)
	if err != nil {
		return runner.Summary{}, err
	}
	return eng.Run(ctx, params.RunID, params.Samples, params.Conditions, params.Output, params.Sink)
}
