package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kotoba-lab/tessa/pkg/constraint"
	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
)

// Translator produces the draft translation. Model errors are pair-fatal
// and surface to the orchestrator.
type Translator struct {
	stage  Stage
	logger *slog.Logger
}

// NewTranslator creates a translator. The stage must carry a model.
func NewTranslator(stage Stage, logger *slog.Logger) *Translator {
	return &Translator{stage: stage, logger: logger.With("component", stage.Component)}
}

// Translate renders the translation prompt and calls the model. The source
// text rides as the trailing user message; the rendered template carries
// context, state and constraints.
func (t *Translator) Translate(ctx context.Context, sample *models.Sample, constraints models.Constraints, state *models.State) (string, models.TokenUsage, error) {
	req := t.stage.request(map[string]string{
		"text":        sample.JA.Text,
		"context":     sample.JA.Context,
		"state":       renderState(state),
		"constraints": constraint.Render(constraints),
	}, sample.JA.Text, llm.ResponseFormatText)

	result, err := t.stage.Gateway.Complete(ctx, t.stage.Component, req)
	if err != nil {
		return "", models.TokenUsage{}, fmt.Errorf("translate sample %s: %w", sample.ID, err)
	}

	draft := strings.TrimRight(result.Text, " \t\n\r")
	return draft, result.Usage, nil
}
