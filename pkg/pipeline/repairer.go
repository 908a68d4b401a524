package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kotoba-lab/tessa/pkg/constraint"
	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
)

// Repairer rewrites a translation so reported issues are resolved. It
// never inspects issue severities; that policy lives in the orchestrator.
// With a model wired, model errors are pair-fatal.
type Repairer struct {
	stage  Stage
	logger *slog.Logger
}

// NewRepairer creates a repairer. A stage without a model applies the
// deterministic heuristics instead.
func NewRepairer(stage Stage, logger *slog.Logger) *Repairer {
	return &Repairer{stage: stage, logger: logger.With("component", "repairer")}
}

// Repair returns the repaired translation. An empty issue list returns the
// translation unchanged.
func (r *Repairer) Repair(ctx context.Context, sample *models.Sample, translation string, issues []models.Issue, constraints models.Constraints, state *models.State) (string, models.TokenUsage, error) {
	if len(issues) == 0 {
		return translation, models.TokenUsage{}, nil
	}
	if !r.stage.hasModel() {
		return heuristicRepair(translation, constraints), models.TokenUsage{}, nil
	}

	issuesJSON, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		issuesJSON = []byte("[]")
	}

	req := r.stage.request(map[string]string{
		"text":        sample.JA.Text,
		"context":     sample.JA.Context,
		"translation": translation,
		"issues":      string(issuesJSON),
		"constraints": constraint.JSON(constraints),
		"state":       renderState(state),
	}, "", llm.ResponseFormatText)

	result, err := r.stage.Gateway.Complete(ctx, r.stage.Component, req)
	if err != nil {
		return "", models.TokenUsage{}, fmt.Errorf("repair sample %s: %w", sample.ID, err)
	}
	return strings.TrimSpace(result.Text), result.Usage, nil
}

// heuristicRepair strips banned patterns case-insensitively, then
// truncates to maxChars-1 plus an ellipsis when the result still exceeds
// format.maxChars.
func heuristicRepair(translation string, constraints models.Constraints) string {
	repaired := translation
	for _, pattern := range constraints.BannedPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			// Normalization already validated the pattern; an invalid one
			// here means constraints were built elsewhere. Skip it.
			continue
		}
		repaired = re.ReplaceAllString(repaired, "")
	}

	maxChars := constraints.Format.MaxChars
	if maxChars > 0 {
		if runes := []rune(repaired); len(runes) > maxChars {
			repaired = string(runes[:maxChars-1]) + "…"
		}
	}
	return repaired
}
