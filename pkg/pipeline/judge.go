package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/kotoba-lab/tessa/pkg/constraint"
	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
)

// Heuristic structural scores, used when no model is wired or an iteration
// fails to parse.
const (
	heuristicConstraintCompliance = 0.75
	heuristicStyleFit             = 0.70
)

// Heuristic overall weights.
const (
	weightAdequacy             = 0.40
	weightFluency              = 0.20
	weightConstraintCompliance = 0.25
	weightStyleFit             = 0.15
)

// Judge scores a final translation on the five-dimensional rubric. With a
// model it runs judgeRuns independent calls and reduces each dimension by
// median; it never fails the pair.
type Judge struct {
	stage  Stage
	runs   int
	logger *slog.Logger
}

// NewJudge creates a judge. runs is clamped to at least 1.
func NewJudge(stage Stage, runs int, logger *slog.Logger) *Judge {
	if runs < 1 {
		runs = 1
	}
	return &Judge{stage: stage, runs: runs, logger: logger.With("component", "judge")}
}

// Score evaluates the final translation. The reference translation, when
// the sample carries one, is visible to the judge only.
func (j *Judge) Score(ctx context.Context, sample *models.Sample, translation string, constraints models.Constraints) (models.ScoreBreakdown, models.TokenUsage) {
	if !j.stage.hasModel() {
		return heuristicScore(sample, translation), models.TokenUsage{}
	}

	reference := ""
	if sample.Reference != nil {
		reference = sample.Reference.En
	}
	req := j.stage.request(map[string]string{
		"text":        sample.JA.Text,
		"reference":   reference,
		"constraints": constraint.Render(constraints),
		"translation": translation,
	}, "", llm.ResponseFormatJSON)

	var usage models.TokenUsage
	scores := make([]models.ScoreBreakdown, 0, j.runs)
	for i := 0; i < j.runs; i++ {
		result, err := j.stage.Gateway.Complete(ctx, j.stage.Component, req)
		if err != nil {
			j.logger.Warn("Judge call failed, scoring iteration heuristically", "sample_id", sample.ID, "iteration", i, "error", err)
			scores = append(scores, heuristicScore(sample, translation))
			continue
		}
		usage.Add(result.Usage)

		score, ok := parseScore(result.Text)
		if !ok {
			j.logger.Debug("Judge output unparseable, scoring iteration heuristically", "sample_id", sample.ID, "iteration", i)
			score = heuristicScore(sample, translation)
		}
		scores = append(scores, score)
	}

	return medianScore(scores), usage
}

// parseScore decodes one judge response and clamps every dimension.
func parseScore(output string) (models.ScoreBreakdown, bool) {
	extracted := llm.ExtractJSON(output)
	if extracted == "" {
		return models.ScoreBreakdown{}, false
	}
	var score models.ScoreBreakdown
	if err := json.Unmarshal([]byte(extracted), &score); err != nil {
		return models.ScoreBreakdown{}, false
	}
	score.Adequacy = clamp01(score.Adequacy)
	score.Fluency = clamp01(score.Fluency)
	score.ConstraintCompliance = clamp01(score.ConstraintCompliance)
	score.StyleFit = clamp01(score.StyleFit)
	score.Overall = clamp01(score.Overall)
	return score, true
}

// medianScore reduces each dimension, overall included, by median.
func medianScore(scores []models.ScoreBreakdown) models.ScoreBreakdown {
	pick := func(get func(models.ScoreBreakdown) float64) float64 {
		values := make([]float64, len(scores))
		for i, s := range scores {
			values[i] = get(s)
		}
		return median(values)
	}
	return models.ScoreBreakdown{
		Adequacy:             pick(func(s models.ScoreBreakdown) float64 { return s.Adequacy }),
		Fluency:              pick(func(s models.ScoreBreakdown) float64 { return s.Fluency }),
		ConstraintCompliance: pick(func(s models.ScoreBreakdown) float64 { return s.ConstraintCompliance }),
		StyleFit:             pick(func(s models.ScoreBreakdown) float64 { return s.StyleFit }),
		Overall:              pick(func(s models.ScoreBreakdown) float64 { return s.Overall }),
	}
}

// median returns the middle value; for an even count, the mean of the two
// middle values.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// heuristicScore is the deterministic fallback rubric: token-overlap
// adequacy against the reference (or the source when none exists),
// length-ratio fluency, and constant structural scores.
func heuristicScore(sample *models.Sample, translation string) models.ScoreBreakdown {
	target := sample.JA.Text
	if sample.Reference != nil && sample.Reference.En != "" {
		target = sample.Reference.En
	}

	adequacy := tokenOverlap(translation, target)
	fluency := lengthRatioScore(translation, sample.JA.Text)

	score := models.ScoreBreakdown{
		Adequacy:             adequacy,
		Fluency:              fluency,
		ConstraintCompliance: heuristicConstraintCompliance,
		StyleFit:             heuristicStyleFit,
	}
	score.Overall = clamp01(
		weightAdequacy*score.Adequacy +
			weightFluency*score.Fluency +
			weightConstraintCompliance*score.ConstraintCompliance +
			weightStyleFit*score.StyleFit)
	return score
}

// tokenOverlap is the share of distinct lowercased tokens of b found in a,
// a crude adequacy proxy.
func tokenOverlap(a, b string) float64 {
	aTokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(a)) {
		aTokens[tok] = true
	}
	bTokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(b)) {
		bTokens[tok] = true
	}
	if len(bTokens) == 0 {
		return 0
	}
	matched := 0
	for tok := range bTokens {
		if aTokens[tok] {
			matched++
		}
	}
	return clamp01(float64(matched) / float64(len(bTokens)))
}

// lengthRatioScore rewards translations whose length is comparable to the
// source.
func lengthRatioScore(translation, source string) float64 {
	transLen := float64(len([]rune(translation)))
	srcLen := float64(len([]rune(source)))
	if transLen == 0 || srcLen == 0 {
		return 0
	}
	ratio := transLen / srcLen
	return clamp01(1 - math.Abs(1-ratio)/2)
}
