package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
)

// heuristicUtteranceLimit caps the heuristic utterance at 120 runes.
const heuristicUtteranceLimit = 120

// StateBuilder extracts narrative state for the stateful translator. It
// never fails the pair: model and parse failures fall back to the
// heuristic record.
type StateBuilder struct {
	stage  Stage
	logger *slog.Logger
}

// NewStateBuilder creates a state builder. A stage without a model always
// takes the heuristic path.
func NewStateBuilder(stage Stage, logger *slog.Logger) *StateBuilder {
	return &StateBuilder{stage: stage, logger: logger.With("component", "state_builder")}
}

// Build produces the state record for a sample.
func (b *StateBuilder) Build(ctx context.Context, sample *models.Sample) (*models.State, models.TokenUsage) {
	fallback := heuristicState(sample.JA.Text, sample.JA.Context)
	if !b.stage.hasModel() {
		return fallback, models.TokenUsage{}
	}

	req := b.stage.request(map[string]string{
		"text":    sample.JA.Text,
		"context": sample.JA.Context,
	}, sample.JA.Text, llm.ResponseFormatJSON)

	result, err := b.stage.Gateway.Complete(ctx, b.stage.Component, req)
	if err != nil {
		b.logger.Warn("State model call failed, using heuristic state", "sample_id", sample.ID, "error", err)
		return fallback, models.TokenUsage{}
	}

	state, ok := parseState(result.Text, fallback)
	if !ok {
		b.logger.Debug("State output unparseable, using heuristic state", "sample_id", sample.ID)
	}
	return state, result.Usage
}

// parseState decodes the model's JSON output. Missing fields fall back
// field-wise to the heuristic record; a parse failure falls back wholesale.
func parseState(output string, fallback *models.State) (*models.State, bool) {
	extracted := llm.ExtractJSON(output)
	if extracted == "" {
		return fallback, false
	}

	var decoded struct {
		Utterance   string          `json:"utterance"`
		Speaker     string          `json:"speaker"`
		Addressee   string          `json:"addressee"`
		Entities    []models.Entity `json:"entities"`
		CoreMeaning string          `json:"coreMeaning"`
		Implicature string          `json:"implicature"`
	}
	if err := json.Unmarshal([]byte(extracted), &decoded); err != nil {
		return fallback, false
	}

	state := &models.State{
		Utterance:   decoded.Utterance,
		Speaker:     decoded.Speaker,
		Addressee:   decoded.Addressee,
		Entities:    decoded.Entities,
		CoreMeaning: decoded.CoreMeaning,
		Implicature: decoded.Implicature,
	}
	if state.Utterance == "" {
		state.Utterance = fallback.Utterance
	}
	if state.Speaker == "" {
		state.Speaker = fallback.Speaker
	}
	if state.Addressee == "" {
		state.Addressee = fallback.Addressee
	}
	if state.Entities == nil {
		state.Entities = []models.Entity{}
	}
	if state.CoreMeaning == "" {
		state.CoreMeaning = fallback.CoreMeaning
	}
	if state.Implicature == "" {
		state.Implicature = fallback.Implicature
	}
	return state, true
}

// heuristicState is the deterministic state record used without a model.
func heuristicState(text, context string) *models.State {
	utterance := text
	if runes := []rune(utterance); len(runes) > heuristicUtteranceLimit {
		utterance = string(runes[:heuristicUtteranceLimit])
	}
	return &models.State{
		Utterance:   utterance,
		Speaker:     "unknown",
		Addressee:   "unknown",
		Entities:    []models.Entity{},
		CoreMeaning: text,
		Implicature: context,
	}
}
