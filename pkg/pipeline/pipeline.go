// Package pipeline implements the five stages a (sample, condition) pair
// flows through: state building, translation, verification, repair and
// judging. Stages that can recover from model failures (state builder,
// verifier, judge) fall back to deterministic heuristics and never fail the
// pair; translator and repairer surface model errors to the orchestrator.
package pipeline

import (
	"encoding/json"

	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/prompt"
)

// stateNotProvided substitutes for the state JSON when a condition runs
// without state.
const stateNotProvided = "not provided"

// Stage holds what every pipeline stage needs: the gateway, the component
// name it calls under, its model, and its resolved prompt. A nil Model
// means the stage runs its heuristic path.
type Stage struct {
	Gateway   *llm.Gateway
	Component string
	Model     *llm.ModelSpec
	Prompt    prompt.Resolved
}

// hasModel reports whether the stage has a model wired.
func (s *Stage) hasModel() bool {
	return s.Model != nil
}

// messages assembles the conversation for one stage call: system message,
// artifact few-shots, then the rendered template. When finalUser is
// non-empty it is appended as its own trailing user message; the mock
// provider operates on that last message.
func (s *Stage) messages(vars map[string]string, finalUser string) []llm.Message {
	var msgs []llm.Message
	if s.Prompt.System != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: s.Prompt.System})
	}
	for _, shot := range s.Prompt.FewShots {
		msgs = append(msgs, llm.Message{Role: shot.Role, Content: shot.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt.Render(s.Prompt.Template, vars)})
	if finalUser != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: finalUser})
	}
	return msgs
}

// request builds a gateway request for the stage.
func (s *Stage) request(vars map[string]string, finalUser string, format llm.ResponseFormat) llm.Request {
	return llm.Request{
		Model:          *s.Model,
		Messages:       s.messages(vars, finalUser),
		ResponseFormat: format,
	}
}

// renderState produces the prompt form of a state record: pretty JSON, or
// the literal "not provided" marker.
func renderState(state *models.State) string {
	if state == nil {
		return stateNotProvided
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return stateNotProvided
	}
	return string(data)
}

// clamp01 confines a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
