package pipeline

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/prompt"
)

func TestTranslatorWithMockProvider(t *testing.T) {
	translator := NewTranslator(newStage(t, llm.NewMockProvider(), "translator", prompt.DefaultTranslator()), slog.Default())
	sample := testSample("こんにちは、世界。", "")

	draft, usage, err := translator.Translate(context.Background(), sample, enConstraints(), nil)
	require.NoError(t, err)
	assert.Equal(t, "こんにちは, 世界.", draft)
	assert.Positive(t, usage.Total)
}

func TestTranslatorRendersStateAndConstraints(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{Text: "She gripped the key.\n"})
	translator := NewTranslator(newStage(t, scripted, "translator", prompt.DefaultTranslator()), slog.Default())
	sample := testSample("彼女は鍵を握った。", "前の文。")
	state := &models.State{Utterance: "彼女は鍵を握った。", Speaker: "ユキ"}
	constraints := enConstraints()
	constraints.Tone = "tense"

	draft, _, err := translator.Translate(context.Background(), sample, constraints, state)
	require.NoError(t, err)
	assert.Equal(t, "She gripped the key.", draft, "draft is right-trimmed")

	calls := scripted.Calls()
	require.Len(t, calls, 1)
	msgs := calls[0].Messages
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)

	rendered := msgs[len(msgs)-2].Content
	assert.Contains(t, rendered, "前の文。")
	assert.Contains(t, rendered, `"speaker": "ユキ"`)
	assert.Contains(t, rendered, "- Tone: tense")
	assert.Equal(t, "彼女は鍵を握った。", msgs[len(msgs)-1].Content)
}

func TestTranslatorWithoutStateRendersMarker(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{Text: "ok"})
	translator := NewTranslator(newStage(t, scripted, "translator", prompt.DefaultTranslator()), slog.Default())

	_, _, err := translator.Translate(context.Background(), testSample("こんにちは。", ""), enConstraints(), nil)
	require.NoError(t, err)

	calls := scripted.Calls()
	require.Len(t, calls, 1)
	rendered := calls[0].Messages[len(calls[0].Messages)-2].Content
	assert.Contains(t, rendered, "not provided")
}

func TestTranslatorSurfacesProviderError(t *testing.T) {
	exhausted := llm.NewScriptedProvider("scripted")
	translator := NewTranslator(newStage(t, exhausted, "translator", prompt.DefaultTranslator()), slog.Default())

	_, _, err := translator.Translate(context.Background(), testSample("こんにちは。", ""), enConstraints(), nil)
	require.Error(t, err)
	assert.True(t, llm.IsProviderError(err))
}
