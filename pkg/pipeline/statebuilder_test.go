package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/prompt"
)

func TestStateBuilderHeuristicWithoutModel(t *testing.T) {
	builder := NewStateBuilder(heuristicStage("stateBuilder", prompt.DefaultStateBuilder()), slog.Default())
	sample := testSample("彼女は鍵を握った。", "前の文。")

	state, usage := builder.Build(context.Background(), sample)
	require.NotNil(t, state)
	assert.Equal(t, "彼女は鍵を握った。", state.Utterance)
	assert.Equal(t, "unknown", state.Speaker)
	assert.Equal(t, "unknown", state.Addressee)
	assert.Empty(t, state.Entities)
	assert.Equal(t, "彼女は鍵を握った。", state.CoreMeaning)
	assert.Equal(t, "前の文。", state.Implicature)
	assert.Zero(t, usage.Total)
}

func TestStateBuilderHeuristicTruncatesUtterance(t *testing.T) {
	builder := NewStateBuilder(heuristicStage("stateBuilder", prompt.DefaultStateBuilder()), slog.Default())
	long := strings.Repeat("あ", 200)

	state, _ := builder.Build(context.Background(), testSample(long, ""))
	assert.Len(t, []rune(state.Utterance), heuristicUtteranceLimit)
	assert.Equal(t, long, state.CoreMeaning, "core meaning keeps the full text")
}

func TestStateBuilderParsesModelOutput(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{
		Text: `{"utterance": "彼女は鍵を握った。", "speaker": "ユキ", "addressee": "カイ", "entities": [{"name": "鍵", "desc": "the key"}], "coreMeaning": "She gripped the key.", "implicature": "She will not give it up."}`,
	})
	builder := NewStateBuilder(newStage(t, scripted, "stateBuilder", prompt.DefaultStateBuilder()), slog.Default())

	state, _ := builder.Build(context.Background(), testSample("彼女は鍵を握った。", ""))
	assert.Equal(t, "ユキ", state.Speaker)
	assert.Equal(t, "カイ", state.Addressee)
	require.Len(t, state.Entities, 1)
	assert.Equal(t, "鍵", state.Entities[0].Name)
	assert.Equal(t, "She will not give it up.", state.Implicature)
}

func TestStateBuilderMissingFieldsFallBack(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{
		Text: `{"speaker": "ユキ"}`,
	})
	builder := NewStateBuilder(newStage(t, scripted, "stateBuilder", prompt.DefaultStateBuilder()), slog.Default())
	sample := testSample("こんにちは。", "文脈。")

	state, _ := builder.Build(context.Background(), sample)
	assert.Equal(t, "ユキ", state.Speaker)
	assert.Equal(t, "unknown", state.Addressee)
	assert.Equal(t, "こんにちは。", state.Utterance)
	assert.Equal(t, "文脈。", state.Implicature)
}

func TestStateBuilderParseFailureFallsBackWholesale(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{Text: "I cannot answer in JSON."})
	builder := NewStateBuilder(newStage(t, scripted, "stateBuilder", prompt.DefaultStateBuilder()), slog.Default())
	sample := testSample("こんにちは。", "")

	state, _ := builder.Build(context.Background(), sample)
	assert.Equal(t, "unknown", state.Speaker)
	assert.Equal(t, "こんにちは。", state.CoreMeaning)
}

func TestStateBuilderProviderErrorNeverFails(t *testing.T) {
	exhausted := llm.NewScriptedProvider("scripted")
	builder := NewStateBuilder(newStage(t, exhausted, "stateBuilder", prompt.DefaultStateBuilder()), slog.Default())

	state, usage := builder.Build(context.Background(), testSample("こんにちは。", ""))
	require.NotNil(t, state)
	assert.Equal(t, "unknown", state.Speaker)
	assert.Zero(t, usage.Total)
}
