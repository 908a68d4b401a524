package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/prompt"
)

func someIssue() models.Issue {
	return models.Issue{
		ID:        "issue-1",
		Type:      models.IssueStyleViolation,
		Severity:  models.SeverityMinor,
		Rationale: "style drift",
	}
}

func TestRepairerEmptyIssuesUnchanged(t *testing.T) {
	repairer := NewRepairer(heuristicStage("repairer", prompt.DefaultRepairer()), slog.Default())

	repaired, usage, err := repairer.Repair(context.Background(), testSample("x", ""), "As-is.", nil, enConstraints(), nil)
	require.NoError(t, err)
	assert.Equal(t, "As-is.", repaired)
	assert.Zero(t, usage.Total)
}

func TestRepairerHeuristicStripsBannedPatterns(t *testing.T) {
	repairer := NewRepairer(heuristicStage("repairer", prompt.DefaultRepairer()), slog.Default())
	constraints := enConstraints()
	constraints.BannedPatterns = []string{`\bTL note:.*$`}

	repaired, _, err := repairer.Repair(context.Background(), testSample("x", ""),
		"She left. TL NOTE: keikaku means plan", []models.Issue{someIssue()}, constraints, nil)
	require.NoError(t, err)
	assert.Equal(t, "She left. ", repaired, "banned pattern removed case-insensitively")
}

func TestRepairerHeuristicTruncatesOverlongText(t *testing.T) {
	repairer := NewRepairer(heuristicStage("repairer", prompt.DefaultRepairer()), slog.Default())
	constraints := enConstraints()
	maxChars := 10
	constraints.Format.MaxChars = maxChars

	repaired, _, err := repairer.Repair(context.Background(), testSample("x", ""),
		strings.Repeat("a", 30), []models.Issue{someIssue()}, constraints, nil)
	require.NoError(t, err)
	assert.Len(t, []rune(repaired), maxChars)
	assert.True(t, strings.HasSuffix(repaired, "…"))
}

func TestRepairerWithModelRendersIssuesAndState(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{Text: "  Repaired translation.  "})
	repairer := NewRepairer(newStage(t, scripted, "repairer", prompt.DefaultRepairer()), slog.Default())
	state := &models.State{Speaker: "ユキ"}

	repaired, _, err := repairer.Repair(context.Background(), testSample("彼女は鍵を握った。", "前の文。"),
		"She held the thing.", []models.Issue{someIssue()}, enConstraints(), state)
	require.NoError(t, err)
	assert.Equal(t, "Repaired translation.", repaired)

	calls := scripted.Calls()
	require.Len(t, calls, 1)
	rendered := calls[0].Messages[len(calls[0].Messages)-1].Content
	assert.Contains(t, rendered, "She held the thing.")
	assert.Contains(t, rendered, `"id": "issue-1"`)
	assert.Contains(t, rendered, `"targetLang": "en"`)
	assert.Contains(t, rendered, `"speaker": "ユキ"`)
}

func TestRepairerSurfacesProviderError(t *testing.T) {
	exhausted := llm.NewScriptedProvider("scripted")
	repairer := NewRepairer(newStage(t, exhausted, "repairer", prompt.DefaultRepairer()), slog.Default())

	_, _, err := repairer.Repair(context.Background(), testSample("x", ""),
		"draft", []models.Issue{someIssue()}, enConstraints(), nil)
	require.Error(t, err)
	assert.True(t, llm.IsProviderError(err))
}
