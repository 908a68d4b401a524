package pipeline

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/hardcheck"
	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/prompt"
)

func defaultEngine() *hardcheck.Engine {
	return hardcheck.New(hardcheck.DefaultToggles(), 0)
}

func TestVerifierHardChecksOnlyWithoutModel(t *testing.T) {
	verifier := NewVerifier(defaultEngine(), heuristicStage("verifier", prompt.DefaultVerifier()), slog.Default())
	sample := testSample("こんにちは、世界。", "")

	// The candidate still carries Japanese script.
	result := verifier.Verify(context.Background(), sample, "こんにちは, 世界.", enConstraints())

	require.NotEmpty(t, result.HardChecks)
	assert.False(t, models.AllPassed(result.HardChecks))
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, models.SeverityMajor, result.Issues[0].Severity)
	assert.Zero(t, result.Usage.Total)
}

func TestVerifierCombinesHardAndLLMIssues(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{
		Text: `{"issues": [{"type": "OMISSION", "severity": "critical", "rationale": "dropped clause", "fixSuggestion": "restore it", "confidence": 0.9}]}`,
	})
	verifier := NewVerifier(defaultEngine(), newStage(t, scripted, "verifier", prompt.DefaultVerifier()), slog.Default())
	sample := testSample("鍵はここ。", "")
	constraints := enConstraints()
	constraints.Glossary = []models.GlossaryEntry{{Ja: "鍵", En: "Key", Strict: true}}

	result := verifier.Verify(context.Background(), sample, "The thing is here.", constraints)

	// Hard-check issues come first, reviewer issues after.
	require.Len(t, result.Issues, 2)
	assert.Equal(t, "hc-"+hardcheck.RuleGlossaryStrictMatches, result.Issues[0].ID)
	assert.Equal(t, models.IssueOmission, result.Issues[1].Type)
	assert.Equal(t, models.SeverityCritical, result.Issues[1].Severity)
}

func TestVerifierCoercesInvalidIssueFields(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{
		Text: `{"issues": [{"type": "MADE_UP", "severity": "catastrophic", "rationale": "odd", "confidence": 3.5}]}`,
	})
	verifier := NewVerifier(defaultEngine(), newStage(t, scripted, "verifier", prompt.DefaultVerifier()), slog.Default())

	result := verifier.Verify(context.Background(), testSample("text", ""), "text", enConstraints())

	var reviewerIssues []models.Issue
	for _, issue := range result.Issues {
		if issue.Rationale == "odd" {
			reviewerIssues = append(reviewerIssues, issue)
		}
	}
	require.Len(t, reviewerIssues, 1)
	assert.Equal(t, models.IssueOther, reviewerIssues[0].Type)
	assert.Equal(t, models.SeverityMinor, reviewerIssues[0].Severity)
	assert.Equal(t, 1.0, reviewerIssues[0].Confidence)
	assert.NotEmpty(t, reviewerIssues[0].ID, "missing id is synthesized")
}

func TestVerifierSynthesizedIDsAreStable(t *testing.T) {
	a := issueID(models.IssueOmission, "dropped clause")
	b := issueID(models.IssueOmission, "dropped clause")
	c := issueID(models.IssueAddition, "dropped clause")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("issue-")+12)
}

func TestVerifierParsesBareArrayReviewerOutput(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{
		Text: "```json\n[{\"type\": \"ADDITION\", \"severity\": \"major\", \"rationale\": \"invented detail\", \"confidence\": 0.7}]\n```",
	})
	verifier := NewVerifier(defaultEngine(), newStage(t, scripted, "verifier", prompt.DefaultVerifier()), slog.Default())

	result := verifier.Verify(context.Background(), testSample("text", ""), "text", enConstraints())

	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueAddition, result.Issues[0].Type)
	assert.Equal(t, models.SeverityMajor, result.Issues[0].Severity)
	assert.NotEmpty(t, result.Issues[0].ID)
}

func TestVerifierParseFailureYieldsHardIssuesOnly(t *testing.T) {
	scripted := llm.NewScriptedProvider("scripted", llm.Response{Text: "nothing structured here"})
	verifier := NewVerifier(defaultEngine(), newStage(t, scripted, "verifier", prompt.DefaultVerifier()), slog.Default())
	sample := testSample("こんにちは。", "")

	result := verifier.Verify(context.Background(), sample, "Hello.", enConstraints())
	assert.Empty(t, result.Issues)
	assert.True(t, models.AllPassed(result.HardChecks))
}

func TestVerifierProviderErrorNeverRaises(t *testing.T) {
	exhausted := llm.NewScriptedProvider("scripted")
	verifier := NewVerifier(defaultEngine(), newStage(t, exhausted, "verifier", prompt.DefaultVerifier()), slog.Default())

	result := verifier.Verify(context.Background(), testSample("こんにちは。", ""), "Hello.", enConstraints())
	assert.Empty(t, result.Issues)
	assert.NotEmpty(t, result.HardChecks)
}
