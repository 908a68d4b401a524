package hardcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/models"
)

func findCheck(t *testing.T, checks []models.HardCheckResult, id string) models.HardCheckResult {
	t.Helper()
	for _, hc := range checks {
		if hc.ID == id {
			return hc
		}
	}
	t.Fatalf("check %q not found in %v", id, checks)
	return models.HardCheckResult{}
}

func TestNoDisallowedJapanese(t *testing.T) {
	engine := New(DefaultToggles(), 0)

	checks := engine.Evaluate("こんにちは、世界。", "こんにちは, 世界.", models.Constraints{TargetLang: "en"})
	hc := findCheck(t, checks, RuleNoDisallowedJapanese)
	assert.False(t, hc.Passed)
	assert.Contains(t, hc.Details, "こんにちは,")

	checks = engine.Evaluate("こんにちは、世界。", "Hello, world.", models.Constraints{TargetLang: "en"})
	assert.True(t, findCheck(t, checks, RuleNoDisallowedJapanese).Passed)
}

func TestNoDisallowedJapaneseAllowList(t *testing.T) {
	engine := New(DefaultToggles(), 0)
	constraints := models.Constraints{AllowJapaneseTokens: []string{"カラオケ"}}

	checks := engine.Evaluate("", "They sang カラオケ all night", constraints)
	assert.True(t, findCheck(t, checks, RuleNoDisallowedJapanese).Passed)

	// Mixed token with Japanese beyond the allowed term still fails.
	checks = engine.Evaluate("", "They went to カラオケ屋 today", constraints)
	assert.False(t, findCheck(t, checks, RuleNoDisallowedJapanese).Passed)
}

func TestNoDisallowedJapaneseAllowListIsWholeToken(t *testing.T) {
	engine := New(DefaultToggles(), 0)
	constraints := models.Constraints{AllowJapaneseTokens: []string{"カラオケ"}}

	// The allowed term with trailing punctuation is a different
	// whitespace-delimited token and is not exempt.
	checks := engine.Evaluate("", "They went to カラオケ.", constraints)
	hc := findCheck(t, checks, RuleNoDisallowedJapanese)
	assert.False(t, hc.Passed)
	assert.Contains(t, hc.Details, "カラオケ.")
}

func TestGlossaryStrictMatches(t *testing.T) {
	engine := New(DefaultToggles(), 0)
	constraints := models.Constraints{
		Glossary: []models.GlossaryEntry{
			{Ja: "鍵", En: "Key", Strict: true},
			{Ja: "扉", En: "Door"},
		},
	}

	checks := engine.Evaluate("鍵はここ。", "鍵はここ.", constraints)
	hc := findCheck(t, checks, RuleGlossaryStrictMatches)
	assert.False(t, hc.Passed)
	assert.Contains(t, hc.Details, "Key")

	// Non-strict entries never fail the check.
	checks = engine.Evaluate("鍵はここ。", "The Key is here.", constraints)
	assert.True(t, findCheck(t, checks, RuleGlossaryStrictMatches).Passed)
}

func TestMaxLengthBounds(t *testing.T) {
	tests := []struct {
		name      string
		maxChars  int
		maxLength int
		text      string
		want      bool
	}{
		{"under per-sample bound", 10, 0, "short", true},
		{"over per-sample bound", 4, 0, "too long", false},
		{"over global bound", 0, 4, "too long", false},
		{"tighter of both applies", 100, 4, "too long", false},
		{"both set, under tighter", 6, 100, "passes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := New(DefaultToggles(), tt.maxLength)
			constraints := models.Constraints{Format: models.Format{MaxChars: tt.maxChars}}
			hc := findCheck(t, engine.Evaluate("", tt.text, constraints), RuleMaxLength)
			assert.Equal(t, tt.want, hc.Passed)
		})
	}
}

func TestMaxLengthAbsentWhenUnbounded(t *testing.T) {
	engine := New(DefaultToggles(), 0)
	for _, hc := range engine.Evaluate("", "anything at all", models.Constraints{}) {
		assert.NotEqual(t, RuleMaxLength, hc.ID)
	}
}

func TestMaxLengthCountsRunes(t *testing.T) {
	engine := New(DefaultToggles(), 0)
	constraints := models.Constraints{Format: models.Format{MaxChars: 5}}
	// Five Japanese characters are five runes, not fifteen bytes.
	hc := findCheck(t, engine.Evaluate("", "こんにちは", constraints), RuleMaxLength)
	assert.True(t, hc.Passed)
}

func TestNoMetaTalk(t *testing.T) {
	engine := New(DefaultToggles(), 0)

	hc := findCheck(t, engine.Evaluate("", "As an AI, I cannot translate this.", models.Constraints{}), RuleNoMetaTalk)
	assert.False(t, hc.Passed)

	hc = findCheck(t, engine.Evaluate("", "The rain stopped.", models.Constraints{}), RuleNoMetaTalk)
	assert.True(t, hc.Passed)
}

func TestFormatPreserved(t *testing.T) {
	engine := New(DefaultToggles(), 0)
	constraints := models.Constraints{Format: models.Format{KeepLineBreaks: true}}

	hc := findCheck(t, engine.Evaluate("line one\nline two", "one line only", constraints), RuleFormatPreserved)
	assert.False(t, hc.Passed)

	hc = findCheck(t, engine.Evaluate("line one\nline two", "first\nsecond", constraints), RuleFormatPreserved)
	assert.True(t, hc.Passed)

	// Rule is skipped entirely when keepLineBreaks is off.
	for _, got := range engine.Evaluate("a\nb", "c", models.Constraints{}) {
		assert.NotEqual(t, RuleFormatPreserved, got.ID)
	}
}

func TestTogglesDisableRules(t *testing.T) {
	engine := New(Toggles{}, 0)
	checks := engine.Evaluate("こんにちは。", "こんにちは.", models.Constraints{})
	assert.Empty(t, checks)
}

func TestEvaluateOrder(t *testing.T) {
	engine := New(DefaultToggles(), 10)
	constraints := models.Constraints{
		Format:   models.Format{KeepLineBreaks: true},
		Glossary: []models.GlossaryEntry{{Ja: "鍵", En: "Key", Strict: true}},
	}

	checks := engine.Evaluate("src", "text", constraints)
	require.Len(t, checks, 5)
	want := []string{
		RuleNoDisallowedJapanese,
		RuleGlossaryStrictMatches,
		RuleMaxLength,
		RuleNoMetaTalk,
		RuleFormatPreserved,
	}
	for i, id := range want {
		assert.Equal(t, id, checks[i].ID)
	}
}

func TestIssuesSynthesis(t *testing.T) {
	checks := []models.HardCheckResult{
		{ID: RuleNoDisallowedJapanese, Passed: false, Description: "no Japanese", Details: "x"},
		{ID: RuleGlossaryStrictMatches, Passed: false, Description: "glossary"},
		{ID: RuleFormatPreserved, Passed: false, Description: "line breaks"},
		{ID: RuleNoMetaTalk, Passed: true, Description: "meta"},
	}

	issues := Issues(checks)
	require.Len(t, issues, 3)

	byID := make(map[string]models.Issue)
	for _, issue := range issues {
		byID[issue.ID] = issue
	}

	japanese := byID["hc-"+RuleNoDisallowedJapanese]
	assert.Equal(t, models.SeverityMajor, japanese.Severity)
	assert.Equal(t, models.IssueStyleViolation, japanese.Type)
	assert.Contains(t, japanese.Rationale, "(x)")

	glossary := byID["hc-"+RuleGlossaryStrictMatches]
	assert.Equal(t, models.SeverityMinor, glossary.Severity)
	assert.Equal(t, models.IssueStyleViolation, glossary.Type)

	format := byID["hc-"+RuleFormatPreserved]
	assert.Equal(t, models.IssueFormatViolation, format.Type)
	assert.Equal(t, models.SeverityMinor, format.Severity)

	for _, issue := range issues {
		assert.InDelta(t, 0.8, issue.Confidence, 1e-9)
		assert.NotEmpty(t, issue.FixSuggestion)
	}
}
