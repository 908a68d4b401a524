// Package hardcheck implements the deterministic, rule-based checks applied
// to every candidate translation. Checks are pure functions of (source,
// translation, constraints); a failing check is reported data, never an
// error.
package hardcheck

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kotoba-lab/tessa/pkg/models"
)

// Rule identifiers, in evaluation order.
const (
	RuleNoDisallowedJapanese  = "noDisallowedJapanese"
	RuleGlossaryStrictMatches = "glossaryStrictMatches"
	RuleMaxLength             = "maxLength"
	RuleNoMetaTalk            = "noMetaTalk"
	RuleFormatPreserved       = "formatPreserved"
)

var metaTalkRe = regexp.MustCompile(`(?i)as an ai`)

// Toggles enables individual rules.
type Toggles struct {
	NoDisallowedJapanese  bool
	GlossaryStrictMatches bool
	NoMetaTalk            bool
	FormatPreserved       bool
}

// DefaultToggles enables every rule.
func DefaultToggles() Toggles {
	return Toggles{
		NoDisallowedJapanese:  true,
		GlossaryStrictMatches: true,
		NoMetaTalk:            true,
		FormatPreserved:       true,
	}
}

// Engine evaluates the enabled rules in a fixed order.
type Engine struct {
	toggles Toggles
	// maxLength is the global translation length cap in runes; 0 means
	// unset. The per-sample format.maxChars bound participates regardless.
	maxLength int
}

// New creates a hard-check engine.
func New(toggles Toggles, maxLength int) *Engine {
	return &Engine{toggles: toggles, maxLength: maxLength}
}

// Evaluate runs the enabled rules over a candidate translation and returns
// their results in rule order.
func (e *Engine) Evaluate(source, translation string, c models.Constraints) []models.HardCheckResult {
	var results []models.HardCheckResult
	if e.toggles.NoDisallowedJapanese {
		results = append(results, checkNoDisallowedJapanese(translation, c.AllowJapaneseTokens))
	}
	if e.toggles.GlossaryStrictMatches {
		results = append(results, checkGlossaryStrictMatches(translation, c.Glossary))
	}
	if limit, ok := effectiveMaxLength(c.Format.MaxChars, e.maxLength); ok {
		results = append(results, checkMaxLength(translation, limit))
	}
	if e.toggles.NoMetaTalk {
		results = append(results, checkNoMetaTalk(translation))
	}
	if e.toggles.FormatPreserved && c.Format.KeepLineBreaks {
		results = append(results, checkFormatPreserved(source, translation))
	}
	return results
}

// effectiveMaxLength combines the per-sample and global caps; when both are
// set the tighter bound applies.
func effectiveMaxLength(maxChars, maxLength int) (int, bool) {
	switch {
	case maxChars > 0 && maxLength > 0:
		return min(maxChars, maxLength), true
	case maxChars > 0:
		return maxChars, true
	case maxLength > 0:
		return maxLength, true
	default:
		return 0, false
	}
}

func checkNoDisallowedJapanese(translation string, allowed []string) models.HardCheckResult {
	result := models.HardCheckResult{
		ID:          RuleNoDisallowedJapanese,
		Passed:      true,
		Description: "translation contains no Japanese script outside the allow list",
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, allow := range allowed {
		if allow != "" {
			allowedSet[allow] = true
		}
	}

	// The allow list exempts whole whitespace-delimited tokens only; an
	// allowed term fused with punctuation or extra script is a different
	// token.
	var offending []string
	for _, token := range strings.Fields(translation) {
		if allowedSet[token] {
			continue
		}
		if containsJapanese(token) {
			offending = append(offending, token)
		}
	}
	if len(offending) > 0 {
		result.Passed = false
		result.Details = "disallowed tokens: " + strings.Join(offending, ", ")
	}
	return result
}

// containsJapanese reports whether s carries Hiragana, Katakana or CJK
// unified ideograph codepoints.
func containsJapanese(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func checkGlossaryStrictMatches(translation string, glossary []models.GlossaryEntry) models.HardCheckResult {
	result := models.HardCheckResult{
		ID:          RuleGlossaryStrictMatches,
		Passed:      true,
		Description: "every strict glossary term appears in the translation",
	}

	var missing []string
	for _, g := range glossary {
		if g.Strict && !strings.Contains(translation, g.En) {
			missing = append(missing, g.En)
		}
	}
	if len(missing) > 0 {
		result.Passed = false
		result.Details = "missing terms: " + strings.Join(missing, ", ")
	}
	return result
}

func checkMaxLength(translation string, limit int) models.HardCheckResult {
	result := models.HardCheckResult{
		ID:          RuleMaxLength,
		Passed:      true,
		Description: fmt.Sprintf("translation is at most %d characters", limit),
	}
	if n := utf8.RuneCountInString(translation); n > limit {
		result.Passed = false
		result.Details = fmt.Sprintf("length %d exceeds limit %d", n, limit)
	}
	return result
}

func checkNoMetaTalk(translation string) models.HardCheckResult {
	result := models.HardCheckResult{
		ID:          RuleNoMetaTalk,
		Passed:      true,
		Description: "translation contains no assistant meta talk",
	}
	if m := metaTalkRe.FindString(translation); m != "" {
		result.Passed = false
		result.Details = fmt.Sprintf("matched %q", m)
	}
	return result
}

func checkFormatPreserved(source, translation string) models.HardCheckResult {
	result := models.HardCheckResult{
		ID:          RuleFormatPreserved,
		Passed:      true,
		Description: "translation preserves the source line breaks",
	}
	src := strings.Count(source, "\n")
	got := strings.Count(translation, "\n")
	if src != got {
		result.Passed = false
		result.Details = fmt.Sprintf("source has %d line breaks, translation has %d", src, got)
	}
	return result
}
