package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotoba-lab/tessa/pkg/models"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestNormalizeScalarOverride(t *testing.T) {
	defaults := models.ConstraintPatch{Tone: "neutral", Register: "formal"}
	sample := &models.ConstraintPatch{Tone: "light"}

	c, err := Normalize(defaults, sample)
	require.NoError(t, err)

	assert.Equal(t, "light", c.Tone)
	assert.Equal(t, "formal", c.Register)
	assert.Equal(t, "en", c.TargetLang, "target language defaults to en")
}

func TestNormalizeTargetLangFromSample(t *testing.T) {
	c, err := Normalize(models.ConstraintPatch{TargetLang: "en"}, &models.ConstraintPatch{TargetLang: "en-GB"})
	require.NoError(t, err)
	assert.Equal(t, "en-GB", c.TargetLang)
}

func TestNormalizeFormatShallowMerge(t *testing.T) {
	defaults := models.ConstraintPatch{
		Format: &models.FormatPatch{KeepLineBreaks: boolPtr(true), MaxChars: intPtr(100)},
	}
	sample := &models.ConstraintPatch{
		Format: &models.FormatPatch{MaxChars: intPtr(40)},
	}

	c, err := Normalize(defaults, sample)
	require.NoError(t, err)

	assert.True(t, c.Format.KeepLineBreaks, "unset sample field inherits the default")
	assert.Equal(t, 40, c.Format.MaxChars, "sample field overrides")
}

func TestNormalizeFormatExplicitFalseOverrides(t *testing.T) {
	defaults := models.ConstraintPatch{
		Format: &models.FormatPatch{KeepLineBreaks: boolPtr(true)},
	}
	sample := &models.ConstraintPatch{
		Format: &models.FormatPatch{KeepLineBreaks: boolPtr(false)},
	}

	c, err := Normalize(defaults, sample)
	require.NoError(t, err)
	assert.False(t, c.Format.KeepLineBreaks)
}

func TestNormalizeListsConcatenate(t *testing.T) {
	defaults := models.ConstraintPatch{
		Glossary:       []models.GlossaryEntry{{Ja: "鍵", En: "Key", Strict: true}},
		BannedPatterns: []string{`\bTL note\b`},
	}
	sample := &models.ConstraintPatch{
		Glossary:            []models.GlossaryEntry{{Ja: "鍵", En: "Key", Strict: true}, {Ja: "扉", En: "Door"}},
		AllowJapaneseTokens: []string{"カラオケ"},
	}

	c, err := Normalize(defaults, sample)
	require.NoError(t, err)

	// Defaults first, duplicates retained.
	require.Len(t, c.Glossary, 3)
	assert.Equal(t, "鍵", c.Glossary[0].Ja)
	assert.Equal(t, "鍵", c.Glossary[1].Ja)
	assert.Equal(t, "扉", c.Glossary[2].Ja)
	assert.Equal(t, []string{`\bTL note\b`}, c.BannedPatterns)
	assert.Equal(t, []string{"カラオケ"}, c.AllowJapaneseTokens)
}

func TestNormalizeDoesNotMutateDefaults(t *testing.T) {
	defaults := models.ConstraintPatch{
		Glossary: make([]models.GlossaryEntry, 1, 4),
	}
	defaults.Glossary[0] = models.GlossaryEntry{Ja: "a", En: "b"}

	_, err := Normalize(defaults, &models.ConstraintPatch{
		Glossary: []models.GlossaryEntry{{Ja: "c", En: "d"}},
	})
	require.NoError(t, err)

	assert.Len(t, defaults.Glossary, 1)
	assert.Equal(t, "a", defaults.Glossary[0].Ja)
}

func TestNormalizeRejectsNegativeMaxChars(t *testing.T) {
	_, err := Normalize(models.ConstraintPatch{}, &models.ConstraintPatch{
		Format: &models.FormatPatch{MaxChars: intPtr(-1)},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestNormalizeRejectsBadBannedPattern(t *testing.T) {
	_, err := Normalize(models.ConstraintPatch{BannedPatterns: []string{"([unclosed"}}, nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "bannedPatterns[0]")
}

func TestRenderConstraints(t *testing.T) {
	c := models.Constraints{
		TargetLang: "en",
		Tone:       "dry",
		Format:     models.Format{KeepLineBreaks: true, MaxChars: 80},
		Glossary:   []models.GlossaryEntry{{Ja: "鍵", En: "Key", Strict: true}},
		BannedPatterns: []string{
			`(?i)as an ai`,
		},
	}

	out := Render(c)

	assert.Contains(t, out, "Target language: en")
	assert.Contains(t, out, "Tone: dry")
	assert.Contains(t, out, "80 characters")
	assert.Contains(t, out, "鍵 => Key (required verbatim)")
	assert.Contains(t, out, "(?i)as an ai")
	assert.NotContains(t, out, "Register:")
}
