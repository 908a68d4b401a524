// Package constraint merges partial constraint records into the fully
// populated form the pipeline runs under, and renders that form for
// prompts.
package constraint

import (
	"fmt"
	"regexp"

	"dario.cat/mergo"

	"github.com/kotoba-lab/tessa/pkg/models"
)

// DefaultTargetLang is used when neither defaults nor sample set one.
const DefaultTargetLang = "en"

// Normalize merges the defaults patch with a per-sample patch into a fully
// populated constraint record. Scalar fields take the sample value when
// set, format fields shallow-merge (sample wins per field), and the list
// fields concatenate defaults-first with duplicates retained.
func Normalize(defaults models.ConstraintPatch, sample *models.ConstraintPatch) (models.Constraints, error) {
	merged := clonePatch(defaults)
	if sample != nil {
		src := clonePatch(*sample)
		if err := mergo.Merge(&merged, src, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return models.Constraints{}, fmt.Errorf("merge constraints: %w", err)
		}
	}

	constraints := models.Constraints{
		TargetLang:          merged.TargetLang,
		Tone:                merged.Tone,
		Register:            merged.Register,
		ReadingLevel:        merged.ReadingLevel,
		Format:              flattenFormat(merged.Format),
		Glossary:            merged.Glossary,
		BannedPatterns:      merged.BannedPatterns,
		AllowJapaneseTokens: merged.AllowJapaneseTokens,
	}
	if constraints.TargetLang == "" {
		constraints.TargetLang = DefaultTargetLang
	}

	if err := validate(constraints); err != nil {
		return models.Constraints{}, err
	}
	return constraints, nil
}

// validate rejects constraint fields outside their domain.
func validate(c models.Constraints) error {
	if c.Format.MaxChars < 0 {
		return NewValidationError("format.maxChars", fmt.Errorf("%w: must not be negative, got %d", ErrInvalidValue, c.Format.MaxChars))
	}
	for i, pattern := range c.BannedPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return NewValidationError(fmt.Sprintf("bannedPatterns[%d]", i), fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
	}
	return nil
}

func flattenFormat(patch *models.FormatPatch) models.Format {
	var format models.Format
	if patch == nil {
		return format
	}
	if patch.KeepLineBreaks != nil {
		format.KeepLineBreaks = *patch.KeepLineBreaks
	}
	if patch.MaxChars != nil {
		format.MaxChars = *patch.MaxChars
	}
	if patch.NoExtraPrefixSuffix != nil {
		format.NoExtraPrefixSuffix = *patch.NoExtraPrefixSuffix
	}
	return format
}

// clonePatch deep-copies a patch so merging never aliases caller slices.
func clonePatch(p models.ConstraintPatch) models.ConstraintPatch {
	out := p
	if p.Format != nil {
		f := *p.Format
		out.Format = &f
	}
	if p.Glossary != nil {
		out.Glossary = append([]models.GlossaryEntry(nil), p.Glossary...)
	}
	if p.BannedPatterns != nil {
		out.BannedPatterns = append([]string(nil), p.BannedPatterns...)
	}
	if p.AllowJapaneseTokens != nil {
		out.AllowJapaneseTokens = append([]string(nil), p.AllowJapaneseTokens...)
	}
	return out
}
