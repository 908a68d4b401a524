package models

// GlossaryEntry pins a Japanese term to its English rendering. Strict
// entries must appear verbatim in the final translation.
type GlossaryEntry struct {
	Ja     string `json:"ja" yaml:"ja"`
	En     string `json:"en" yaml:"en"`
	Strict bool   `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// Format holds layout constraints for a translation.
type Format struct {
	KeepLineBreaks      bool `json:"keepLineBreaks,omitempty"`
	MaxChars            int  `json:"maxChars,omitempty"`
	NoExtraPrefixSuffix bool `json:"noExtraPrefixSuffix,omitempty"`
}

// FormatPatch is the partial form of Format. Pointer fields distinguish
// "explicitly false/zero" from "inherit the default".
type FormatPatch struct {
	KeepLineBreaks      *bool `json:"keepLineBreaks,omitempty" yaml:"keepLineBreaks,omitempty"`
	MaxChars            *int  `json:"maxChars,omitempty" yaml:"maxChars,omitempty"`
	NoExtraPrefixSuffix *bool `json:"noExtraPrefixSuffix,omitempty" yaml:"noExtraPrefixSuffix,omitempty"`
}

// Constraints is the fully populated constraint record a sample is
// translated under, produced by the normalizer.
type Constraints struct {
	TargetLang          string          `json:"targetLang"`
	Tone                string          `json:"tone,omitempty"`
	Register            string          `json:"register,omitempty"`
	ReadingLevel        string          `json:"readingLevel,omitempty"`
	Format              Format          `json:"format"`
	Glossary            []GlossaryEntry `json:"glossary,omitempty"`
	BannedPatterns      []string        `json:"bannedPatterns,omitempty"`
	AllowJapaneseTokens []string        `json:"allowJapaneseTokens,omitempty"`
}

// ConstraintPatch is a partial constraint record as it appears in config
// defaults, scenes, and dataset samples.
type ConstraintPatch struct {
	TargetLang          string          `json:"targetLang,omitempty" yaml:"targetLang,omitempty"`
	Tone                string          `json:"tone,omitempty" yaml:"tone,omitempty"`
	Register            string          `json:"register,omitempty" yaml:"register,omitempty"`
	ReadingLevel        string          `json:"readingLevel,omitempty" yaml:"readingLevel,omitempty"`
	Format              *FormatPatch    `json:"format,omitempty" yaml:"format,omitempty"`
	Glossary            []GlossaryEntry `json:"glossary,omitempty" yaml:"glossary,omitempty"`
	BannedPatterns      []string        `json:"bannedPatterns,omitempty" yaml:"bannedPatterns,omitempty"`
	AllowJapaneseTokens []string        `json:"allowJapaneseTokens,omitempty" yaml:"allowJapaneseTokens,omitempty"`
}

// StrictGlossary returns the glossary entries marked strict.
func (c Constraints) StrictGlossary() []GlossaryEntry {
	var strict []GlossaryEntry
	for _, g := range c.Glossary {
		if g.Strict {
			strict = append(strict, g)
		}
	}
	return strict
}
