package constraint

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kotoba-lab/tessa/pkg/models"
)

// Render produces the canonical markdown form of a constraint record, as
// embedded in translator, repairer and judge prompts: one field per line,
// followed by glossary and banned pattern lists.
func Render(c models.Constraints) string {
	var b strings.Builder

	fmt.Fprintf(&b, "- Target language: %s\n", c.TargetLang)
	if c.Tone != "" {
		fmt.Fprintf(&b, "- Tone: %s\n", c.Tone)
	}
	if c.Register != "" {
		fmt.Fprintf(&b, "- Register: %s\n", c.Register)
	}
	if c.ReadingLevel != "" {
		fmt.Fprintf(&b, "- Reading level: %s\n", c.ReadingLevel)
	}
	if c.Format.KeepLineBreaks {
		b.WriteString("- Preserve the line breaks of the source exactly.\n")
	}
	if c.Format.MaxChars > 0 {
		fmt.Fprintf(&b, "- Maximum length: %d characters.\n", c.Format.MaxChars)
	}
	if c.Format.NoExtraPrefixSuffix {
		b.WriteString("- Output the translation only, with no prefix or suffix.\n")
	}
	if len(c.Glossary) > 0 {
		b.WriteString("- Glossary (ja => en):\n")
		for _, g := range c.Glossary {
			suffix := ""
			if g.Strict {
				suffix = " (required verbatim)"
			}
			fmt.Fprintf(&b, "  - %s => %s%s\n", g.Ja, g.En, suffix)
		}
	}
	if len(c.BannedPatterns) > 0 {
		b.WriteString("- Never produce text matching:\n")
		for _, p := range c.BannedPatterns {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// JSON renders a constraint record as indented JSON for prompts that embed
// the structured form.
func JSON(c models.Constraints) string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
