// Package prompt resolves component prompts from inline templates, files,
// or externally compiled artifacts, and renders {{variable}} placeholders.
package prompt

import (
	"regexp"
)

// placeholderPattern matches {{ name }} tokens with optional inner
// whitespace. The grammar is deliberately tiny: no escaping, no
// conditionals, no iteration.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render expands {{ name }} placeholders from the variable map. Missing
// variables render as the empty string. A template with no placeholders
// round-trips unchanged.
func Render(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return vars[name]
	})
}

// Placeholders lists the distinct placeholder names in template, in order
// of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}
