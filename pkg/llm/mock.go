package llm

import (
	"context"
	"strings"
	"unicode/utf8"
)

// punctuationReplacer maps full-width Japanese punctuation to ASCII. Each
// replacement carries a trailing space; the collapse pass below reduces runs
// to single spaces and drops them at the edges.
var punctuationReplacer = strings.NewReplacer(
	"。", ". ",
	"、", ", ",
	"！", "! ",
	"？", "? ",
)

// MockProvider is a deterministic, network-free provider for offline runs
// and tests. It echoes the last user message with Japanese punctuation
// substituted for ASCII.
type MockProvider struct{}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates the mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name implements Provider.
func (p *MockProvider) Name() string {
	return ProviderMock
}

// Complete implements Provider. The output is a pure function of the last
// user message, so repeated calls are byte-identical.
func (p *MockProvider) Complete(_ context.Context, req Request) (Response, error) {
	input := req.LastUserContent()
	output := punctuationReplacer.Replace(input)
	output = collapseWhitespace(output)

	// Rough rune-count estimate so usage accounting paths are exercised.
	prompt := 0
	for _, m := range req.Messages {
		prompt += utf8.RuneCountInString(m.Content) / 4
	}
	completion := utf8.RuneCountInString(output) / 4

	resp := Response{Text: output}
	resp.Usage.Prompt = prompt
	resp.Usage.Completion = completion
	resp.Usage.Total = prompt + completion
	return resp, nil
}

// collapseWhitespace trims the string and reduces internal whitespace runs
// to single spaces. Line breaks survive as single newlines so the
// formatPreserved check stays meaningful under the mock.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	pendingNewline := false
	wrote := false
	for _, r := range s {
		switch r {
		case '\n':
			pendingNewline = true
			pendingSpace = false
		case ' ', '\t', '\r':
			if !pendingNewline {
				pendingSpace = true
			}
		default:
			if wrote {
				if pendingNewline {
					b.WriteByte('\n')
				} else if pendingSpace {
					b.WriteByte(' ')
				}
			}
			pendingSpace = false
			pendingNewline = false
			b.WriteRune(r)
			wrote = true
		}
	}
	return b.String()
}
