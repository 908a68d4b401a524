package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceValidate(t *testing.T) {
	tests := []struct {
		name    string
		source  Source
		wantErr bool
	}{
		{name: "inline", source: Source{Template: "hi"}},
		{name: "file", source: Source{File: "p.txt"}},
		{name: "artifact", source: Source{Artifact: "opt-v3"}},
		{name: "artifact with field", source: Source{Artifact: "opt-v3", ArtifactField: ArtifactFieldUserPrompt}},
		{name: "none set", source: Source{}, wantErr: true},
		{name: "two set", source: Source{Template: "hi", File: "p.txt"}, wantErr: true},
		{name: "field without artifact", source: Source{Template: "hi", ArtifactField: ArtifactFieldTemplate}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveNilSourceKeepsDefault(t *testing.T) {
	resolver := NewResolver(t.TempDir(), nil)
	def := DefaultTranslator()

	resolved, err := resolver.Resolve(nil, def)
	require.NoError(t, err)
	assert.Equal(t, def.System, resolved.System)
	assert.Equal(t, def.Template, resolved.Template)
	assert.Equal(t, "default", resolved.Source)
}

func TestResolveInlineTemplate(t *testing.T) {
	resolver := NewResolver(t.TempDir(), nil)

	resolved, err := resolver.Resolve(&Source{Template: "custom {{text}}"}, DefaultTranslator())
	require.NoError(t, err)
	assert.Equal(t, "custom {{text}}", resolved.Template)
	// The default system message rides along for inline sources.
	assert.Equal(t, DefaultTranslator().System, resolved.System)
	assert.Equal(t, "inline", resolved.Source)
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trans.txt"), []byte("from file {{text}}"), 0o644))
	resolver := NewResolver(dir, nil)

	resolved, err := resolver.Resolve(&Source{File: "trans.txt"}, DefaultTranslator())
	require.NoError(t, err)
	assert.Equal(t, "from file {{text}}", resolved.Template)

	_, err = resolver.Resolve(&Source{File: "missing.txt"}, DefaultTranslator())
	assert.Error(t, err)
}

func TestResolveArtifact(t *testing.T) {
	dir := t.TempDir()
	artifactJSON := `{
		"name": "translator-opt-v3",
		"systemPrompt": "optimized system",
		"userPrompt": "optimized user {{text}}",
		"template": "optimized template {{text}}",
		"fewShots": [{"role": "user", "content": "例"}, {"role": "assistant", "content": "example"}],
		"params": {"temperature": 0.1, "maxOutputTokens": 256},
		"provenance": {"optimizer": "mipro", "round": 7}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "opt.json"), []byte(artifactJSON), 0o644))
	resolver := NewResolver(dir, map[string]string{"opt-v3": "opt.json"})

	resolved, err := resolver.Resolve(&Source{Artifact: "opt-v3"}, DefaultTranslator())
	require.NoError(t, err)
	assert.Equal(t, "optimized template {{text}}", resolved.Template)
	assert.Equal(t, "optimized system", resolved.System)
	assert.Equal(t, "opt-v3", resolved.ArtifactID)
	assert.Len(t, resolved.FewShots, 2)

	resolved, err = resolver.Resolve(&Source{Artifact: "opt-v3", ArtifactField: ArtifactFieldUserPrompt}, DefaultTranslator())
	require.NoError(t, err)
	assert.Equal(t, "optimized user {{text}}", resolved.Template)

	_, err = resolver.Resolve(&Source{Artifact: "opt-v3", ArtifactField: "fewShots"}, DefaultTranslator())
	assert.Error(t, err)

	_, err = resolver.Resolve(&Source{Artifact: "unknown"}, DefaultTranslator())
	assert.Error(t, err)
}

func TestDumperWritesOncePerComponent(t *testing.T) {
	dir := t.TempDir()
	dumper := NewDumper(dir, "run-1")

	require.NoError(t, dumper.Dump("translator", DefaultTranslator()))
	path := filepath.Join(dir, "run-1", "translator.txt")
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(first), "component: translator")

	// A second dump for the same component is a no-op.
	require.NoError(t, dumper.Dump("translator", Resolved{Template: "changed"}))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
