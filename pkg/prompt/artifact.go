package prompt

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifact field selectors.
const (
	ArtifactFieldSystemPrompt = "systemPrompt"
	ArtifactFieldUserPrompt   = "userPrompt"
	ArtifactFieldTemplate     = "template"
)

// FewShot is one example turn carried by a compiled prompt artifact.
type FewShot struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ArtifactParams are the sampling parameters a compiled artifact suggests.
type ArtifactParams struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// Artifact is a compiled prompt produced by the offline prompt optimizer.
// The engine treats it as an opaque content-addressed blob: only its id is
// ever recorded in run provenance, never its body.
type Artifact struct {
	Name         string          `json:"name"`
	SystemPrompt string          `json:"systemPrompt,omitempty"`
	UserPrompt   string          `json:"userPrompt,omitempty"`
	Template     string          `json:"template,omitempty"`
	FewShots     []FewShot       `json:"fewShots,omitempty"`
	Params       *ArtifactParams `json:"params,omitempty"`
	Provenance   json.RawMessage `json:"provenance,omitempty"`
}

// LoadArtifact reads and parses a compiled-prompt JSON file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse prompt artifact %s: %w", path, err)
	}
	return &artifact, nil
}

// field selects the artifact body named by artifactField (default
// template).
func (a *Artifact) field(name string) (string, error) {
	switch name {
	case "", ArtifactFieldTemplate:
		return a.Template, nil
	case ArtifactFieldSystemPrompt:
		return a.SystemPrompt, nil
	case ArtifactFieldUserPrompt:
		return a.UserPrompt, nil
	default:
		return "", fmt.Errorf("unknown artifactField %q (expected systemPrompt, userPrompt or template)", name)
	}
}
