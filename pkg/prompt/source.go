package prompt

import (
	"fmt"
	"os"
	"path/filepath"
)

// Source names where a component prompt comes from. Exactly one of
// Template, File or Artifact must be set.
type Source struct {
	Template      string `yaml:"template,omitempty" json:"template,omitempty"`
	File          string `yaml:"file,omitempty" json:"file,omitempty"`
	Artifact      string `yaml:"artifact,omitempty" json:"artifact,omitempty"`
	ArtifactField string `yaml:"artifactField,omitempty" json:"artifactField,omitempty"`
}

// Validate checks the exactly-one-of rule.
func (s *Source) Validate() error {
	set := 0
	if s.Template != "" {
		set++
	}
	if s.File != "" {
		set++
	}
	if s.Artifact != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("prompt source must set exactly one of template, file or artifact (got %d)", set)
	}
	if s.ArtifactField != "" && s.Artifact == "" {
		return fmt.Errorf("artifactField requires an artifact source")
	}
	return nil
}

// Resolved is a component prompt ready for rendering.
type Resolved struct {
	// System is the system message, when the source carries one.
	System string
	// Template is the user-prompt template body.
	Template string
	// ArtifactID names the compiled artifact this prompt came from; empty
	// for inline and file sources. It is what run provenance records.
	ArtifactID string
	// FewShots are example turns prepended to the conversation.
	FewShots []FewShot
	// Source describes the origin for logging ("inline", "file:...",
	// "artifact:...", "default").
	Source string
}

// Resolver turns prompt sources into resolved prompts. Relative file paths
// resolve against baseDir (the config file's directory); artifact ids
// resolve through the artifacts map of id → JSON path.
type Resolver struct {
	baseDir   string
	artifacts map[string]string
}

// NewResolver creates a resolver.
func NewResolver(baseDir string, artifacts map[string]string) *Resolver {
	return &Resolver{baseDir: baseDir, artifacts: artifacts}
}

// Resolve materializes a prompt source. A nil source yields the given
// default prompt unchanged.
func (r *Resolver) Resolve(src *Source, def Resolved) (Resolved, error) {
	if src == nil {
		def.Source = "default"
		return def, nil
	}
	if err := src.Validate(); err != nil {
		return Resolved{}, err
	}

	switch {
	case src.Template != "":
		return Resolved{System: def.System, Template: src.Template, Source: "inline"}, nil

	case src.File != "":
		path := src.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Resolved{}, fmt.Errorf("read prompt file: %w", err)
		}
		return Resolved{System: def.System, Template: string(data), Source: "file:" + src.File}, nil

	default:
		path, ok := r.artifacts[src.Artifact]
		if !ok {
			return Resolved{}, fmt.Errorf("unknown prompt artifact %q", src.Artifact)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.baseDir, path)
		}
		artifact, err := LoadArtifact(path)
		if err != nil {
			return Resolved{}, err
		}
		body, err := artifact.field(src.ArtifactField)
		if err != nil {
			return Resolved{}, err
		}
		resolved := Resolved{
			System:     artifact.SystemPrompt,
			Template:   body,
			ArtifactID: src.Artifact,
			FewShots:   artifact.FewShots,
			Source:     "artifact:" + src.Artifact,
		}
		if resolved.System == "" {
			resolved.System = def.System
		}
		return resolved, nil
	}
}
