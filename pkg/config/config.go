// Package config loads and validates the run configuration document
// (YAML or JSON) that selects models, prompts, hard-check toggles and
// runner settings.
package config

import (
	"github.com/kotoba-lab/tessa/pkg/hardcheck"
	"github.com/kotoba-lab/tessa/pkg/llm"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/prompt"
)

// Component names used across prompts, cache layout and run provenance.
const (
	ComponentTranslator          = "translator"
	ComponentTranslatorWithState = "translatorWithState"
	ComponentStateBuilder        = "stateBuilder"
	ComponentVerifier            = "verifier"
	ComponentRepairer            = "repairer"
	ComponentJudge               = "judge"
)

// RunSettings sizes the orchestrator and its resource budgets.
type RunSettings struct {
	// Concurrency is the worker pool size.
	Concurrency int `yaml:"concurrency"`
	// RPM and TPM are the rate-limiter budgets per 60 s window; 0 means
	// unbounded.
	RPM int `yaml:"rpm"`
	TPM int `yaml:"tpm"`
	// MaxRepairs bounds the verify/repair loop for conditions that permit
	// repair. Nil means unset; an explicit 0 disables repair.
	MaxRepairs *int `yaml:"maxRepairs"`
	// JudgeRuns is the number of independent judge calls per pair, reduced
	// by median.
	JudgeRuns int `yaml:"judgeRuns"`
	// Disk locations, resolved relative to the config file's directory.
	OutputDir         string `yaml:"outputDir"`
	CacheDir          string `yaml:"cacheDir"`
	ResolvedPromptDir string `yaml:"resolvedPromptDir"`
}

// HardCheckSettings toggles individual hard-check rules and sets the global
// length cap. Nil toggles mean enabled.
type HardCheckSettings struct {
	NoDisallowedJapanese  *bool `yaml:"noDisallowedJapanese,omitempty"`
	GlossaryStrictMatches *bool `yaml:"glossaryStrictMatches,omitempty"`
	NoMetaTalk            *bool `yaml:"noMetaTalk,omitempty"`
	FormatPreserved       *bool `yaml:"formatPreserved,omitempty"`
	// MaxLength is the global translation length cap; 0 means unset.
	MaxLength int `yaml:"maxLength,omitempty"`
}

// Defaults carries the per-sample constraint defaults and hard-check
// settings.
type Defaults struct {
	Constraints models.ConstraintPatch `yaml:"constraints"`
	HardChecks  HardCheckSettings      `yaml:"hardChecks"`
}

// Component configures one pipeline stage: its model, an optional prompt
// source, and free-form stage parameters.
type Component struct {
	Model  llm.ModelSpec  `yaml:"model"`
	Prompt *prompt.Source `yaml:"prompt,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
}

// Components selects the pipeline stages. Translator is required; every
// other stage is optional and falls back to its heuristic behavior.
type Components struct {
	Translator          *Component `yaml:"translator"`
	TranslatorWithState *Component `yaml:"translatorWithState,omitempty"`
	StateBuilder        *Component `yaml:"stateBuilder,omitempty"`
	Verifier            *Component `yaml:"verifier,omitempty"`
	Repairer            *Component `yaml:"repairer,omitempty"`
	Judge               *Component `yaml:"judge,omitempty"`
}

// Langfuse toggles the tracing façade.
type Langfuse struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"baseUrl"`
}

// Config is the parsed and validated configuration document.
type Config struct {
	RunSettings     RunSettings       `yaml:"runSettings"`
	Defaults        Defaults          `yaml:"defaults"`
	Components      Components        `yaml:"components"`
	PromptArtifacts map[string]string `yaml:"promptArtifacts,omitempty"`
	Langfuse        Langfuse          `yaml:"langfuse"`

	// baseDir is the config file's directory; disk locations resolve
	// against it.
	baseDir string
}

// BaseDir returns the directory the config file was loaded from.
func (c *Config) BaseDir() string {
	return c.baseDir
}

// Each iterates the configured components with their canonical names.
func (c *Components) Each(fn func(name string, component *Component)) {
	named := []struct {
		name      string
		component *Component
	}{
		{ComponentTranslator, c.Translator},
		{ComponentTranslatorWithState, c.TranslatorWithState},
		{ComponentStateBuilder, c.StateBuilder},
		{ComponentVerifier, c.Verifier},
		{ComponentRepairer, c.Repairer},
		{ComponentJudge, c.Judge},
	}
	for _, n := range named {
		if n.component != nil {
			fn(n.name, n.component)
		}
	}
}

// UsesProvider reports whether any configured component selects the given
// provider.
func (c *Config) UsesProvider(provider string) bool {
	found := false
	c.Components.Each(func(_ string, component *Component) {
		if component.Model.Provider == provider {
			found = true
		}
	})
	return found
}

// HardCheckToggles flattens the settings into engine toggles; nil means
// enabled.
func (d *Defaults) HardCheckToggles() hardcheck.Toggles {
	enabled := func(v *bool) bool { return v == nil || *v }
	return hardcheck.Toggles{
		NoDisallowedJapanese:  enabled(d.HardChecks.NoDisallowedJapanese),
		GlossaryStrictMatches: enabled(d.HardChecks.GlossaryStrictMatches),
		NoMetaTalk:            enabled(d.HardChecks.NoMetaTalk),
		FormatPreserved:       enabled(d.HardChecks.FormatPreserved),
	}
}
