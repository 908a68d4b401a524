package config

import (
	"fmt"

	"github.com/kotoba-lab/tessa/pkg/llm"
)

// knownProviders are the provider identifiers the gateway can serve.
var knownProviders = map[string]bool{
	llm.ProviderMock:   true,
	llm.ProviderOpenAI: true,
}

// validate checks the whole document. It returns the first violation as a
// ValidationError.
func validate(cfg *Config) error {
	if err := validateRunSettings(&cfg.RunSettings); err != nil {
		return err
	}
	if err := validateHardChecks(&cfg.Defaults.HardChecks); err != nil {
		return err
	}

	if cfg.Components.Translator == nil {
		return NewValidationError("components", "translator", ErrMissingRequiredField)
	}

	var firstErr error
	cfg.Components.Each(func(name string, component *Component) {
		if firstErr != nil {
			return
		}
		firstErr = validateComponent(cfg, name, component)
	})
	return firstErr
}

func validateRunSettings(rs *RunSettings) error {
	if rs.Concurrency < 1 {
		return NewValidationError("runSettings", "concurrency", fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, rs.Concurrency))
	}
	if rs.RPM < 0 {
		return NewValidationError("runSettings", "rpm", fmt.Errorf("%w: must not be negative, got %d", ErrInvalidValue, rs.RPM))
	}
	if rs.TPM < 0 {
		return NewValidationError("runSettings", "tpm", fmt.Errorf("%w: must not be negative, got %d", ErrInvalidValue, rs.TPM))
	}
	if *rs.MaxRepairs < 0 {
		return NewValidationError("runSettings", "maxRepairs", fmt.Errorf("%w: must not be negative, got %d", ErrInvalidValue, *rs.MaxRepairs))
	}
	if rs.JudgeRuns < 1 {
		return NewValidationError("runSettings", "judgeRuns", fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, rs.JudgeRuns))
	}
	return nil
}

func validateHardChecks(hc *HardCheckSettings) error {
	if hc.MaxLength < 0 {
		return NewValidationError("defaults.hardChecks", "maxLength", fmt.Errorf("%w: must not be negative, got %d", ErrInvalidValue, hc.MaxLength))
	}
	return nil
}

func validateComponent(cfg *Config, name string, component *Component) error {
	if component.Model.Provider == "" {
		return NewValidationError(name, "model.provider", ErrMissingRequiredField)
	}
	if !knownProviders[component.Model.Provider] {
		return NewValidationError(name, "model.provider", fmt.Errorf("%w: unknown provider %q", ErrInvalidValue, component.Model.Provider))
	}
	if component.Model.Name == "" {
		return NewValidationError(name, "model.name", ErrMissingRequiredField)
	}
	if component.Model.MaxOutputTokens < 0 {
		return NewValidationError(name, "model.maxOutputTokens", fmt.Errorf("%w: must not be negative, got %d", ErrInvalidValue, component.Model.MaxOutputTokens))
	}
	if component.Prompt != nil {
		if err := component.Prompt.Validate(); err != nil {
			return NewValidationError(name, "prompt", err)
		}
		if component.Prompt.Artifact != "" {
			if _, ok := cfg.PromptArtifacts[component.Prompt.Artifact]; !ok {
				return NewValidationError(name, "prompt.artifact", fmt.Errorf("%w: artifact %q is not declared in promptArtifacts", ErrInvalidValue, component.Prompt.Artifact))
			}
		}
	}
	return nil
}
