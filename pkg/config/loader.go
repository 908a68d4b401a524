package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads, parses and validates a configuration document. YAML 1.2 is a
// JSON superset, so .json configs parse through the same path. Environment
// variables in the raw document are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, fmt.Errorf("%w: %s", ErrConfigNotFound, path))
		}
		return nil, NewLoadError(path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	cfg, err := Parse(data, filepath.Dir(absPath))
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.File = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse parses and validates a configuration document held in memory, for
// example one stored on an experiment. Relative disk locations resolve
// against baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError("", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	cfg.baseDir = baseDir

	applyDefaults(&cfg)
	resolvePaths(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths anchors relative disk locations at the config file's
// directory.
func resolvePaths(cfg *Config) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(cfg.baseDir, p)
	}
	cfg.RunSettings.OutputDir = resolve(cfg.RunSettings.OutputDir)
	cfg.RunSettings.CacheDir = resolve(cfg.RunSettings.CacheDir)
	cfg.RunSettings.ResolvedPromptDir = resolve(cfg.RunSettings.ResolvedPromptDir)
	// Artifact paths stay relative; the prompt resolver anchors them at
	// BaseDir so missing files surface with the configured path.
}
