package config

// Built-in defaults for run settings.
const (
	DefaultConcurrency = 2
	DefaultMaxRepairs  = 1
	DefaultJudgeRuns   = 3
	DefaultOutputDir   = "runs"
)

// applyDefaults fills unset run settings with their built-in values.
func applyDefaults(cfg *Config) {
	rs := &cfg.RunSettings
	if rs.Concurrency == 0 {
		rs.Concurrency = DefaultConcurrency
	}
	if rs.MaxRepairs == nil {
		v := DefaultMaxRepairs
		rs.MaxRepairs = &v
	}
	if rs.JudgeRuns == 0 {
		rs.JudgeRuns = DefaultJudgeRuns
	}
	if rs.OutputDir == "" {
		rs.OutputDir = DefaultOutputDir
	}
}
