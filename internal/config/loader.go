package config

import (
	"fmt"
	"strings"

	"github.com/deepaksaipendyala/quest/internal/logutil"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable QUEST reads, e.g.
// QUEST_RUNNER_URL overrides runner_url.
const EnvPrefix = "QUEST"

// Loader loads an AppConfig from an optional config file, environment
// variables, and in-memory defaults, in precedence order (file < env).
type Loader struct {
	logger    logutil.LoggerInterface
	viperInst *viper.Viper
}

// NewLoader creates a config Loader.
func NewLoader(logger logutil.LoggerInterface) *Loader {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[config] ")
	}
	return &Loader{
		logger:    logger,
		viperInst: viper.New(),
	}
}

// Load reads configPath (if non-empty) as YAML, applies environment
// overrides under EnvPrefix, and unmarshals into an AppConfig seeded with
// DefaultConfig. A missing configPath is not an error; defaults and env
// vars still apply.
func (l *Loader) Load(configPath string) (*AppConfig, error) {
	v := l.viperInst
	v.SetConfigType("yaml")

	cfg := DefaultConfig()
	l.setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			l.logger.Debug("Config file %s not found, using defaults and environment", configPath)
		} else {
			l.logger.Debug("Loaded configuration from %s", configPath)
		}
	}

	out := DefaultConfig()
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(out); err != nil {
		return nil, err
	}

	return out, nil
}

// setDefaults seeds v with every field of cfg so env-var overrides and a
// partial config file can layer on top without losing unset fields.
func (l *Loader) setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("runner_url", cfg.RunnerURL)
	v.SetDefault("runner_code_url", cfg.RunnerCodeURL)
	v.SetDefault("runner_timeout_seconds", cfg.RunnerTimeoutSeconds)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.decoding.temperature", cfg.LLM.Decoding.Temperature)
	v.SetDefault("llm.decoding.top_p", cfg.LLM.Decoding.TopP)
	v.SetDefault("llm.decoding.max_tokens", cfg.LLM.Decoding.MaxTokens)
	v.SetDefault("llm.timeout_seconds", cfg.LLM.TimeoutSeconds)
	v.SetDefault("llm.collect_logprobs", cfg.LLM.CollectLogprobs)
	v.SetDefault("llm.dry", cfg.LLM.Dry)

	v.SetDefault("targets.coverage", cfg.Targets.Coverage)
	v.SetDefault("targets.mutation", cfg.Targets.Mutation)

	v.SetDefault("max_iterations", cfg.MaxIterations)
	v.SetDefault("max_total_cost", cfg.MaxTotalCost)
	v.SetDefault("max_total_wall_seconds", cfg.MaxTotalWallSeconds)

	v.SetDefault("static_analysis.enable", cfg.StaticAnalysis.Enable)
	v.SetDefault("static_analysis.timeout_seconds", cfg.StaticAnalysis.TimeoutSeconds)

	v.SetDefault("supervisor.use_llm", cfg.Supervisor.UseLLM)
	v.SetDefault("runner.skip_mutation", cfg.Runner.SkipMutation)

	v.SetDefault("reliability.entropy_high", cfg.Reliability.EntropyHigh)
	v.SetDefault("reliability.entropy_medium", cfg.Reliability.EntropyMedium)
	v.SetDefault("reliability.lint_downgrade_threshold", cfg.Reliability.LintDowngradeThreshold)
	v.SetDefault("reliability.complexity_ceiling", cfg.Reliability.ComplexityCeiling)
}

// Validate checks invariants Load cannot express through viper defaults
// alone: thresholds must be non-negative and entropy_high must exceed
// entropy_medium, or the Reliability Predictor's banding is ill-defined.
func Validate(cfg *AppConfig) error {
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", cfg.MaxIterations)
	}
	if cfg.Targets.Coverage < 0 || cfg.Targets.Coverage > 100 {
		return fmt.Errorf("targets.coverage must be in [0, 100], got %v", cfg.Targets.Coverage)
	}
	if cfg.Targets.Mutation < 0 || cfg.Targets.Mutation > 100 {
		return fmt.Errorf("targets.mutation must be in [0, 100], got %v", cfg.Targets.Mutation)
	}
	if cfg.Reliability.EntropyHigh >= cfg.Reliability.EntropyMedium {
		return fmt.Errorf("reliability.entropy_high (%v) must be below reliability.entropy_medium (%v)",
			cfg.Reliability.EntropyHigh, cfg.Reliability.EntropyMedium)
	}
	return nil
}
