// Package config loads and validates QUEST's run configuration: target
// thresholds, budget caps, and the collaborator endpoints (runner, model
// provider, static analysis tools) a run depends on.
package config

import "time"

// LLMDecodingConfig holds the sampling parameters sent with every completion
// request.
type LLMDecodingConfig struct {
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	TopP        float64 `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LLMConfig configures the Model Gateway's backing provider.
type LLMConfig struct {
	Provider         string            `mapstructure:"provider" yaml:"provider"`
	Model            string            `mapstructure:"model" yaml:"model"`
	Decoding         LLMDecodingConfig `mapstructure:"decoding" yaml:"decoding"`
	TimeoutSeconds   int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	CollectLogprobs  bool              `mapstructure:"collect_logprobs" yaml:"collect_logprobs"`
	Dry              bool              `mapstructure:"dry" yaml:"dry"`
}

// Timeout returns the configured LLM call timeout as a time.Duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TargetsConfig holds the coverage/mutation thresholds a run aims for.
type TargetsConfig struct {
	Coverage float64 `mapstructure:"coverage" yaml:"coverage"`
	Mutation float64 `mapstructure:"mutation" yaml:"mutation"`
}

// StaticAnalysisConfig controls whether and how long external static tools
// are allowed to run.
type StaticAnalysisConfig struct {
	Enable         bool `mapstructure:"enable" yaml:"enable"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the configured static-tool subprocess timeout.
func (c StaticAnalysisConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SupervisorConfig controls the optional model-assisted critique pass.
type SupervisorConfig struct {
	UseLLM bool `mapstructure:"use_llm" yaml:"use_llm"`
}

// RunnerConfig controls the runner collaborator.
type RunnerConfig struct {
	SkipMutation bool `mapstructure:"skip_mutation" yaml:"skip_mutation"`
}

// ReliabilityConfig holds the thresholds the Reliability Predictor applies.
type ReliabilityConfig struct {
	EntropyHigh           float64 `mapstructure:"entropy_high" yaml:"entropy_high"`
	EntropyMedium         float64 `mapstructure:"entropy_medium" yaml:"entropy_medium"`
	LintDowngradeThreshold int    `mapstructure:"lint_downgrade_threshold" yaml:"lint_downgrade_threshold"`
	ComplexityCeiling     int     `mapstructure:"complexity_ceiling" yaml:"complexity_ceiling"`
}

// AppConfig is the root QUEST run configuration, unmarshaled by viper from
// a config file, environment variables, and flag overrides, in that
// precedence order.
type AppConfig struct {
	RunnerURL            string                `mapstructure:"runner_url" yaml:"runner_url"`
	RunnerCodeURL        string                `mapstructure:"runner_code_url" yaml:"runner_code_url"`
	RunnerTimeoutSeconds int                   `mapstructure:"runner_timeout_seconds" yaml:"runner_timeout_seconds"`

	LLM LLMConfig `mapstructure:"llm" yaml:"llm"`

	Targets TargetsConfig `mapstructure:"targets" yaml:"targets"`

	MaxIterations       int     `mapstructure:"max_iterations" yaml:"max_iterations"`
	MaxTotalCost        float64 `mapstructure:"max_total_cost" yaml:"max_total_cost"`
	MaxTotalWallSeconds int     `mapstructure:"max_total_wall_seconds" yaml:"max_total_wall_seconds"`

	StaticAnalysis StaticAnalysisConfig `mapstructure:"static_analysis" yaml:"static_analysis"`
	Supervisor     SupervisorConfig     `mapstructure:"supervisor" yaml:"supervisor"`
	Runner         RunnerConfig         `mapstructure:"runner" yaml:"runner"`
	Reliability    ReliabilityConfig    `mapstructure:"reliability" yaml:"reliability"`
}

// RunnerTimeout returns the configured runner HTTP timeout.
func (c AppConfig) RunnerTimeout() time.Duration {
	return time.Duration(c.RunnerTimeoutSeconds) * time.Second
}

// MaxTotalWall returns the configured wall-clock budget for a whole run.
func (c AppConfig) MaxTotalWall() time.Duration {
	return time.Duration(c.MaxTotalWallSeconds) * time.Second
}

// DefaultConfig returns the configuration QUEST falls back to when no config
// file is present. Values mirror the defaults the teacher repo documents for
// its own config keys: permissive timeouts, conservative targets.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		RunnerURL:            "http://localhost:8500/runner",
		RunnerCodeURL:        "http://localhost:8500/code",
		RunnerTimeoutSeconds: 300,
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4.1",
			Decoding: LLMDecodingConfig{
				Temperature: 0.2,
				TopP:        1.0,
				MaxTokens:   2048,
			},
			TimeoutSeconds:  60,
			CollectLogprobs: true,
			Dry:             false,
		},
		Targets: TargetsConfig{
			Coverage: 80,
			Mutation: 60,
		},
		MaxIterations:       6,
		MaxTotalCost:        2.0,
		MaxTotalWallSeconds: 1800,
		StaticAnalysis: StaticAnalysisConfig{
			Enable:         true,
			TimeoutSeconds: 15,
		},
		Supervisor: SupervisorConfig{UseLLM: false},
		Runner:     RunnerConfig{SkipMutation: false},
		Reliability: ReliabilityConfig{
			EntropyHigh:            0.15,
			EntropyMedium:          0.45,
			LintDowngradeThreshold: 5,
			ComplexityCeiling:      15,
		},
	}
}
