// Package model holds the data types shared across every stage of a QUEST
// run: the context pack handed to the Drafter, the metrics produced by the
// Model Gateway and the runner, the reliability and critique records the
// orchestrator persists to disk, and the run's own rolling state.
package model

import "time"

// FrameworkHint enumerates the test-framework styles the Context Miner can
// infer from a repository, and the Drafter/Refiner must respect.
type FrameworkHint string

const (
	FrameworkUnittestDjango FrameworkHint = "unittest-django"
	FrameworkUnittestPlain  FrameworkHint = "unittest-plain"
	FrameworkPytest         FrameworkHint = "pytest"
)

// ContextPack is the once-per-run digest of the target source handed to the
// Drafter and Refiner.
type ContextPack struct {
	Summary        string          `json:"summary"`
	Symbols        []string        `json:"symbols"`
	Docstrings     []string        `json:"docstrings"`
	FrameworkHints []FrameworkHint `json:"framework_hints"`
	CodeSrc        string          `json:"code_src"`
	Truncated      bool            `json:"truncated"`
	ParseFailed    bool            `json:"parse_failed"`
}

// TestArtifact is a candidate test module produced by the Drafter or Refiner.
type TestArtifact struct {
	Source    string        `json:"source"`
	Framework FrameworkHint `json:"framework"`
	ParsedOK  bool          `json:"parsed_ok"`
}

// LLMMetadata is recorded for every model call.
type LLMMetadata struct {
	AvgLogprob   *float64      `json:"avg_logprob,omitempty"`
	Entropy      *float64      `json:"entropy,omitempty"`
	InputTokens  int32         `json:"input_tokens"`
	OutputTokens int32         `json:"output_tokens"`
	EstimatedUSD *float64      `json:"estimated_cost_usd,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// LintResult is one external linter or type-checker's verdict.
type LintResult struct {
	Available      bool   `json:"available"`
	IssueCount     int    `json:"issue_count"`
	ExitCode       int    `json:"exit_code"`
	OutputExcerpt  string `json:"output_excerpt,omitempty"`
	Tool           string `json:"tool"`
}

// StaticReport is the Static Analyzer's verdict on a TestArtifact.
type StaticReport struct {
	SyntaxOK         bool                  `json:"syntax_ok"`
	SyntaxError      string                `json:"syntax_error,omitempty"`
	LineCount        int                   `json:"line_count"`
	ClassCount       int                   `json:"class_count"`
	FunctionCount    int                   `json:"function_count"`
	MaxFunctionLines int                   `json:"max_function_lines"`
	AvgFunctionLines float64               `json:"avg_function_lines"`
	CyclomaticComplexity int              `json:"cyclomatic_complexity"`
	Lints            map[string]LintResult `json:"lints"`
	LintIssueCount   int                   `json:"lint_issue_count"`
}

// CoverageDetails carries the subset of a RunnerResponse's coverage report
// the core consumes.
type CoverageDetails struct {
	MissingLines []int `json:"missing_lines"`
}

// RunnerResponse is the sandboxed runner's report for one attempt.
type RunnerResponse struct {
	Success             bool            `json:"success"`
	ExitCode            int             `json:"exit_code"`
	Coverage            float64         `json:"coverage"`
	CoverageDetails     CoverageDetails `json:"coverage_details"`
	MutationScore       float64         `json:"mutation_score"`
	MutationNum         int             `json:"mutation_num"`
	MutationUncertainty float64         `json:"mutation_uncertainty"`
	TestError           string          `json:"test_error,omitempty"`
	Stdout              string          `json:"stdout,omitempty"`
	Stderr              string          `json:"stderr,omitempty"`
	ExecutionTime       time.Duration   `json:"execution_time_ns"`
}

// PreReliabilityLevel is the pre-execution reliability label.
type PreReliabilityLevel string

const (
	PreHigh    PreReliabilityLevel = "high"
	PreMedium  PreReliabilityLevel = "medium"
	PreLow     PreReliabilityLevel = "low"
	PreUnknown PreReliabilityLevel = "unknown"
)

// PostReliabilityLevel is the post-execution reliability label.
type PostReliabilityLevel string

const (
	PostTrusted     PostReliabilityLevel = "trusted"
	PostPass        PostReliabilityLevel = "pass"
	PostNeedsReview PostReliabilityLevel = "needs_review"
	PostDiscard     PostReliabilityLevel = "discard"
)

// PreReliabilityRecord is the Reliability Predictor's pre-execution verdict.
type PreReliabilityRecord struct {
	Level          PreReliabilityLevel `json:"level"`
	Entropy        *float64            `json:"entropy,omitempty"`
	AvgLogprob     *float64            `json:"avg_logprob,omitempty"`
	TokenCount     int32               `json:"token_count"`
	Rationale      string              `json:"rationale"`
	Static         StaticReport        `json:"static"`
	LintIssueCount int                 `json:"lint_issue_count"`
}

// PostReliabilityRecord is the Reliability Predictor's post-execution verdict.
type PostReliabilityRecord struct {
	PreLevel      PreReliabilityLevel  `json:"pre_level"`
	Level         PostReliabilityLevel `json:"level"`
	Reasons       []string             `json:"reasons"`
	Coverage      float64              `json:"coverage"`
	TargetCoverage float64             `json:"target_coverage"`
	MutationScore float64              `json:"mutation_score"`
	TargetMutation float64             `json:"target_mutation"`
	Success       bool                 `json:"success"`
	LintIssueCount int                 `json:"lint_issue_count"`
}

// LLMSuggestions is the optional model-assisted critique payload.
type LLMSuggestions struct {
	PriorityIssues          []string `json:"priority_issues,omitempty"`
	CoverageSuggestions     []string `json:"coverage_suggestions,omitempty"`
	MutationSuggestions     []string `json:"mutation_suggestions,omitempty"`
	CodeQualitySuggestions  []string `json:"code_quality_suggestions,omitempty"`
	TestStrategySuggestions []string `json:"test_strategy_suggestions,omitempty"`
	NextSteps               []string `json:"next_steps,omitempty"`
}

// Critique is the Critic's structured verdict for one attempt.
type Critique struct {
	CompileError   bool     `json:"compile_error"`
	NoTests        bool     `json:"no_tests"`
	LowCoverage    bool     `json:"low_coverage"`
	LowMutation    bool     `json:"low_mutation"`
	NoProgress     bool     `json:"no_progress"`
	MutationScore  float64  `json:"mutation_score"`
	CoverageDelta  float64  `json:"coverage_delta"`
	MutationDelta  float64  `json:"mutation_delta"`
	LintIssueCount int      `json:"lint_issue_count"`
	MissingLines   []int    `json:"missing_lines"`
	Instructions   []string `json:"instructions"`

	LLMSuggestions         *LLMSuggestions `json:"llm_suggestions,omitempty"`
	LLMSupervisorMetadata  *LLMMetadata    `json:"llm_supervisor_metadata,omitempty"`
}

// AttemptHistory is one (coverage, mutation) data point recorded per attempt.
type AttemptHistory struct {
	Coverage float64 `json:"coverage"`
	Mutation float64 `json:"mutation"`
}

// RunState is the orchestrator's mutable, per-run bookkeeping. It is the
// only state that survives across attempts within a run.
type RunState struct {
	RunID           string           `json:"run_id"`
	AttemptIndex    int              `json:"attempt_index"`
	BestCoverage    float64          `json:"best_coverage"`
	BestMutation    float64          `json:"best_mutation"`
	StagnationCount int              `json:"stagnation_count"`
	TotalCostUSD    float64          `json:"total_cost_usd"`
	TotalInputTok   int64            `json:"total_input_tokens"`
	TotalOutputTok  int64            `json:"total_output_tokens"`
	TotalWall       time.Duration    `json:"total_wall_ns"`
	History         []AttemptHistory `json:"history"`
	TargetCoverage  float64          `json:"target_coverage"`
	TargetMutation  float64          `json:"target_mutation"`
	MaxIterations   int              `json:"max_iterations"`
	MaxTotalCostUSD float64          `json:"max_total_cost_usd"`
	MaxTotalWall    time.Duration    `json:"max_total_wall_ns"`
}

// RunSummary is the totals artifact written once per run, on termination.
type RunSummary struct {
	RunID          string        `json:"run_id"`
	Iterations     int           `json:"iterations"`
	FinishReason   string        `json:"finish_reason"`
	TotalCostUSD   float64       `json:"total_cost_usd"`
	TotalInputTok  int64         `json:"total_input_tokens"`
	TotalOutputTok int64         `json:"total_output_tokens"`
	TotalWall      time.Duration `json:"total_wall_ns"`
	FinalCoverage  float64       `json:"final_coverage"`
	FinalMutation  float64       `json:"final_mutation"`
}

// RequestRecord captures the exact prompt and decoding parameters sent to
// the Model Gateway for one attempt, persisted as attempt_<k>.request.json.
type RequestRecord struct {
	TargetPath      string        `json:"target_path"`
	Framework       FrameworkHint `json:"framework"`
	Prompt          string        `json:"prompt"`
	Temperature     float64       `json:"temperature"`
	TopP            float64       `json:"top_p"`
	MaxTokens       int           `json:"max_tokens"`
	CollectLogprobs bool          `json:"collect_logprobs"`
}

// MetricsRecord is the per-attempt timing/cost snapshot persisted as
// attempt_<k>.metrics.json, alongside the run's running totals at the
// point this attempt finished.
type MetricsRecord struct {
	AttemptIndex      int           `json:"attempt_index"`
	WallNS            time.Duration `json:"wall_ns"`
	InputTokens       int32         `json:"input_tokens"`
	OutputTokens      int32         `json:"output_tokens"`
	EstimatedUSD      *float64      `json:"estimated_cost_usd,omitempty"`
	CumulativeCostUSD float64       `json:"cumulative_cost_usd"`
	CumulativeWallNS  time.Duration `json:"cumulative_wall_ns"`
}

// Route is the Router's decision.
type Route string

const (
	RouteRefine Route = "REFINE"
	RouteFinish Route = "FINISH"
)
