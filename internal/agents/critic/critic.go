// Package critic implements the Critic (C6): it turns a runner response,
// static report, and reliability records into a structured Critique,
// including the priority-ordered repair instructions the Refiner consumes.
package critic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deepaksaipendyala/quest/internal/gateway"
	"github.com/deepaksaipendyala/quest/internal/model"
)

// noTestsMarkers are runner-stdout substrings indicating the attempt
// compiled but discovered zero tests.
var noTestsMarkers = []string{"collected 0", "no tests ran", "0 tests collected"}

// progressCoverageDelta and progressMutationDelta are the minimum deltas
// that count as progress between attempts, per spec.
const (
	progressCoverageDelta = 1.0
	progressMutationDelta = 2.0
	stagnationThreshold   = 2
	maxMissingLines       = 10
)

// Input bundles everything the Critic needs for one attempt's verdict.
type Input struct {
	Runner         model.RunnerResponse
	Static         model.StaticReport
	Pre            model.PreReliabilityRecord
	Post           model.PostReliabilityRecord
	TargetCoverage float64
	TargetMutation float64
	PriorCoverage  float64
	PriorMutation  float64
	StagnationIn   int
	TestText       string
}

// Critic builds a Critique from an attempt's collected signals. Its
// internal errors never surface: Critique always collapses to a usable
// baseline, per spec's failure semantics.
type Critic struct {
	completer gateway.ModelCompleter
	useLLM    bool
}

// New builds a Critic. completer/useLLM enable the optional model-assisted
// supervisor pass; when useLLM is false, completer is never called.
func New(completer gateway.ModelCompleter, useLLM bool) *Critic {
	return &Critic{completer: completer, useLLM: useLLM}
}

// Critique scores in.Input into a model.Critique plus the updated
// stagnation count the orchestrator should carry into the next attempt.
func (c *Critic) Critique(ctx context.Context, in Input) (model.Critique, int) {
	critique := model.Critique{}

	critique.CompileError = !in.Runner.Success || !in.Static.SyntaxOK
	critique.NoTests = hasNoTestsMarker(in.Runner.Stdout)
	critique.LowCoverage = in.Runner.Coverage < in.TargetCoverage
	critique.LowMutation = in.TargetMutation > 0 && (in.Runner.MutationScore < in.TargetMutation || in.Runner.MutationScore < 0)
	critique.MutationScore = in.Runner.MutationScore
	critique.LintIssueCount = in.Static.LintIssueCount
	critique.MissingLines = truncateLines(in.Runner.CoverageDetails.MissingLines, maxMissingLines)

	critique.CoverageDelta = in.Runner.Coverage - in.PriorCoverage
	critique.MutationDelta = in.Runner.MutationScore - in.PriorMutation

	progress := critique.CoverageDelta >= progressCoverageDelta || critique.MutationDelta >= progressMutationDelta
	stagnation := in.StagnationIn
	if !progress && (critique.LowCoverage || critique.LowMutation) {
		stagnation++
	}
	critique.NoProgress = stagnation >= stagnationThreshold

	critique.Instructions = buildInstructions(critique, in)

	if c.useLLM && c.completer != nil {
		if suggestions, meta, ok := c.requestSuggestions(ctx, in); ok {
			critique.LLMSuggestions = suggestions
			critique.LLMSupervisorMetadata = &meta
		}
	}

	return critique, stagnation
}

// hasNoTestsMarker checks stdout for the runner's "zero tests discovered"
// phrasings.
func hasNoTestsMarker(stdout string) bool {
	lower := strings.ToLower(stdout)
	for _, marker := range noTestsMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func truncateLines(lines []int, max int) []int {
	if len(lines) <= max {
		return lines
	}
	return lines[:max]
}

// buildInstructions assembles the ordered repair instructions in the fixed
// priority order the spec requires: syntax, lint/type, runner/compile,
// missing tests, missing coverage lines, mutation shortfall, reliability
// reasons, then any visible runner error text.
func buildInstructions(cr model.Critique, in Input) []string {
	var instr []string

	if !in.Static.SyntaxOK {
		instr = append(instr, fmt.Sprintf("Fix the syntax error before anything else: %s", in.Static.SyntaxError))
	}
	if in.Static.LintIssueCount > 0 {
		instr = append(instr, fmt.Sprintf("Resolve %d outstanding lint/type-checker issue(s).", in.Static.LintIssueCount))
	}
	if !in.Runner.Success && in.Static.SyntaxOK {
		instr = append(instr, "The test suite failed to run or compile against the target; fix the runner/compile error before adding coverage.")
	}
	if cr.NoTests {
		instr = append(instr, "No tests were discovered; add at least one test function the runner can collect.")
	}
	if len(cr.MissingLines) > 0 {
		instr = append(instr, fmt.Sprintf("Add coverage for the following uncovered lines: %s.", joinInts(cr.MissingLines)))
	}
	if cr.LowMutation {
		instr = append(instr, fmt.Sprintf("Strengthen assertions to raise the mutation kill rate (currently %.1f, target %.1f).", cr.MutationScore, in.TargetMutation))
	}
	for _, reason := range in.Post.Reasons {
		instr = append(instr, fmt.Sprintf("Reliability concern: %s.", reason))
	}
	if text := strings.TrimSpace(in.Runner.TestError); text != "" {
		instr = append(instr, fmt.Sprintf("Runner reported: %s", text))
	}

	return instr
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}

// suggestionCategories are the six enumerated categories the model-assisted
// supervisor pass must return.
type llmSuggestionsPayload struct {
	PriorityIssues          []string `json:"priority_issues"`
	CoverageSuggestions     []string `json:"coverage_suggestions"`
	MutationSuggestions     []string `json:"mutation_suggestions"`
	CodeQualitySuggestions  []string `json:"code_quality_suggestions"`
	TestStrategySuggestions []string `json:"test_strategy_suggestions"`
	NextSteps               []string `json:"next_steps"`
}

// requestSuggestions asks the gateway for structured, model-assisted
// critique. A parse failure or call error leaves the rule-based critique
// standing, per spec's lenient-parse requirement.
func (c *Critic) requestSuggestions(ctx context.Context, in Input) (*model.LLMSuggestions, model.LLMMetadata, bool) {
	prompt := supervisorPrompt(in)
	text, meta, err := c.completer.Complete(ctx, gateway.CompletionRequest{Prompt: prompt})
	if err != nil {
		return nil, model.LLMMetadata{}, false
	}

	var payload llmSuggestionsPayload
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &payload); err != nil {
		return nil, model.LLMMetadata{}, false
	}

	return &model.LLMSuggestions{
		PriorityIssues:          payload.PriorityIssues,
		CoverageSuggestions:     payload.CoverageSuggestions,
		MutationSuggestions:     payload.MutationSuggestions,
		CodeQualitySuggestions:  payload.CodeQualitySuggestions,
		TestStrategySuggestions: payload.TestStrategySuggestions,
		NextSteps:               payload.NextSteps,
	}, meta, true
}

func supervisorPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You are assisting a test-improvement loop. Given the attempt below, return a JSON object ")
	b.WriteString("with keys priority_issues, coverage_suggestions, mutation_suggestions, code_quality_suggestions, ")
	b.WriteString("test_strategy_suggestions, next_steps, each an array of short strings.\n\n")
	fmt.Fprintf(&b, "coverage=%.2f target_coverage=%.2f mutation_score=%.2f target_mutation=%.2f\n", in.Runner.Coverage, in.TargetCoverage, in.Runner.MutationScore, in.TargetMutation)
	b.WriteString("Current test source:\n```\n")
	b.WriteString(in.TestText)
	b.WriteString("\n```\n")
	return b.String()
}

// extractJSONObject returns the substring from the first '{' to the last
// '}' in text, tolerating a model that wraps its JSON in prose or fences.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return "{}"
	}
	return text[start : end+1]
}
