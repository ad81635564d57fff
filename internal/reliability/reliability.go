// Package reliability implements the Reliability Predictor (C4): a
// pre-execution confidence estimate derived from entropy and static
// signals, and a post-execution trust verdict derived from the runner's
// actual report.
package reliability

import (
	"fmt"

	"github.com/deepaksaipendyala/quest/internal/config"
	"github.com/deepaksaipendyala/quest/internal/model"
)

// Predictor scores attempts before and after execution using the
// thresholds in config.ReliabilityConfig.
type Predictor struct {
	cfg config.ReliabilityConfig
}

// New builds a Predictor bound to cfg's thresholds.
func New(cfg config.ReliabilityConfig) *Predictor {
	return &Predictor{cfg: cfg}
}

// ScorePre derives a pre-execution reliability record from entropy and the
// static report, applying downgrade rules in the fixed order the spec
// requires: syntax failure forces low; excess lint issues or complexity cap
// the level at medium.
func (p *Predictor) ScorePre(meta model.LLMMetadata, static model.StaticReport) model.PreReliabilityRecord {
	level := levelFromEntropy(meta.Entropy, p.cfg)
	var reasons []string

	if !static.SyntaxOK {
		level = model.PreLow
		reasons = append(reasons, "syntax check failed, forced to low")
	}
	if static.LintIssueCount >= p.cfg.LintDowngradeThreshold {
		level = capAtMedium(level)
		reasons = append(reasons, fmt.Sprintf("lint_issue_count=%d at or above threshold %d, capped at medium", static.LintIssueCount, p.cfg.LintDowngradeThreshold))
	}
	if p.cfg.ComplexityCeiling > 0 && static.CyclomaticComplexity > p.cfg.ComplexityCeiling {
		level = capAtMedium(level)
		reasons = append(reasons, fmt.Sprintf("cyclomatic_complexity=%d exceeds ceiling %d, capped at medium", static.CyclomaticComplexity, p.cfg.ComplexityCeiling))
	}

	rationale := "entropy-derived level, no downgrades fired"
	if len(reasons) > 0 {
		rationale = joinReasons(reasons)
	}

	return model.PreReliabilityRecord{
		Level:          level,
		Entropy:        meta.Entropy,
		AvgLogprob:     meta.AvgLogprob,
		TokenCount:     meta.OutputTokens,
		Rationale:      rationale,
		Static:         static,
		LintIssueCount: static.LintIssueCount,
	}
}

// levelFromEntropy bands a possibly-nil entropy value into a pre-execution
// level using the configured entropy_high/entropy_medium cutoffs. nil
// (logprobs unavailable) maps to unknown.
func levelFromEntropy(entropy *float64, cfg config.ReliabilityConfig) model.PreReliabilityLevel {
	if entropy == nil {
		return model.PreUnknown
	}
	switch {
	case *entropy <= cfg.EntropyHigh:
		return model.PreHigh
	case *entropy <= cfg.EntropyMedium:
		return model.PreMedium
	default:
		return model.PreLow
	}
}

// capAtMedium lowers level to medium if it is currently high, and leaves it
// unchanged otherwise (a level already at or below medium is never raised).
func capAtMedium(level model.PreReliabilityLevel) model.PreReliabilityLevel {
	if level == model.PreHigh || level == model.PreUnknown {
		return model.PreMedium
	}
	return level
}

// ScorePost derives a post-execution reliability record from the runner's
// actual report, the pre-execution level, the static report's residual lint
// count, and the run's target thresholds. Reason accumulators apply in the
// fixed order the spec requires; the level only ever moves downward from
// pass, except for the final high-to-trusted upgrade.
func (p *Predictor) ScorePost(pre model.PreReliabilityRecord, runner model.RunnerResponse, static model.StaticReport, targetCoverage, targetMutation float64) model.PostReliabilityRecord {
	level := model.PostPass
	var reasons []string

	if !runner.Success {
		level = model.PostDiscard
		reasons = append(reasons, "runner reported failure")
	}
	if runner.TestError != "" {
		level = capAtNeedsReview(level)
		reasons = append(reasons, "runner reported a test error")
	}
	if runner.Coverage < targetCoverage {
		level = capAtNeedsReview(level)
		reasons = append(reasons, fmt.Sprintf("coverage %.2f below target %.2f", runner.Coverage, targetCoverage))
	}
	if targetMutation > 0 && runner.MutationScore < targetMutation {
		level = capAtNeedsReview(level)
		reasons = append(reasons, fmt.Sprintf("mutation_score %.2f below target %.2f", runner.MutationScore, targetMutation))
	}
	if static.LintIssueCount >= p.cfg.LintDowngradeThreshold {
		level = capAtNeedsReview(level)
		reasons = append(reasons, fmt.Sprintf("unresolved lint_issue_count=%d at or above threshold %d", static.LintIssueCount, p.cfg.LintDowngradeThreshold))
	}

	if len(reasons) == 0 && pre.Level == model.PreHigh {
		level = model.PostTrusted
		reasons = append(reasons, "all checks passed with high pre-execution confidence")
	}

	return model.PostReliabilityRecord{
		PreLevel:       pre.Level,
		Level:          level,
		Reasons:        reasons,
		Coverage:       runner.Coverage,
		TargetCoverage: targetCoverage,
		MutationScore:  runner.MutationScore,
		TargetMutation: targetMutation,
		Success:        runner.Success,
		LintIssueCount: static.LintIssueCount,
	}
}

// capAtNeedsReview lowers level to needs_review unless it is already at or
// below discard, which never improves.
func capAtNeedsReview(level model.PostReliabilityLevel) model.PostReliabilityLevel {
	if level == model.PostDiscard {
		return level
	}
	return model.PostNeedsReview
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}
