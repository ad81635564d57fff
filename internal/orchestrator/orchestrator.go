// Package orchestrator drives one run of the draft-analyze-execute-critique
// loop: it owns the state machine, the per-attempt artifact persistence,
// and the termination decision, delegating each phase to its dedicated
// collaborator (Context Miner, Static Analyzer, Reliability Predictor,
// Drafter, Refiner, Runner Client, Critic, Router).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/deepaksaipendyala/quest/internal/agents/critic"
	"github.com/deepaksaipendyala/quest/internal/agents/drafter"
	"github.com/deepaksaipendyala/quest/internal/agents/refiner"
	"github.com/deepaksaipendyala/quest/internal/auditlog"
	"github.com/deepaksaipendyala/quest/internal/config"
	"github.com/deepaksaipendyala/quest/internal/contextminer"
	"github.com/deepaksaipendyala/quest/internal/gateway"
	"github.com/deepaksaipendyala/quest/internal/llm"
	"github.com/deepaksaipendyala/quest/internal/logutil"
	"github.com/deepaksaipendyala/quest/internal/model"
	"github.com/deepaksaipendyala/quest/internal/reliability"
	"github.com/deepaksaipendyala/quest/internal/router"
	"github.com/deepaksaipendyala/quest/internal/runstore"
	"github.com/deepaksaipendyala/quest/internal/runutil"
	"github.com/deepaksaipendyala/quest/internal/staticanalyzer"
)

// Runner is the subset of the Runner Client's contract the orchestrator
// depends on; satisfied by both runner.Client and runner.DryClient.
type Runner interface {
	Run(ctx context.Context, repo, version, codeFile, testSrc string) (model.RunnerResponse, error)
}

// finish reasons recorded in run_summary.json.
const (
	reasonTargetsMet           = "targets_met"
	reasonMaxIterations        = "max_iterations"
	reasonNoProgress           = "no_progress"
	reasonConfigurationMissing = "configuration_missing"
	reasonUpstreamTimeout      = "upstream-timeout"
	reasonUpstreamError        = "upstream-error"
)

// Orchestrator coordinates one run from INIT through FINISH.
type Orchestrator struct {
	cfg       *config.AppConfig
	miner     *contextminer.Miner
	analyzer  *staticanalyzer.Analyzer
	predictor *reliability.Predictor
	drafter   *drafter.Drafter
	refiner   *refiner.Refiner
	critic    *critic.Critic
	runner    Runner
	runsRoot  string
	logger    logutil.LoggerInterface
}

// New builds an Orchestrator wired to the given collaborators. completer
// drives the Drafter, Refiner, and (when cfg.Supervisor.UseLLM) the
// Critic's supervisor pass.
func New(cfg *config.AppConfig, completer gateway.ModelCompleter, runnerClient Runner, runsRoot string, logger logutil.LoggerInterface) *Orchestrator {
	analyzerTools := []staticanalyzer.Tool{
		{Name: "pyflakes", Command: "pyflakes", Args: []string{}},
		{Name: "mypy", Command: "mypy", Args: []string{"--ignore-missing-imports"}},
	}

	return &Orchestrator{
		cfg:       cfg,
		miner:     contextminer.New(contextminer.DefaultMaxChars),
		analyzer:  staticanalyzer.New(analyzerTools, cfg.StaticAnalysis.Timeout(), 2),
		predictor: reliability.New(cfg.Reliability),
		drafter:   drafter.New(completer),
		refiner:   refiner.New(completer),
		critic:    critic.New(completer, cfg.Supervisor.UseLLM),
		runner:    runnerClient,
		runsRoot:  runsRoot,
		logger:    logger,
	}
}

// Run executes one full run against repo/version/targetPath, whose source
// is codeSrc, and returns the run's summary.
func (o *Orchestrator) Run(ctx context.Context, repo, version, targetPath, repoRoot, codeSrc string) (model.RunSummary, error) {
	runID := newRunID()
	store, err := runstore.New(filepath.Join(o.runsRoot, runID))
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("orchestrator: failed to create run store: %w", err)
	}

	audit, err := auditlog.NewFileAuditLogger(filepath.Join(store.Dir(), "events.log"), o.logger)
	if err != nil {
		o.logger.Warn("orchestrator: failed to open events.log, audit entries will be discarded: %v", err)
		audit = nil
	}
	auditLogger := auditLoggerOrNoOp(audit)
	defer func() { _ = auditLogger.Close() }()

	_ = auditLogger.LogOp(ctx, "RunStart", "InProgress", map[string]interface{}{
		"repo": repo, "version": version, "target": targetPath,
	}, nil, nil)

	pack := o.miner.Mine(repoRoot, codeSrc)
	framework := dominantFramework(pack.FrameworkHints)

	if err := store.WriteJSON("context.json", pack); err != nil {
		o.logger.Warn("orchestrator: failed to persist context.json: %v", err)
	}
	if err := store.WriteText("target_code", codeSrc); err != nil {
		o.logger.Warn("orchestrator: failed to persist target_code: %v", err)
	}

	state := model.RunState{
		RunID:           runID,
		TargetCoverage:  o.cfg.Targets.Coverage,
		TargetMutation:  targetMutation(o.cfg),
		MaxIterations:   o.cfg.MaxIterations,
		MaxTotalCostUSD: o.cfg.MaxTotalCost,
		MaxTotalWall:    o.cfg.MaxTotalWall(),
	}

	runStart := time.Now()
	summary := model.RunSummary{RunID: runID}

	var currentSource string
	var priorCoverage, priorMutation float64
	var pendingArtifact model.TestArtifact
	var pendingMeta model.LLMMetadata
	var pendingPrompt string

	for attempt := 0; ; attempt++ {
		state.AttemptIndex = attempt
		attemptStart := time.Now()

		var artifact model.TestArtifact
		var meta model.LLMMetadata
		var requestPrompt string
		var err error
		if attempt == 0 {
			requestPrompt = drafter.BuildPrompt(repo, version, targetPath, framework, pack)
			artifact, meta, err = o.drafter.Draft(ctx, repo, version, targetPath, framework, pack, o.cfg.LLM.Decoding, o.cfg.LLM.CollectLogprobs)
		} else {
			artifact, meta, requestPrompt = pendingArtifact, pendingMeta, pendingPrompt
		}
		if err != nil {
			// Only the Draft call (attempt 0) can fail here: every later
			// attempt's artifact was already produced by a prior Refine
			// call, carried forward via pendingArtifact/pendingMeta. A
			// Draft failure has no prior attempt to fall back to, so it is
			// always fatal; its kind (timeout, upstream error, missing
			// credentials, or something uncategorized) only changes the
			// recorded finish reason.
			isKnownKind := errors.Is(err, llm.ErrConfigurationMissing) || errors.Is(err, llm.ErrUpstreamTimeout) || errors.Is(err, llm.ErrUpstreamError)
			if !isKnownKind {
				o.logger.Error("orchestrator: attempt %d generation failed: %v", attempt, err)
				summary.FinishReason = reasonConfigurationMissing
				o.writeSummary(store, &summary, state, runStart)
				_ = auditLogger.LogOp(ctx, "RunEnd", "Failure", nil, map[string]interface{}{"finish_reason": summary.FinishReason}, err)
				return summary, err
			}
			summary.FinishReason = finishReasonForUpstreamError(err)
			o.writeSummary(store, &summary, state, runStart)
			_ = auditLogger.LogOp(ctx, "RunEnd", "Failure", nil, map[string]interface{}{"finish_reason": summary.FinishReason}, err)
			return summary, nil
		}
		currentSource = artifact.Source
		if attempt == 0 {
			accumulate(&state, meta)
		}

		static := o.analyzer.Analyze(ctx, artifact.Source)
		pre := o.predictor.ScorePre(meta, static)

		resp, runErr := o.runner.Run(ctx, repo, version, targetPath, artifact.Source)
		if runErr != nil {
			resp = model.RunnerResponse{Success: false, TestError: runErr.Error()}
		}

		post := o.predictor.ScorePost(pre, resp, static, state.TargetCoverage, state.TargetMutation)

		cr, stagnation := o.critic.Critique(ctx, critic.Input{
			Runner:         resp,
			Static:         static,
			Pre:            pre,
			Post:           post,
			TargetCoverage: state.TargetCoverage,
			TargetMutation: state.TargetMutation,
			PriorCoverage:  priorCoverage,
			PriorMutation:  priorMutation,
			StagnationIn:   state.StagnationCount,
			TestText:       artifact.Source,
		})
		state.StagnationCount = stagnation

		if resp.Coverage > state.BestCoverage {
			state.BestCoverage = resp.Coverage
		}
		if resp.MutationScore > state.BestMutation {
			state.BestMutation = resp.MutationScore
		}
		state.History = append(state.History, model.AttemptHistory{Coverage: resp.Coverage, Mutation: resp.MutationScore})

		request := model.RequestRecord{
			TargetPath:      targetPath,
			Framework:       framework,
			Prompt:          requestPrompt,
			Temperature:     o.cfg.LLM.Decoding.Temperature,
			TopP:            o.cfg.LLM.Decoding.TopP,
			MaxTokens:       o.cfg.LLM.Decoding.MaxTokens,
			CollectLogprobs: o.cfg.LLM.CollectLogprobs,
		}
		metrics := model.MetricsRecord{
			AttemptIndex:      attempt,
			WallNS:            time.Since(attemptStart),
			InputTokens:       meta.InputTokens,
			OutputTokens:      meta.OutputTokens,
			EstimatedUSD:      meta.EstimatedUSD,
			CumulativeCostUSD: state.TotalCostUSD,
			CumulativeWallNS:  state.TotalWall,
		}
		o.persistAttempt(store, attempt, artifact, meta, static, pre, resp, post, cr, request, metrics)

		attemptStatus := "Success"
		var runErrForAudit error
		if !resp.Success {
			attemptStatus = "Failure"
			if resp.TestError != "" {
				runErrForAudit = errors.New(resp.TestError)
			}
		}
		_ = auditLogger.LogOp(ctx, "Critique", attemptStatus, map[string]interface{}{
			"attempt": attempt,
		}, map[string]interface{}{
			"coverage": resp.Coverage, "mutation_score": resp.MutationScore, "no_progress": cr.NoProgress,
		}, runErrForAudit)

		priorCoverage, priorMutation = resp.Coverage, resp.MutationScore

		route := router.Route(cr, attempt+1, state.MaxIterations)
		if route == model.RouteFinish {
			summary.FinishReason = finishReason(cr, attempt+1, state.MaxIterations)
			summary.FinalCoverage = resp.Coverage
			summary.FinalMutation = resp.MutationScore
			summary.Iterations = attempt + 1
			o.writeSummary(store, &summary, state, runStart)
			_ = auditLogger.LogOp(ctx, "RunEnd", "Success", nil, map[string]interface{}{
				"finish_reason": summary.FinishReason, "iterations": summary.Iterations,
			}, nil)
			return summary, nil
		}

		nextArtifact, nextMeta, refineErr := o.refiner.Refine(ctx, targetPath, framework, pack, currentSource, cr, o.cfg.LLM.Decoding, o.cfg.LLM.CollectLogprobs)
		if refineErr != nil {
			// The Refiner always produces a later attempt (>=1), so per
			// spec this never aborts the run: it terminates the loop with
			// the best-so-far result, labeled by the failure's kind.
			o.logger.Warn("orchestrator: attempt %d refine failed, finishing with best-so-far result: %v", attempt, refineErr)
			summary.FinishReason = finishReasonForUpstreamError(refineErr)
			summary.FinalCoverage = state.BestCoverage
			summary.FinalMutation = state.BestMutation
			summary.Iterations = attempt + 1
			o.writeSummary(store, &summary, state, runStart)
			_ = auditLogger.LogOp(ctx, "RunEnd", "Success", nil, map[string]interface{}{"finish_reason": summary.FinishReason}, refineErr)
			return summary, nil
		}
		pendingArtifact, pendingMeta = nextArtifact, nextMeta
		pendingPrompt = refiner.BuildPrompt(targetPath, framework, pack, currentSource, cr)
		accumulate(&state, nextMeta)
	}
}

// finishReasonForUpstreamError labels a terminal gateway failure by its
// categorized kind, falling back to the generic upstream-error reason for
// anything else.
func finishReasonForUpstreamError(err error) string {
	switch {
	case errors.Is(err, llm.ErrUpstreamTimeout):
		return reasonUpstreamTimeout
	case errors.Is(err, llm.ErrConfigurationMissing):
		return reasonConfigurationMissing
	default:
		return reasonUpstreamError
	}
}

func (o *Orchestrator) persistAttempt(store *runstore.Store, attempt int, artifact model.TestArtifact, meta model.LLMMetadata, static model.StaticReport, pre model.PreReliabilityRecord, resp model.RunnerResponse, post model.PostReliabilityRecord, cr model.Critique, request model.RequestRecord, metrics model.MetricsRecord) {
	writes := map[string]interface{}{
		runstore.AttemptFile(attempt, "request.json"):          request,
		runstore.AttemptFile(attempt, "llm_metadata.json"):     meta,
		runstore.AttemptFile(attempt, "static.json"):           static,
		runstore.AttemptFile(attempt, "pre_reliability.json"):  pre,
		runstore.AttemptFile(attempt, "response.json"):         resp,
		runstore.AttemptFile(attempt, "post_reliability.json"): post,
		runstore.AttemptFile(attempt, "critique.json"):         cr,
		runstore.AttemptFile(attempt, "metrics.json"):          metrics,
	}
	for name, v := range writes {
		if err := store.WriteJSON(name, v); err != nil {
			o.logger.Warn("orchestrator: failed to persist %s: %v", name, err)
		}
	}
	if err := store.WriteText(runstore.AttemptFile(attempt, "test_src.py"), artifact.Source); err != nil {
		o.logger.Warn("orchestrator: failed to persist test source for attempt %d: %v", attempt, err)
	}
	if cr.LLMSupervisorMetadata != nil {
		if err := store.WriteJSON(runstore.AttemptFile(attempt, "supervisor_llm_metadata.json"), cr.LLMSupervisorMetadata); err != nil {
			o.logger.Warn("orchestrator: failed to persist supervisor metadata for attempt %d: %v", attempt, err)
		}
	}
}

// auditLoggerOrNoOp falls back to a no-op logger when events.log could not
// be opened, so a disk error never aborts a run.
func auditLoggerOrNoOp(a *auditlog.FileAuditLogger) auditlog.AuditLogger {
	if a == nil {
		return auditlog.NewNoOpAuditLogger()
	}
	return a
}

func (o *Orchestrator) writeSummary(store *runstore.Store, summary *model.RunSummary, state model.RunState, runStart time.Time) {
	summary.TotalCostUSD = state.TotalCostUSD
	summary.TotalInputTok = state.TotalInputTok
	summary.TotalOutputTok = state.TotalOutputTok
	summary.TotalWall = time.Since(runStart)
	if summary.Iterations == 0 {
		summary.Iterations = state.AttemptIndex + 1
	}
	if err := store.WriteJSON("run_summary.json", summary); err != nil {
		o.logger.Warn("orchestrator: failed to persist run_summary.json: %v", err)
	}
}

// accumulate folds one model call's metadata into the run's running totals.
func accumulate(state *model.RunState, meta model.LLMMetadata) {
	state.TotalInputTok += int64(meta.InputTokens)
	state.TotalOutputTok += int64(meta.OutputTokens)
	state.TotalWall += meta.Duration
	if meta.EstimatedUSD != nil {
		state.TotalCostUSD += *meta.EstimatedUSD
	}
}

// finishReason determines the terminal reason to record once the Router
// has already decided to FINISH.
func finishReason(cr model.Critique, attemptsDone, maxIterations int) string {
	if attemptsDone >= maxIterations {
		return reasonMaxIterations
	}
	if cr.NoProgress {
		return reasonNoProgress
	}
	return reasonTargetsMet
}

// dominantFramework picks the Context Miner's first detected hint, or the
// unittest-plain default when none were detected.
func dominantFramework(hints []model.FrameworkHint) model.FrameworkHint {
	if len(hints) == 0 {
		return model.FrameworkUnittestPlain
	}
	return hints[0]
}

// targetMutation returns 0 (disabling mutation-based routing) when the
// runner is configured to skip mutation testing.
func targetMutation(cfg *config.AppConfig) float64 {
	if cfg.Runner.SkipMutation {
		return 0
	}
	return cfg.Targets.Mutation
}

func newRunID() string {
	return time.Now().UTC().Format("20060102T150405Z") + "-" + runutil.GenerateRunName()
}
