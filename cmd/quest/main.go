// Package main provides the command-line entry point for quest, the
// closed-loop unit-test synthesizer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/deepaksaipendyala/quest/internal/apikey"
	"github.com/deepaksaipendyala/quest/internal/config"
	"github.com/deepaksaipendyala/quest/internal/gateway"
	"github.com/deepaksaipendyala/quest/internal/logutil"
	"github.com/deepaksaipendyala/quest/internal/orchestrator"
	"github.com/deepaksaipendyala/quest/internal/ratelimit"
	"github.com/deepaksaipendyala/quest/internal/registry"
	"github.com/deepaksaipendyala/quest/internal/runner"
)

// Exit codes.
const (
	exitSuccess = 0
	exitError   = 1
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flagSet := flag.NewFlagSet("quest", flag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to a quest.yaml configuration file")
	repo := flagSet.String("repo", "", "repository identifier the target file belongs to")
	version := flagSet.String("version", "", "version or commit the run targets")
	targetPath := flagSet.String("target", "", "path of the target source file within the repo")
	repoRoot := flagSet.String("repo-root", "", "local filesystem root used for framework hint detection")
	sourceFile := flagSet.String("source-file", "", "local path to the target source; read directly instead of fetched from the runner")
	runsDir := flagSet.String("runs-dir", "runs", "directory runs are written under")
	logLevel := flagSet.String("log-level", "info", "log verbosity: debug, info, warn, or error")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		return exitError
	}

	level, err := logutil.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quest: %v\n", err)
		return exitError
	}
	logger := logutil.WithSecretSanitization(logutil.NewLogger(level, os.Stderr, "[quest] "))

	if *repo == "" || *targetPath == "" {
		logger.Error("quest: --repo and --target are required")
		return exitError
	}

	cfg, err := config.NewLoader(logger).Load(*configPath)
	if err != nil {
		logger.Error("quest: failed to load configuration: %v", err)
		return exitError
	}

	ctx := logutil.WithCorrelationID(context.Background())

	runnerClient := buildRunnerClient(cfg, logger)

	codeSrc, err := resolveTargetSource(ctx, *sourceFile, *repo, *version, *targetPath, runnerClient, cfg)
	if err != nil {
		logger.Error("quest: failed to obtain target source: %v", err)
		return exitError
	}

	completer, err := buildCompleter(ctx, cfg, logger)
	if err != nil {
		logger.Error("quest: failed to build model gateway: %v", err)
		return exitError
	}

	root := *repoRoot
	if root == "" {
		root = *repo
	}

	orch := orchestrator.New(cfg, completer, runnerClient, *runsDir, logger)
	summary, err := orch.Run(ctx, *repo, *version, *targetPath, root, codeSrc)
	if err != nil {
		logger.Error("quest: run failed: %v", err)
		return exitError
	}

	fmt.Printf("run %s finished: reason=%s iterations=%d coverage=%.2f mutation=%.2f\n",
		summary.RunID, summary.FinishReason, summary.Iterations, summary.FinalCoverage, summary.FinalMutation)
	return exitSuccess
}

// buildRunnerClient wires either the live HTTP runner client or its
// dry-mode stub, per cfg.LLM.Dry.
func buildRunnerClient(cfg *config.AppConfig, logger logutil.LoggerInterface) orchestrator.Runner {
	if cfg.LLM.Dry {
		return &runner.DryClient{TargetCoverage: cfg.Targets.Coverage, TargetMutation: cfg.Targets.Mutation}
	}
	return runner.New(cfg.RunnerURL, cfg.RunnerCodeURL, cfg.RunnerTimeout(), logger)
}

// resolveTargetSource reads the target source from a local file when
// provided, otherwise fetches it through the runner's code endpoint.
func resolveTargetSource(ctx context.Context, sourceFile, repo, version, targetPath string, runnerClient orchestrator.Runner, cfg *config.AppConfig) (string, error) {
	if sourceFile != "" {
		data, err := os.ReadFile(sourceFile)
		if err != nil {
			return "", fmt.Errorf("failed to read --source-file: %w", err)
		}
		return string(data), nil
	}

	fetcher, ok := runnerClient.(*runner.Client)
	if !ok {
		return "", fmt.Errorf("no --source-file provided and the configured runner client cannot fetch code")
	}
	return fetcher.FetchCode(ctx, repo, version, targetPath)
}

// buildCompleter wires the Model Gateway's dry stub or a live provider
// client resolved through the registry, per cfg.LLM.Dry.
func buildCompleter(ctx context.Context, cfg *config.AppConfig, logger logutil.LoggerInterface) (gateway.ModelCompleter, error) {
	if cfg.LLM.Dry {
		return gateway.NewDryGateway(), nil
	}

	reg := registry.NewManager(logger)
	if err := reg.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize model registry: %w", err)
	}

	resolver := apikey.NewAPIKeyResolver(logger)
	keyResult, err := resolver.ResolveAPIKey(ctx, cfg.LLM.Provider, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API key for provider %q: %w", cfg.LLM.Provider, err)
	}

	client, err := reg.GetRegistry().CreateLLMClient(ctx, keyResult.Key, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client for model %q: %w", cfg.LLM.Model, err)
	}

	limiter := ratelimit.NewTokenBucket(60, 60)
	return gateway.New(client, cfg.LLM.Model, reg, limiter, logger), nil
}
