// Package drafter implements the Drafter (C5): it builds the initial
// test-generation prompt from a ContextPack and framework tag, and parses
// the gateway's raw response into a TestArtifact.
package drafter

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepaksaipendyala/quest/internal/config"
	"github.com/deepaksaipendyala/quest/internal/gateway"
	"github.com/deepaksaipendyala/quest/internal/model"
)

// Drafter produces the first candidate test for a target file.
type Drafter struct {
	completer gateway.ModelCompleter
}

// New builds a Drafter backed by completer.
func New(completer gateway.ModelCompleter) *Drafter {
	return &Drafter{completer: completer}
}

// Draft builds a prompt for repo/version/targetPath under framework and
// returns the generated TestArtifact plus the gateway call's metadata.
func (d *Drafter) Draft(ctx context.Context, repo, version, targetPath string, framework model.FrameworkHint, pack model.ContextPack, decoding config.LLMDecodingConfig, collectLogprobs bool) (model.TestArtifact, model.LLMMetadata, error) {
	prompt := BuildPrompt(repo, version, targetPath, framework, pack)

	text, meta, err := d.completer.Complete(ctx, gateway.CompletionRequest{
		Prompt:          prompt,
		Decoding:        decoding,
		CollectLogprobs: collectLogprobs,
	})
	if err != nil {
		return model.TestArtifact{}, model.LLMMetadata{}, err
	}

	return model.TestArtifact{
		Source:    text,
		Framework: framework,
		ParsedOK:  strings.TrimSpace(text) != "",
	}, meta, nil
}

// BuildPrompt assembles the Drafter's prompt: the goal statement, the full
// target source, framework-specific hard constraints, and global
// constraints common to every framework.
func BuildPrompt(repo, version, targetPath string, framework model.FrameworkHint, pack model.ContextPack) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Goal: maximize branch coverage and mutation kill rate for %s (repo=%s, version=%s).\n\n", targetPath, repo, version)

	b.WriteString("Target source:\n")
	b.WriteString("```\n")
	b.WriteString(pack.CodeSrc)
	b.WriteString("\n```\n\n")

	if pack.Summary != "" {
		fmt.Fprintf(&b, "Context summary: %s\n\n", pack.Summary)
	}

	b.WriteString("Framework constraints:\n")
	for _, line := range frameworkConstraints(framework) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\nGlobal constraints:\n")
	for _, line := range globalConstraints() {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\nOutput only raw test code, with no markdown code fences.\n")

	return b.String()
}

// frameworkConstraints returns the hard constraints the spec requires for
// each supported test-framework style.
func frameworkConstraints(framework model.FrameworkHint) []string {
	switch framework {
	case model.FrameworkUnittestDjango:
		return []string{
			"Must subclass Django's SimpleTestCase (or TestCase where a database is genuinely required).",
			"Must not import pytest.",
			"Use Django's assertion methods and its mocking facility (unittest.mock / django.test patching).",
		}
	case model.FrameworkUnittestPlain:
		return []string{
			"Must subclass unittest.TestCase.",
			"Must not import pytest.",
			"Use unittest's assertion methods and unittest.mock for mocking.",
		}
	case model.FrameworkPytest:
		return []string{
			"Function-style tests and fixtures are allowed.",
			"Prefer pytest idioms (parametrize, fixtures) over unittest boilerplate.",
		}
	default:
		return []string{"Must subclass unittest.TestCase."}
	}
}

// globalConstraints returns the constraints that apply regardless of
// framework.
func globalConstraints() []string {
	return []string{
		"Prefer real temporary-directory I/O over mocks where the target is I/O-bound.",
		"No network access.",
		"No database access unless the framework constraint above requires it.",
	}
}
