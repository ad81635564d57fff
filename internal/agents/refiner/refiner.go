// Package refiner implements the Refiner (C7): given the current test
// source and the Critic's instructions, it asks the gateway for a revised
// TestArtifact that addresses them without discarding what already passes.
package refiner

import (
	"context"
	"fmt"
	"strings"

	"github.com/deepaksaipendyala/quest/internal/config"
	"github.com/deepaksaipendyala/quest/internal/gateway"
	"github.com/deepaksaipendyala/quest/internal/model"
)

// fallbackInstruction is substituted when the Critic produced no ordered
// instructions, e.g. on an attempt that improved but didn't fully resolve.
const fallbackInstruction = "Improve coverage and robustness without breaking any tests that currently pass."

// Refiner produces a revised candidate test from the previous attempt and
// its critique.
type Refiner struct {
	completer gateway.ModelCompleter
}

// New builds a Refiner backed by completer.
func New(completer gateway.ModelCompleter) *Refiner {
	return &Refiner{completer: completer}
}

// Refine asks the gateway to revise currentSource per critique's
// instructions, returning the revised TestArtifact and the call's metadata.
func (r *Refiner) Refine(ctx context.Context, targetPath string, framework model.FrameworkHint, pack model.ContextPack, currentSource string, critique model.Critique, decoding config.LLMDecodingConfig, collectLogprobs bool) (model.TestArtifact, model.LLMMetadata, error) {
	prompt := BuildPrompt(targetPath, framework, pack, currentSource, critique)

	text, meta, err := r.completer.Complete(ctx, gateway.CompletionRequest{
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

// BuildPrompt assembles the Refiner's prompt: the goal, the current test
// source, the critique's ordered instructions (or the fallback), and the
// framework guardrails that forbid breaking the existing test contract.
func BuildPrompt(targetPath string, framework model.FrameworkHint, pack model.ContextPack, currentSource string, critique model.Critique) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Revise the test module below for %s. Keep every assertion that currently passes intact; only change what is needed to address the issues listed.\n\n", targetPath)

	b.WriteString("Current test module:\n```\n")
	b.WriteString(currentSource)
	b.WriteString("\n```\n\n")

	if pack.Summary != "" {
		fmt.Fprintf(&b, "Context summary: %s\n\n", pack.Summary)
	}

	b.WriteString("Issues to address, in priority order:\n")
	instructions := critique.Instructions
	if len(instructions) == 0 {
		instructions = []string{fallbackInstruction}
	}
	for i, instr := range instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, instr)
	}

	b.WriteString("\nGuardrails:\n")
	for _, line := range guardrails(framework) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\nOutput only the complete revised raw test module, with no markdown code fences.\n")

	return b.String()
}

// guardrails returns the framework-specific rules that keep a refinement
// from silently drifting out of its required test style.
func guardrails(framework model.FrameworkHint) []string {
	common := []string{
		"Do not introduce network access.",
		"Do not add a database dependency unless one is already present.",
		"Keep existing imports unless a change strictly requires otherwise.",
	}

	switch framework {
	case model.FrameworkUnittestDjango, model.FrameworkUnittestPlain:
		return append([]string{
			"Preserve the unittest-based structure; do not rewrite it as pytest.",
			"Do not add a new entry point or __main__ block that would change how the runner invokes the module.",
		}, common...)
	case model.FrameworkPytest:
		return append([]string{
			"Preserve pytest style; stay consistent with the current module's fixtures and naming.",
		}, common...)
	default:
		return common
	}
}
