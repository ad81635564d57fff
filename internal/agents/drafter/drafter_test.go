package drafter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepaksaipendyala/quest/internal/config"
	"github.com/deepaksaipendyala/quest/internal/gateway"
	"github.com/deepaksaipendyala/quest/internal/model"
)

func TestBuildPromptEmbedsTargetSourceAndGoal(t *testing.T) {
	pack := model.ContextPack{CodeSrc: "def f():\n    return 1\n", Summary: "1 top-level symbol"}
	prompt := BuildPrompt("acme/repo", "v1", "acme/repo/f.py", model.FrameworkPytest, pack)

	assert.Contains(t, prompt, "maximize branch coverage and mutation kill rate")
	assert.Contains(t, prompt, "def f():")
	assert.Contains(t, prompt, "no markdown code fences")
}

func TestBuildPromptDjangoForbidsPytest(t *testing.T) {
	prompt := BuildPrompt("acme/repo", "v1", "x.py", model.FrameworkUnittestDjango, model.ContextPack{})
	assert.Contains(t, prompt, "SimpleTestCase")
	assert.Contains(t, prompt, "Must not import pytest")
}

func TestBuildPromptPytestAllowsFixtures(t *testing.T) {
	prompt := BuildPrompt("acme/repo", "v1", "x.py", model.FrameworkPytest, model.ContextPack{})
	assert.Contains(t, prompt, "fixtures")
	assert.NotContains(t, prompt, "Must not import pytest")
}

func TestDraftReturnsTestArtifactFromCompleter(t *testing.T) {
	completer := &stubCompleter{text: "def test_f():\n    assert True\n"}
	d := New(completer)

	artifact, _, err := d.Draft(context.Background(), "acme/repo", "v1", "x.py", model.FrameworkPytest, model.ContextPack{}, config.LLMDecodingConfig{}, true)
	require.NoError(t, err)
	assert.Equal(t, "def test_f():\n    assert True\n", artifact.Source)
	assert.True(t, artifact.ParsedOK)
	assert.Equal(t, model.FrameworkPytest, artifact.Framework)
}

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(ctx context.Context, req gateway.CompletionRequest) (string, model.LLMMetadata, error) {
	if s.err != nil {
		return "", model.LLMMetadata{}, s.err
	}
	return s.text, model.LLMMetadata{InputTokens: 10, OutputTokens: 5}, nil
}
