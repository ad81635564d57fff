// Package runner is the Runner Client (C8): it submits a test artifact to
// the sandboxed execution service over HTTP and parses its verdict into a
// RunnerResponse.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deepaksaipendyala/quest/internal/logutil"
	"github.com/deepaksaipendyala/quest/internal/model"
)

// Client submits attempts to the sandboxed runner service.
type Client struct {
	baseURL    string
	codeURL    string
	httpClient *http.Client
	logger     logutil.LoggerInterface
}

// New builds a Client targeting baseURL (the execution endpoint) and
// codeURL (the optional source-fetch endpoint, may be empty), with the
// given request timeout.
func New(baseURL, codeURL string, timeout time.Duration, logger logutil.LoggerInterface) *Client {
	return &Client{
		baseURL: baseURL,
		codeURL: codeURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// runRequest is the wire request the runner service expects.
type runRequest struct {
	Repo    string `json:"repo"`
	Version string `json:"version"`
	Code    string `json:"code_file"`
	TestSrc string `json:"test_src"`
}

// rawRunResponse mirrors the runner's wire response. Numeric fields are
// pointers so a missing field can be told apart from a genuine zero.
type rawRunResponse struct {
	Success             bool     `json:"success"`
	ExitCode        *int     `json:"exit_code"`
	Coverage        *float64 `json:"coverage"`
	CoverageDetails struct {
		MissingLines []int `json:"missing_lines"`
	} `json:"coverage_details"`
	MutationScore       *float64 `json:"mutation_score"`
	MutationNum         *int     `json:"mutation_num"`
	MutationUncertainty *float64 `json:"mutation_uncertainty"`
	TestError           string   `json:"test_error"`
	Stdout              string   `json:"stdout"`
	Stderr              string   `json:"stderr"`
	ExecutionTimeMs     *int64   `json:"execution_time_ms"`
}

// Run submits repo/version/codeFile/testSrc to the runner and returns the
// parsed RunnerResponse. Missing numeric wire fields are substituted with
// -1, per contract.
func (c *Client) Run(ctx context.Context, repo, version, codeFile, testSrc string) (model.RunnerResponse, error) {
	body, err := json.Marshal(runRequest{Repo: repo, Version: version, Code: codeFile, TestSrc: testSrc})
	if err != nil {
		return model.RunnerResponse{}, fmt.Errorf("runner: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return model.RunnerResponse{}, fmt.Errorf("runner: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RunnerResponse{}, fmt.Errorf("runner: request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && c.logger != nil {
			c.logger.Warn("runner: failed to close response body: %v", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RunnerResponse{}, fmt.Errorf("runner: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return model.RunnerResponse{}, fmt.Errorf("runner: non-200 status %d: %s", resp.StatusCode, string(respBody))
	}

	var raw rawRunResponse
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return model.RunnerResponse{}, fmt.Errorf("runner: failed to parse response: %w", err)
	}

	elapsed := time.Since(start)

	return model.RunnerResponse{
		Success:             raw.Success,
		ExitCode:            intOr(raw.ExitCode, -1),
		Coverage:            floatOr(raw.Coverage, -1),
		CoverageDetails:     model.CoverageDetails{MissingLines: raw.CoverageDetails.MissingLines},
		MutationScore:       floatOr(raw.MutationScore, -1),
		MutationNum:         intOr(raw.MutationNum, -1),
		MutationUncertainty: floatOr(raw.MutationUncertainty, -1),
		TestError:           raw.TestError,
		Stdout:              raw.Stdout,
		Stderr:              raw.Stderr,
		ExecutionTime:       durationOrElapsed(raw.ExecutionTimeMs, elapsed),
	}, nil
}

// FetchCode retrieves the target source from the optional code endpoint,
// for repos that are not locally mounted.
func (c *Client) FetchCode(ctx context.Context, repo, version, codeFile string) (string, error) {
	if c.codeURL == "" {
		return "", fmt.Errorf("runner: no code endpoint configured")
	}

	body, err := json.Marshal(struct {
		Repo    string `json:"repo"`
		Version string `json:"version"`
		Code    string `json:"code_file"`
	}{Repo: repo, Version: version, Code: codeFile})
	if err != nil {
		return "", fmt.Errorf("runner: failed to marshal code request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.codeURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("runner: failed to build code request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("runner: code request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && c.logger != nil {
			c.logger.Warn("runner: failed to close code response body: %v", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("runner: failed to read code response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("runner: code endpoint non-200 status %d: %s", resp.StatusCode, string(respBody))
	}

	var payload struct {
		CodeSrc string `json:"code_src"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("runner: failed to parse code response: %w", err)
	}
	return payload.CodeSrc, nil
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func durationOrElapsed(ms *int64, elapsed time.Duration) time.Duration {
	if ms == nil {
		return elapsed
	}
	return time.Duration(*ms) * time.Millisecond
}

// DryClient is the Runner Client's dry-mode stand-in: it returns a
// deterministic stub response without making any network call.
type DryClient struct {
	TargetCoverage float64
	TargetMutation float64
}

// Run returns the dry-mode stub response for any input.
func (d *DryClient) Run(ctx context.Context, repo, version, codeFile, testSrc string) (model.RunnerResponse, error) {
	return model.RunnerResponse{
		Success:       true,
		ExitCode:      0,
		Coverage:      d.TargetCoverage / 2,
		MutationScore: d.TargetMutation / 2,
	}, nil
}
