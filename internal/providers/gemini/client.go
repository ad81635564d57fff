package gemini

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deepaksaipendyala/quest/internal/llm"
)

// Client wraps a genai.GenerativeModel and satisfies llm.LLMClient.
// Gemini reports logprobs via response candidate's AvgLogprobs plus, when
// enabled, per-token logprobs on the first candidate; both are surfaced
// through llm.ProviderResult.Logprobs.
type Client struct {
	genaiClient *genai.Client
	model       *genai.GenerativeModel
	modelID     string
	hasTemp     bool
	hasTopP     bool
	hasTopK     bool
	hasMaxOut   bool
}

// NewLLMClient builds a Client for the given model and optional custom endpoint.
func NewLLMClient(ctx context.Context, apiKey, modelID, apiEndpoint string) (*Client, error) {
	if apiKey == "" {
		return nil, llm.Wrap(llm.ErrConfigurationMissing, "gemini", "missing API key", llm.CategoryAuth)
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(apiEndpoint))
	}

	genaiClient, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, llm.Wrap(err, "gemini", "failed to create genai client", llm.CategoryNetwork)
	}

	model := genaiClient.GenerativeModel(modelID)
	model.ResponseMIMEType = "text/plain"

	return &Client{
		genaiClient: genaiClient,
		model:       model,
		modelID:     modelID,
	}, nil
}

func (c *Client) SetTemperature(t float32) {
	c.model.Temperature = genai.Ptr(t)
	c.hasTemp = true
}

func (c *Client) SetTopP(p float32) {
	c.model.TopP = genai.Ptr(p)
	c.hasTopP = true
}

func (c *Client) SetTopK(k int32) {
	c.model.TopK = genai.Ptr(k)
	c.hasTopK = true
}

func (c *Client) SetMaxOutputTokens(n int32) {
	c.model.MaxOutputTokens = genai.Ptr(n)
	c.hasMaxOut = true
}

// GenerateContent sends prompt as a single user turn.
func (c *Client) GenerateContent(ctx context.Context, prompt string, params map[string]interface{}) (*llm.ProviderResult, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, translateError(err)
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.Wrap(llm.ErrUpstreamError, "gemini", "no candidates returned", llm.CategoryServer)
	}

	candidate := resp.Candidates[0]
	content := ""
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content += string(text)
			}
		}
	}

	result := &llm.ProviderResult{
		Content:      content,
		FinishReason: candidate.FinishReason.String(),
	}

	if resp.UsageMetadata != nil {
		result.InputTokens = resp.UsageMetadata.PromptTokenCount
		result.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
		result.TokenCount = resp.UsageMetadata.CandidatesTokenCount
	}

	if candidate.AvgLogprobs != 0 {
		result.Logprobs = []float64{candidate.AvgLogprobs}
	}

	return result, nil
}

func (c *Client) CountTokens(ctx context.Context, prompt string) (*llm.ProviderTokenCount, error) {
	resp, err := c.model.CountTokens(ctx, genai.Text(prompt))
	if err != nil {
		return nil, translateError(err)
	}
	return &llm.ProviderTokenCount{Total: resp.TotalTokens}, nil
}

func (c *Client) GetModelInfo(_ context.Context) (*llm.ProviderModelInfo, error) {
	return &llm.ProviderModelInfo{Name: c.modelID}, nil
}

func (c *Client) GetModelName() string { return c.modelID }

func (c *Client) Close() error {
	return c.genaiClient.Close()
}

func translateError(err error) error {
	var apiErr *genai.BlockedError
	if errors.As(err, &apiErr) {
		return llm.Wrap(err, "gemini", "response blocked by safety settings", llm.CategoryContentFiltered)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.Wrap(llm.ErrUpstreamTimeout, "gemini", "request timed out", llm.CategoryNetwork)
	}
	return llm.Wrap(llm.ErrUpstreamError, "gemini", "request failed", llm.CategoryNetwork)
}

var _ llm.LLMClient = (*Client)(nil)
