package openai

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/deepaksaipendyala/quest/internal/llm"
)

// Client is a thin wrapper around the openai-go SDK satisfying llm.LLMClient.
// Unlike the legacy client it replaces, it always requests per-token
// logprobs so the Model Gateway can compute entropy without a second call.
type Client struct {
	sdk          openaisdk.Client
	modelID      string
	temperature  float32
	topP         float32
	maxTokens    int32
	freqPenalty  float32
	presPenalty  float32
	hasTemp      bool
	hasTopP      bool
	hasMaxTokens bool
	hasFreqPen   bool
	hasPresPen   bool
}

// NewClient builds a Client for the given model, optionally pointed at a
// custom base URL (used for OpenAI-compatible gateways).
func NewClient(apiKey, modelID, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, llm.Wrap(llm.ErrConfigurationMissing, "openai", "missing API key", llm.CategoryAuth)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		sdk:     openaisdk.NewClient(opts...),
		modelID: modelID,
	}, nil
}

func (c *Client) SetTemperature(t float32)     { c.temperature, c.hasTemp = t, true }
func (c *Client) SetTopP(p float32)            { c.topP, c.hasTopP = p, true }
func (c *Client) SetMaxTokens(n int32)         { c.maxTokens, c.hasMaxTokens = n, true }
func (c *Client) SetFrequencyPenalty(p float32) { c.freqPenalty, c.hasFreqPen = p, true }
func (c *Client) SetPresencePenalty(p float32)  { c.presPenalty, c.hasPresPen = p, true }

// GenerateContent sends prompt as a single user message and requests logprobs.
func (c *Client) GenerateContent(ctx context.Context, prompt string, params map[string]interface{}) (*llm.ProviderResult, error) {
	req := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.modelID),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
		Logprobs: openaisdk.Bool(true),
	}
	if c.hasTemp {
		req.Temperature = openaisdk.Float(float64(c.temperature))
	}
	if c.hasTopP {
		req.TopP = openaisdk.Float(float64(c.topP))
	}
	if c.hasMaxTokens {
		req.MaxTokens = openaisdk.Int(int64(c.maxTokens))
	}
	if c.hasFreqPen {
		req.FrequencyPenalty = openaisdk.Float(float64(c.freqPenalty))
	}
	if c.hasPresPen {
		req.PresencePenalty = openaisdk.Float(float64(c.presPenalty))
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.Wrap(llm.ErrUpstreamError, "openai", "empty choices in completion response", llm.CategoryServer)
	}

	choice := resp.Choices[0]
	result := &llm.ProviderResult{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		TokenCount:   int32(resp.Usage.CompletionTokens),
		InputTokens:  int32(resp.Usage.PromptTokens),
		OutputTokens: int32(resp.Usage.CompletionTokens),
	}

	if choice.Logprobs.Content != nil {
		logprobs := make([]float64, 0, len(choice.Logprobs.Content))
		for _, tok := range choice.Logprobs.Content {
			logprobs = append(logprobs, tok.Logprob)
		}
		result.Logprobs = logprobs
	}

	return result, nil
}

// CountTokens is not backed by a dedicated SDK endpoint; usage accounting
// comes from the completion response instead, so this returns a rough
// whitespace-based estimate used only for pre-flight sizing checks.
func (c *Client) CountTokens(_ context.Context, prompt string) (*llm.ProviderTokenCount, error) {
	return &llm.ProviderTokenCount{Total: int32(len(prompt) / 4)}, nil
}

func (c *Client) GetModelInfo(_ context.Context) (*llm.ProviderModelInfo, error) {
	return &llm.ProviderModelInfo{Name: c.modelID}, nil
}

func (c *Client) GetModelName() string { return c.modelID }

func (c *Client) Close() error { return nil }

func translateError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return llm.Wrap(err, "openai", "authentication failed", llm.CategoryAuth)
		case 429:
			return llm.Wrap(err, "openai", "rate limited", llm.CategoryRateLimit)
		case 408:
			return llm.Wrap(llm.ErrUpstreamTimeout, "openai", "request timed out", llm.CategoryNetwork)
		default:
			return llm.Wrap(llm.ErrUpstreamError, "openai", fmt.Sprintf("API error (status %d)", apiErr.StatusCode), llm.CategoryServer)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.Wrap(llm.ErrUpstreamTimeout, "openai", "request timed out", llm.CategoryNetwork)
	}
	return llm.Wrap(llm.ErrUpstreamError, "openai", "request failed", llm.CategoryNetwork)
}

var _ llm.LLMClient = (*Client)(nil)
