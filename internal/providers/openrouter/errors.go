// Package openrouter provides the implementation of the OpenRouter LLM provider
package openrouter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/deepaksaipendyala/quest/internal/llm"
)

// APIErrorResponse represents the error structure returned by the OpenRouter API
type APIErrorResponse struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains the details of an API error returned by OpenRouter
type APIErrorDetail struct {
	Code    interface{} `json:"code"` // Can be string or int
	Message string      `json:"message"`
	Type    string      `json:"type,omitempty"`
	Param   string      `json:"param,omitempty"`
}

// IsOpenRouterError checks whether err is an *llm.LLMError originating from
// the openrouter provider.
func IsOpenRouterError(err error) (*llm.LLMError, bool) {
	var llmErr *llm.LLMError
	if errors.As(err, &llmErr) && llmErr.Provider == "openrouter" {
		return llmErr, true
	}
	return nil, false
}

// ParseErrorResponse extracts the message, type, and param fields from an
// OpenRouter API error response body. Returns empty strings if the body is
// empty, not valid JSON, or doesn't carry an error object.
func ParseErrorResponse(responseBody []byte) (errMsg, errType, errParam string) {
	if len(responseBody) == 0 {
		return "", "", ""
	}

	var apiErrorResp APIErrorResponse
	if err := json.Unmarshal(responseBody, &apiErrorResp); err != nil {
		return "", "", ""
	}

	return apiErrorResp.Error.Message, apiErrorResp.Error.Type, apiErrorResp.Error.Param
}

// FormatErrorDetails renders the parsed error fields into a single details
// string suitable for LLMError.Details. Returns "" if errorMsg is empty.
func FormatErrorDetails(errorMsg, errorType, errorParam string) string {
	if errorMsg == "" {
		return ""
	}

	details := fmt.Sprintf("API Error: %s", errorMsg)
	if errorType != "" {
		details += fmt.Sprintf(" (Type: %s)", errorType)
	}
	if errorParam != "" {
		details += fmt.Sprintf(" (Param: %s)", errorParam)
	}

	return details
}

// FormatAPIErrorFromResponse normalizes an HTTP error response from the
// OpenRouter API into an *llm.LLMError, parsing the response body for
// additional detail when present.
func FormatAPIErrorFromResponse(err error, statusCode int, responseBody []byte) *llm.LLMError {
	if err == nil {
		return nil
	}

	var llmErr *llm.LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errMsg, errType, errParam := ParseErrorResponse(responseBody)
	details := FormatErrorDetails(errMsg, errType, errParam)

	category := detectOpenRouterCategory(err, statusCode)

	llmError := llm.CreateStandardErrorWithMessage("openrouter", category, err, details)
	llmError.StatusCode = statusCode
	applyOpenRouterSuggestion(llmError, category)
	return llmError
}

// FormatAPIError normalizes rawError into an *llm.LLMError attributed to
// providerName. An existing LLMError from providerName is returned as-is;
// one from a different provider is re-wrapped with providerName. A plain
// error is categorized from its message text.
func FormatAPIError(rawError error, providerName string) error {
	if rawError == nil {
		return nil
	}

	var llmErr *llm.LLMError
	if errors.As(rawError, &llmErr) {
		if llmErr.Provider == providerName {
			return llmErr
		}
		return llm.Wrap(rawError, providerName, llmErr.Message, llmErr.ErrorCategory)
	}

	category := categorizeOpenRouterMessage(rawError.Error())
	message := fmt.Sprintf("Error from %s provider: %v", providerName, rawError)
	return llm.Wrap(rawError, providerName, message, category)
}

// detectOpenRouterCategory determines err's category, preferring an
// already-categorized error, then the HTTP status code, then OpenRouter's
// own message-text heuristics (which cover a few phrasings the shared
// llm.GetErrorCategoryFromMessage does not, e.g. "authorization failed" or
// "model not found").
func detectOpenRouterCategory(err error, statusCode int) llm.ErrorCategory {
	if err == nil {
		return llm.CategoryUnknown
	}
	if catErr, ok := llm.IsCategorizedError(err); ok {
		return catErr.Category()
	}
	if cat := llm.GetErrorCategoryFromStatusCode(statusCode); cat != llm.CategoryUnknown {
		return cat
	}
	return categorizeOpenRouterMessage(err.Error())
}

// categorizeOpenRouterMessage infers an ErrorCategory from raw message text
// using OpenRouter's own keyword set, checked in precedence order so e.g. a
// billing-related quota message lands on InsufficientCredits rather than
// the more generic RateLimit.
func categorizeOpenRouterMessage(msg string) llm.ErrorCategory {
	m := strings.ToLower(msg)
	switch {
	case containsAny(m, "auth", "unauthorized", "invalid key", "api key"):
		return llm.CategoryAuth
	case containsAny(m, "credit", "payment", "billing"):
		return llm.CategoryInsufficientCredits
	case containsAny(m, "rate limit", "quota", "too many requests"):
		return llm.CategoryRateLimit
	case containsAny(m, "not found"):
		return llm.CategoryNotFound
	case containsAny(m, "invalid request"):
		return llm.CategoryInvalidRequest
	case containsAny(m, "safety", "content_filter", "blocked", "filtered", "moderation"):
		return llm.CategoryContentFiltered
	case containsAny(m, "token limit", "tokens exceeds", "maximum context length"):
		return llm.CategoryInputLimit
	case containsAny(m, "network", "connection", "timeout"):
		return llm.CategoryNetwork
	case containsAny(m, "canceled", "cancelled", "deadline exceeded"):
		return llm.CategoryCancelled
	default:
		return llm.CategoryUnknown
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CreateAPIError builds an *llm.LLMError for the openrouter provider from a
// category and message, for call sites constructing an error locally rather
// than from an HTTP response (request validation, marshaling failures, and
// similar).
func CreateAPIError(category llm.ErrorCategory, errMsg string, originalErr error, details string) *llm.LLMError {
	llmError := llm.New("openrouter", "", 0, errMsg, "", originalErr, category)
	if details != "" {
		llmError.Details = details
	}
	applyOpenRouterSuggestion(llmError, category)
	return llmError
}

// applyOpenRouterSuggestion fills in an OpenRouter-specific remediation
// suggestion for category, always leaving Suggestion non-empty.
func applyOpenRouterSuggestion(llmError *llm.LLMError, category llm.ErrorCategory) {
	switch category {
	case llm.CategoryAuth:
		llmError.Suggestion = "Check that your OpenRouter API key is valid and has not expired. Ensure OPENROUTER_API_KEY environment variable is set correctly."
	case llm.CategoryRateLimit:
		llmError.Suggestion = "Wait and try again later. Consider adjusting the --max-concurrent and --rate-limit flags to limit request rate."
	case llm.CategoryInsufficientCredits:
		llmError.Suggestion = "Check your OpenRouter account balance and add credits if needed. Visit https://openrouter.ai/account for account details."
	case llm.CategoryInvalidRequest:
		llmError.Suggestion = "Check the prompt format and parameters. Ensure they comply with the API requirements."
	case llm.CategoryNotFound:
		llmError.Suggestion = "Verify that the model name is correct and uses the format 'provider/model' or 'provider/organization/model'."
	case llm.CategoryServer:
		llmError.Suggestion = "This is typically a temporary issue with OpenRouter or the underlying model provider. Wait a few moments and try again."
	case llm.CategoryNetwork:
		llmError.Suggestion = "Check your internet connection and try again. If persistent, there may be connectivity issues to OpenRouter's servers."
	case llm.CategoryCancelled:
		llmError.Suggestion = "The operation was interrupted. Try again with a longer timeout if needed."
	case llm.CategoryInputLimit:
		llmError.Suggestion = "Reduce the input size by using --include, --exclude, or --exclude-names flags to filter the context."
	case llm.CategoryContentFiltered:
		llmError.Suggestion = "Your prompt or content may have triggered safety filters. Review and modify your input to comply with content policies."
	default:
		llmError.Suggestion = "Check the logs for more details or try again."
	}
}
