// Package providers defines the Provider interface the registry resolves a
// model's configured provider name to, and the gemini/openai/openrouter
// adapters implementing it.
package providers

import "errors"

// Sentinel errors a Provider's CreateClient can return; the registry
// passes these through to the caller rather than rewrapping them.
var (
	// ErrProviderNotFound is returned when a requested provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrInvalidAPIKey is returned when an API key is invalid or empty
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrInvalidModelID is returned when CreateClient is given an empty model ID
	ErrInvalidModelID = errors.New("invalid model ID")

	// ErrInvalidEndpoint is returned when an API endpoint is invalid
	ErrInvalidEndpoint = errors.New("invalid API endpoint")

	// ErrClientCreation is returned when client creation fails
	ErrClientCreation = errors.New("failed to create client")
)
