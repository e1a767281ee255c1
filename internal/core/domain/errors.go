package domain

import "errors"

var (
	// ErrAgentUnavailable is returned when no language model is configured.
	ErrAgentUnavailable = errors.New("agent not configured: set GEMINI_API_KEY to enable AI responses")

	// ErrModel wraps failures reported by the language model provider.
	ErrModel = errors.New("language model request failed")
)
