package ai

import "errors"

var (
	ErrAINotConfigured       = errors.New("AI provider is not configured")
	ErrAIProviderUnavailable = errors.New("AI provider is currently unavailable")
	ErrSafetyViolation       = errors.New("generated content violated safety policies")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
)
