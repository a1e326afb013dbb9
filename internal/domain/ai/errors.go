package ai

import "errors"

var (
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")

	// ErrMissingCredentials means no API key is configured for the provider.
	ErrMissingCredentials = errors.New("ai credentials missing")

	// ErrEmptyResponse means the provider answered without any content.
	ErrEmptyResponse = errors.New("ai returned an empty response")
)
