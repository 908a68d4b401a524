package llm

import (
	"errors"
	"fmt"
)

// ErrUnknownProvider indicates a model spec names a provider that is not
// registered with the gateway.
var ErrUnknownProvider = errors.New("unknown LLM provider")

// ProviderError wraps a non-success provider response or a malformed body.
// The gateway never retries; recovery policy belongs to the caller.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

// Error returns the formatted error message.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError checks if an error originated from a provider call.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
