package summarizer

import "fmt"

// ErrAnalysisFailed is the terminal error after the single retry is
// exhausted for validation or generic call failures.
type ErrAnalysisFailed struct {
	Err error
}

func (e *ErrAnalysisFailed) Error() string {
	return fmt.Sprintf("could not analyze the provided file: %v", e.Err)
}

func (e *ErrAnalysisFailed) Unwrap() error { return e.Err }

// ErrRateLimited is the terminal error when the provider is still rate
// limiting after the retry.
type ErrRateLimited struct {
	Err error
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("could not analyze the provided file: provider rate limit or quota exceeded, wait a few minutes and try again: %v", e.Err)
}

func (e *ErrRateLimited) Unwrap() error { return e.Err }

// ErrAuthFailed is the terminal error when the provider rejects the
// configured credentials.
type ErrAuthFailed struct {
	Err error
}

func (e *ErrAuthFailed) Error() string {
	return fmt.Sprintf("could not analyze the provided file: provider authentication failed, check the configured API key: %v", e.Err)
}

func (e *ErrAuthFailed) Unwrap() error { return e.Err }

// APIError is a structured non-2xx response from the chat-completions
// endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}
