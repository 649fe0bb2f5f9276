package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/datapeek/datapeek/pkg/models"
)

// maxAttempts is the total number of summarizer calls: the first try plus
// exactly one retry.
const maxAttempts = 2

// retryDelay is the pause before the retry for generic failures.
const retryDelay = 1 * time.Second

// rateLimitDelay is the longer pause used when the failure looks like
// rate limiting.
const rateLimitDelay = 5 * time.Second

// Completer is the external collaborator: one prompt in, one reply out.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Orchestrator wraps the summarizer call with response validation and a
// bounded retry loop.
type Orchestrator struct {
	client Completer
	sleep  func(time.Duration)
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSleep replaces the inter-attempt delay function, letting tests run
// without wall-clock pauses.
func WithSleep(fn func(time.Duration)) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = fn }
}

// NewOrchestrator wires an orchestrator around a completer.
func NewOrchestrator(client Completer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{client: client, sleep: time.Sleep}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Suggest asks the summarizer for 3-5 visualization suggestions for the
// profiled table. Any validation or call failure is retried exactly once
// after a fixed delay (longer when the provider is rate limiting); a
// second failure surfaces as ErrAnalysisFailed, ErrRateLimited, or
// ErrAuthFailed depending on how the last failure classified.
func (o *Orchestrator) Suggest(ctx context.Context, p models.Profile, filename string) ([]models.Suggestion, error) {
	user := buildPrompt(p, filename)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryDelay
			if isRateLimit(lastErr) {
				delay = rateLimitDelay
			}
			log.Warn().Err(lastErr).Dur("delay", delay).Msg("summarizer attempt failed, retrying")
			o.sleep(delay)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reply, err := o.client.Complete(ctx, systemPrompt, user)
		if err != nil {
			lastErr = err
			continue
		}
		suggestions, err := parseSuggestions(reply)
		if err != nil {
			lastErr = err
			continue
		}
		return suggestions, nil
	}

	switch {
	case isAuthError(lastErr):
		return nil, &ErrAuthFailed{Err: lastErr}
	case isRateLimit(lastErr):
		return nil, &ErrRateLimited{Err: lastErr}
	default:
		return nil, &ErrAnalysisFailed{Err: lastErr}
	}
}

// parseSuggestions validates the raw reply: after stripping markdown
// fences (and, as a fallback, any prose around the outermost brackets) it
// must be a JSON array of objects carrying title, chart_type, parameters,
// and insight, with chart_type restricted to the suggestible set.
func parseSuggestions(reply string) ([]models.Suggestion, error) {
	content := stripFences(reply)

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		start := strings.Index(content, "[")
		end := strings.LastIndex(content, "]")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("response is not a JSON array: %w", err)
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
			return nil, fmt.Errorf("response is not a JSON array: %w", err)
		}
	}
	if len(raw) == 0 {
		return nil, errors.New("response contains no visualizations")
	}

	out := make([]models.Suggestion, 0, len(raw))
	for i, obj := range raw {
		for _, key := range []string{"title", "chart_type", "parameters", "insight"} {
			if _, ok := obj[key]; !ok {
				return nil, fmt.Errorf("visualization %d is missing required key %q", i, key)
			}
		}
		var s models.Suggestion
		if err := json.Unmarshal(obj["title"], &s.Title); err != nil {
			return nil, fmt.Errorf("visualization %d has a non-string title", i)
		}
		if err := json.Unmarshal(obj["chart_type"], &s.ChartType); err != nil {
			return nil, fmt.Errorf("visualization %d has a non-string chart_type", i)
		}
		if err := json.Unmarshal(obj["parameters"], &s.Parameters); err != nil {
			return nil, fmt.Errorf("visualization %d parameters must be an object of strings", i)
		}
		if err := json.Unmarshal(obj["insight"], &s.Insight); err != nil {
			return nil, fmt.Errorf("visualization %d has a non-string insight", i)
		}
		if !models.SuggestibleChartType(s.ChartType) {
			return nil, fmt.Errorf("visualization %d has invalid chart type %q", i, s.ChartType)
		}
		out = append(out, s)
	}
	return out, nil
}

// stripFences removes a wrapping markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isRateLimit classifies a failure as provider rate limiting.
func isRateLimit(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate_limit_exceeded") || strings.Contains(msg, "429")
}

// isAuthError classifies a failure as bad or missing credentials.
func isAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid_api_key")
}
