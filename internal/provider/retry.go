package provider

import (
	"context"
	"time"
)

// RetryConfig controls the bounded retry applied to model calls.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// WithRetry wraps a provider with deterministic, error-only retries using
// exponential backoff. The wrapped provider still presents a single blocking
// Chat call: callers observe either the first success or the last failure.
func WithRetry(next LLMProvider, cfg RetryConfig) LLMProvider {
	if next == nil {
		return nil
	}
	return &retryProvider{next: next, cfg: cfg}
}

type retryProvider struct {
	next LLMProvider
	cfg  RetryConfig
}

func (p *retryProvider) DefaultModel() string {
	return p.next.DefaultModel()
}

func (p *retryProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	attempts := p.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := p.next.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if p.cfg.MaxDelay > 0 && delay > p.cfg.MaxDelay {
			delay = p.cfg.MaxDelay
		}
	}
	return nil, lastErr
}
