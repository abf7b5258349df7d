package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) DefaultModel() string { return "test-model" }

func (f *flakyProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient failure")
	}
	return &ChatResponse{Content: "ok"}, nil
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyProvider{failures: 2}
	p := WithRetry(inner, RetryConfig{MaxAttempts: 4})

	resp, err := p.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	inner := &flakyProvider{failures: 10}
	p := WithRetry(inner, RetryConfig{MaxAttempts: 3})

	_, err := p.Chat(context.Background(), &ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyProvider{}
	p := WithRetry(inner, RetryConfig{MaxAttempts: 3})

	_, err := p.Chat(ctx, &ChatRequest{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, inner.calls)
}
