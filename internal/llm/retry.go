package llm

import (
	"context"
	"strings"
	"time"
)

// ChatWithRetry sends a chat request and retries once after a backoff
// when the first attempt fails with a retryable error. Auth and request
// shape failures are returned immediately.
func ChatWithRetry(ctx context.Context, client Client, messages []Message, opts *ChatOptions, backoff time.Duration) (*Response, error) {
	resp, err := client.Chat(ctx, messages, opts)
	if err == nil {
		return resp, nil
	}
	if IsNonRetryable(err) || ctx.Err() != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(backoff):
	}

	return client.Chat(ctx, messages, opts)
}

// IsNonRetryable reports whether an error indicates a request that will
// fail the same way again: bad credentials, invalid model, or an
// oversized prompt.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, ErrNoAPIKey.Error()) ||
		strings.Contains(msg, ErrInvalidModel.Error()) ||
		strings.Contains(msg, ErrContextLength.Error())
}
