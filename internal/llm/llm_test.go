package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ── Construction ──

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewOpenAIClient(\"\"): got %v, want ErrNoAPIKey", err)
	}
}

func TestNewOpenAIClientOptions(t *testing.T) {
	c, err := NewOpenAIClient("sk-test",
		WithBaseURL("http://localhost:9999/v1/"),
		WithModel("gpt-4o-mini"),
	)
	if err != nil {
		t.Fatalf("NewOpenAIClient error: %v", err)
	}
	if c.baseURL != "http://localhost:9999/v1" {
		t.Errorf("baseURL: got %q, trailing slash should be trimmed", c.baseURL)
	}
	if c.model != "gpt-4o-mini" {
		t.Errorf("model: got %q", c.model)
	}
}

// ── Chat ──

func newChatServer(t *testing.T, status int, response any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization header: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}))
}

func TestChatSuccess(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, map[string]any{
		"id":    "chatcmpl-123",
		"model": "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "Hello there"},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	resp, err := c.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if resp.Content != "Hello there" {
		t.Errorf("Content: got %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason: got %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens: got %d, want 15", resp.Usage.TotalTokens)
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("Model: got %q", resp.Model)
	}
}

func TestChatSendsOptions(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}, "finish_reason": "stop"},
			},
		})
	}))
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	_, err := c.Chat(context.Background(),
		[]Message{SystemMessage("be brief"), UserMessage("hi")},
		&ChatOptions{Model: "gpt-4o-mini", Temperature: 0.2, MaxTokens: 256},
	)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}

	if captured.Model != "gpt-4o-mini" {
		t.Errorf("request model: got %q", captured.Model)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("request messages: got %d, want 2", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Errorf("message roles: got %q, %q", captured.Messages[0].Role, captured.Messages[1].Role)
	}
	if captured.Temperature == nil || *captured.Temperature != 0.2 {
		t.Error("temperature not forwarded")
	}
	if captured.MaxTokens == nil || *captured.MaxTokens != 256 {
		t.Error("max_tokens not forwarded")
	}
}

func TestChatUnauthorized(t *testing.T) {
	srv := newChatServer(t, http.StatusUnauthorized, map[string]any{
		"error": map[string]string{"message": "Incorrect API key", "type": "invalid_request_error"},
	})
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	_, err := c.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("got %v, want ErrNoAPIKey", err)
	}
}

func TestChatRateLimited(t *testing.T) {
	srv := newChatServer(t, http.StatusTooManyRequests, map[string]any{
		"error": map[string]string{"message": "Rate limit reached", "type": "rate_limit_error"},
	})
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	_, err := c.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if !errors.Is(err, ErrRateLimit) {
		t.Errorf("got %v, want ErrRateLimit", err)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, map[string]any{
		"model":   "gpt-4o",
		"choices": []map[string]any{},
	})
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	_, err := c.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("got %v, want ErrEmptyResponse", err)
	}
}

// ── Ping ──

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping error: %v", err)
	}
}

func TestPingInvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-bad", WithBaseURL(srv.URL))
	if err := c.Ping(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("got %v, want ErrNoAPIKey", err)
	}
}

// ── ChatWithRetry ──

// stubClient returns canned responses in order.
type stubClient struct {
	calls int
	errs  []error
	resp  *Response
}

func (s *stubClient) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	return s.resp, nil
}

func (s *stubClient) Ping(ctx context.Context) error { return nil }

func TestChatWithRetrySucceedsFirstTry(t *testing.T) {
	stub := &stubClient{resp: &Response{Content: "ok"}}
	resp, err := ChatWithRetry(context.Background(), stub, []Message{UserMessage("hi")}, nil, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content: got %q", resp.Content)
	}
	if stub.calls != 1 {
		t.Errorf("calls: got %d, want 1", stub.calls)
	}
}

func TestChatWithRetryRecoversFromTransient(t *testing.T) {
	stub := &stubClient{
		errs: []error{fmt.Errorf("%w: busy", ErrRateLimit)},
		resp: &Response{Content: "recovered"},
	}
	resp, err := ChatWithRetry(context.Background(), stub, []Message{UserMessage("hi")}, nil, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("Content: got %q", resp.Content)
	}
	if stub.calls != 2 {
		t.Errorf("calls: got %d, want 2", stub.calls)
	}
}

func TestChatWithRetryStopsAfterSecondFailure(t *testing.T) {
	stub := &stubClient{
		errs: []error{
			fmt.Errorf("%w: busy", ErrRateLimit),
			fmt.Errorf("%w: still busy", ErrRateLimit),
		},
	}
	_, err := ChatWithRetry(context.Background(), stub, []Message{UserMessage("hi")}, nil, time.Millisecond)
	if !errors.Is(err, ErrRateLimit) {
		t.Errorf("got %v, want ErrRateLimit", err)
	}
	if stub.calls != 2 {
		t.Errorf("calls: got %d, want exactly 2 (one retry)", stub.calls)
	}
}

func TestChatWithRetrySkipsNonRetryable(t *testing.T) {
	stub := &stubClient{
		errs: []error{fmt.Errorf("%w: bad key", ErrNoAPIKey)},
	}
	_, err := ChatWithRetry(context.Background(), stub, []Message{UserMessage("hi")}, nil, time.Millisecond)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("got %v, want ErrNoAPIKey", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls: got %d, want 1 (no retry on auth errors)", stub.calls)
	}
}

// ── IsNonRetryable ──

func TestIsNonRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrNoAPIKey, true},
		{ErrInvalidModel, true},
		{ErrContextLength, true},
		{ErrRateLimit, false},
		{ErrProviderDown, false},
		{fmt.Errorf("%w: wrapped", ErrNoAPIKey), true},
		{errors.New("random error"), false},
	}
	for _, tc := range tests {
		if got := IsNonRetryable(tc.err); got != tc.want {
			t.Errorf("IsNonRetryable(%v): got %v, want %v", tc.err, got, tc.want)
		}
	}
}
