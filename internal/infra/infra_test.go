package infra

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// ── HTTP helpers ──

func TestDoGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("missing default user agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("X-Api-Key") != "key-123" {
			t.Errorf("custom header not forwarded, got %q", r.Header.Get("X-Api-Key"))
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, status, err := DoGet(context.Background(), srv.URL, map[string]string{"X-Api-Key": "key-123"})
	if err != nil {
		t.Fatalf("DoGet: %v", err)
	}
	defer body.Close()
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	b, _ := io.ReadAll(body)
	if string(b) != `{"ok":true}` {
		t.Errorf("body = %s", b)
	}
}

func TestDoGetHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, status, err := DoGet(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", status)
	}
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("error is not *ErrHTTP: %v", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("ErrHTTP.StatusCode = %d", httpErr.StatusCode)
	}
}

func TestDoPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		if string(b) != `{"q":"test"}` {
			t.Errorf("request body = %s", b)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, status, err := DoPost(context.Background(), srv.URL, strings.NewReader(`{"q":"test"}`), nil)
	if err != nil {
		t.Fatalf("DoPost: %v", err)
	}
	defer body.Close()
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}

// ── Cache ──

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("k", 42)

	v, ok := c.Get("k")
	if !ok || v.(int) != 42 {
		t.Errorf("Get = %v, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get returned a value for a missing key")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	c.SetWithTTL("k", "v", 10*time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("value expired immediately")
	}
	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("value still present after TTL")
	}
}

func TestCacheInvalidateFlush(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("invalidated key still present")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("unrelated key was removed")
	}

	c.Flush()
	if _, ok := c.Get("b"); ok {
		t.Error("key present after flush")
	}
}

// ── Rate limiter ──

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("initial burst blocked for %v", elapsed)
	}
}

func TestRateLimiterBlocksWhenEmpty(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Wait err = %v, want deadline exceeded", err)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Millisecond)
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("second Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("refill took %v", elapsed)
	}
}
