package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests the Client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("defaults create client", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client == nil {
			t.Fatal("expected non-nil client")
		}
	})

	t.Run("socks5 proxy creates client", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient(WithProxy("socks5://127.0.0.1:9050")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("http proxy creates client", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient(WithProxy("http://proxy.example.com:3128")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid proxy returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient(WithProxy("127.0.0.1:9050"))
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}

// TestParseProxyURL tests proxy URL validation.
func TestParseProxyURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		valid bool
	}{
		{"socks5://127.0.0.1:9050", true},
		{"socks5h://localhost:9050", true},
		{"http://proxy.example.com:3128", true},
		{"https://[::1]:8443", true},
		{"ftp://127.0.0.1:21", false},
		{"socks5://127.0.0.1", false},
		{"socks5://:9050", false},
		{"socks5://127.0.0.1:0", false},
		{"socks5://127.0.0.1:65536", false},
		{"socks5://127.0.0.1:abc", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			_, err := ParseProxyURL(tt.input)
			if tt.valid && err != nil {
				t.Errorf("expected %q to be valid, got %v", tt.input, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("expected ErrInvalidProxyAddress for %q, got %v", tt.input, err)
			}
		})
	}
}

// TestClientGet tests fetching pages from a local server.
func TestClientGet(t *testing.T) {
	t.Parallel()

	t.Run("returns body and sends user agent", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "test-agent" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>Statistics (1 threadmark, 2k words)</html>")) //nolint:errcheck
		}))
		defer server.Close()

		client, err := NewClient(WithUserAgent("test-agent"))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		resp, err := client.Get(context.Background(), server.URL+"/threads/a.1/threadmarks")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(resp.Body), "2k words") {
			t.Errorf("unexpected body %q", resp.Body)
		}
		if resp.ContentType != "text/html" {
			t.Errorf("expected text/html, got %q", resp.ContentType)
		}
		if resp.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", resp.Attempts)
		}
	})

	t.Run("404 returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		_, err = client.Get(context.Background(), server.URL)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected StatusError with 404, got %v", err)
		}
	})

	t.Run("500 returns ErrUnexpectedStatus", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		if _, err := client.Get(context.Background(), server.URL); !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
	})

	t.Run("429 is retried until success", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		var mu sync.Mutex
		var hooked []int
		client, err := NewClient(
			WithRateLimitWait(10*time.Millisecond),
			WithMaxRetries(5),
			WithOnRateLimited(func(_ string, attempt int) {
				mu.Lock()
				defer mu.Unlock()
				hooked = append(hooked, attempt)
			}),
		)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		resp, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "ok" {
			t.Errorf("expected body ok, got %q", resp.Body)
		}
		if resp.Attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", resp.Attempts)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(hooked) != 2 {
			t.Errorf("expected hook to be called twice, got %v", hooked)
		}
	})

	t.Run("429 exhausts retries", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewClient(WithRateLimitWait(time.Millisecond), WithMaxRetries(2))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		if _, err := client.Get(context.Background(), server.URL); !errors.Is(err, ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("expected 3 requests, got %d", got)
		}
	})

	t.Run("body over limit returns ErrBodyTooLarge", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 100))) //nolint:errcheck
		}))
		defer server.Close()

		client, err := NewClient(WithMaxBodySize(10))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		if _, err := client.Get(context.Background(), server.URL); !errors.Is(err, ErrBodyTooLarge) {
			t.Errorf("expected ErrBodyTooLarge, got %v", err)
		}
	})

	t.Run("cancelled context stops request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewClient(WithRateLimitWait(time.Hour), WithMaxRetries(3))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		if _, err := client.Get(ctx, server.URL); err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if time.Since(start) > 5*time.Second {
			t.Error("expected cancellation to interrupt the rate limit wait")
		}
	})
}

// TestClientDelay tests the delay between requests.
func TestClientDelay(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer server.Close()

	client, err := NewClient(WithDelay(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	start := time.Now()
	for range 3 {
		if _, err := client.Get(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("expected at least 100ms for 3 requests, got %v", elapsed)
	}
}

// TestStatusError tests status error matching.
func TestStatusError(t *testing.T) {
	t.Parallel()

	err := &StatusError{URL: "https://example.com", StatusCode: 503}
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Error("expected 503 to match ErrUnexpectedStatus")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("expected 503 not to match ErrNotFound")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("expected status code in message, got %q", err.Error())
	}
}
