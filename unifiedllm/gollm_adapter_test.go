package unifiedllm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teilomillet/gollm"
)

func TestGollmAdapterName(t *testing.T) {
	// Adapter construction may fail without network-reachable providers;
	// only Name() behavior is checked.
	for _, provider := range []string{"openai", "anthropic"} {
		adapter, err := NewGollmAdapter(provider, "test-key-not-real")
		if err != nil {
			t.Logf("skipping %s adapter creation (expected without real key): %v", provider, err)
			continue
		}
		if adapter.Name() != provider {
			t.Errorf("expected name %q, got %q", provider, adapter.Name())
		}
		if adapter.Model() == "" {
			t.Errorf("expected %s adapter to resolve a default model", provider)
		}
	}
}

func TestNewGollmAdapterUnknownProviderWithoutModel(t *testing.T) {
	_, err := NewGollmAdapter("made-up-provider", "key")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestGollmAdapterTranslateError(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}

	tests := []struct {
		errMsg    string
		check     func(error) bool
		retryable bool
	}{
		{"401 Unauthorized", is[*AuthenticationError], false},
		{"invalid api key", is[*AuthenticationError], false},
		{"403 Forbidden", is[*AccessDeniedError], false},
		{"insufficient_quota for this account", is[*QuotaExceededError], false},
		{"404 not found", is[*NotFoundError], false},
		{"429 rate limit exceeded", is[*RateLimitError], true},
		{"context length exceeded", is[*ContextLengthError], false},
		{"500 internal server error", is[*ServerError], true},
		{"model is overloaded", is[*ServerError], true},
		{"timeout waiting for response", is[*RequestTimeoutError], true},
		{"dial tcp: connection refused", is[*NetworkError], true},
		{"content filter triggered", is[*ContentFilterError], false},
		{"something unknown", is[*ProviderError], true},
	}

	for _, tt := range tests {
		err := adapter.translateError(errForMsg(tt.errMsg), gollmCall{})
		if err == nil {
			t.Errorf("expected non-nil error for %q", tt.errMsg)
			continue
		}
		if !tt.check(err) {
			t.Errorf("for %q: unexpected error type %T", tt.errMsg, err)
		}
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("for %q: IsRetryable = %v, want %v", tt.errMsg, got, tt.retryable)
		}
		if !IsAPIError(err) {
			t.Errorf("for %q: expected translated error to be an API error", tt.errMsg)
		}
	}
}

func TestGollmAdapterTranslateContextErrors(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}
	for _, cause := range []error{context.Canceled, fmt.Errorf("generate: %w", context.DeadlineExceeded)} {
		err := adapter.translateError(cause, gollmCall{})
		if !is[*AbortError](err) {
			t.Errorf("expected AbortError for %v, got %T", cause, err)
		}
		if IsRetryable(err) {
			t.Errorf("expected abort to be non-retryable")
		}
	}
	if adapter.translateError(nil, gollmCall{}) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestGollmAdapterTranslateErrorPrefersStatus(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}
	generic := errForMsg("failed to generate after 1 attempts")

	tests := []struct {
		name      string
		call      gollmCall
		check     func(error) bool
		retryable bool
	}{
		{"401", gollmCall{status: 401, body: `{"error":"bad key"}`}, is[*AuthenticationError], false},
		{"403", gollmCall{status: 403}, is[*AccessDeniedError], false},
		{"400", gollmCall{status: 400}, is[*InvalidRequestError], false},
		{"429", gollmCall{status: 429}, is[*RateLimitError], true},
		{"503", gollmCall{status: 503}, is[*ServerError], true},
		{"attempt error", gollmCall{err: errForMsg("failed to send request: dial tcp: connection refused")}, is[*NetworkError], true},
		{"attempt deadline", gollmCall{err: fmt.Errorf("send: %w", context.DeadlineExceeded)}, is[*RequestTimeoutError], true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := adapter.translateError(generic, tt.call)
			if !tt.check(err) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestGollmAdapterStatusBody(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}
	err := adapter.translateError(errForMsg("failed"), gollmCall{status: 401, body: "key revoked"})
	if !strings.Contains(err.Error(), "key revoked") {
		t.Errorf("expected body in message, got %q", err.Error())
	}
}

// ollamaServer answers /api/generate with the given status codes in turn,
// repeating the last one. /api/tags is used by gollm to check the endpoint.
func ollamaServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
			return
		case "/api/generate":
		default:
			http.NotFound(w, r)
			return
		}
		n := int(calls.Add(1)) - 1
		status := statuses[min(n, len(statuses)-1)]
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, `{"model":"llama3.1","response":"hi","done":true}`)
			return
		}
		fmt.Fprintf(w, `{"error":"status %d"}`, status)
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func newOllamaAdapter(t *testing.T, endpoint string, logger *slog.Logger) *GollmAdapter {
	t.Helper()
	opts := []GollmAdapterOption{
		WithModel("llama3.1"),
		WithGollmOptions(gollm.SetOllamaEndpoint(endpoint)),
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	adapter, err := NewGollmAdapter("ollama", "", opts...)
	if err != nil {
		t.Fatalf("NewGollmAdapter: %v", err)
	}
	return adapter
}

func TestGollmAdapterHTTPStatus(t *testing.T) {
	tests := []struct {
		status    int
		check     func(error) bool
		retryable bool
		calls     int32
	}{
		{http.StatusUnauthorized, is[*AuthenticationError], false, 1},
		{http.StatusForbidden, is[*AccessDeniedError], false, 1},
		{http.StatusTooManyRequests, is[*RateLimitError], true, 3},
		{http.StatusServiceUnavailable, is[*ServerError], true, 3},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			ts, calls := ollamaServer(t, tt.status)
			adapter := newOllamaAdapter(t, ts.URL, nil)

			_, err := Retry(context.Background(), FixedRetryPolicy(3, time.Millisecond), func(ctx context.Context) (*Response, error) {
				return adapter.Complete(ctx, Request{Messages: []Message{UserMessage("hello")}})
			})
			if !tt.check(err) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
			if got := calls.Load(); got != tt.calls {
				t.Errorf("expected %d requests, got %d", tt.calls, got)
			}
		})
	}
}

func TestGollmAdapterStatusDoesNotLeakIntoNextCall(t *testing.T) {
	ts, _ := ollamaServer(t, http.StatusServiceUnavailable, http.StatusOK)
	adapter := newOllamaAdapter(t, ts.URL, nil)
	req := Request{Messages: []Message{UserMessage("hello")}}

	if _, err := adapter.Complete(context.Background(), req); !is[*ServerError](err) {
		t.Fatalf("expected ServerError, got %T: %v", err, err)
	}
	resp, err := adapter.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "hi" {
		t.Errorf("expected %q, got %q", "hi", resp.Text())
	}
	if resp.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %q", resp.Provider)
	}
}

func TestGollmAdapterConnectionRefused(t *testing.T) {
	ts, _ := ollamaServer(t, http.StatusOK)
	adapter := newOllamaAdapter(t, ts.URL, nil)
	ts.Close()

	_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hello")}})
	if !is[*NetworkError](err) {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
	if !IsRetryable(err) {
		t.Error("expected network error to be retryable")
	}
}

func TestGollmAdapterForwardsProviderLogs(t *testing.T) {
	ts, _ := ollamaServer(t, http.StatusUnauthorized)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := newOllamaAdapter(t, ts.URL, logger)

	_, _ = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hello")}})

	out := buf.String()
	if !strings.Contains(out, "gollm: API error") || !strings.Contains(out, "status=401") {
		t.Errorf("expected forwarded API error, got:\n%s", out)
	}
	if strings.Contains(out, "Full API request") {
		t.Errorf("debug output should not be forwarded, got:\n%s", out)
	}
}

func is[T error](err error) bool {
	_, ok := err.(T)
	return ok
}

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }
func errForMsg(msg string) error     { return &simpleError{msg: msg} }

func TestFlattenMessages(t *testing.T) {
	system, prompt := flattenMessages([]Message{
		SystemMessage("Be brief."),
		UserMessage("What is Go?"),
		AssistantMessage("A language."),
		UserMessage("Who made it?"),
	})
	if system != "Be brief." {
		t.Errorf("expected system %q, got %q", "Be brief.", system)
	}
	want := "What is Go?\n[Assistant]: A language.\nWho made it?"
	if prompt != want {
		t.Errorf("expected prompt %q, got %q", want, prompt)
	}
}

func TestFlattenMessagesEmptyPrompt(t *testing.T) {
	system, prompt := flattenMessages([]Message{SystemMessage("only system")})
	if system != "only system" {
		t.Errorf("unexpected system %q", system)
	}
	if prompt != "Hello" {
		t.Errorf("expected placeholder prompt, got %q", prompt)
	}
}

func TestEstimateTokens(t *testing.T) {
	req := Request{
		Messages: []Message{
			UserMessage("Hello world, this is a test message."),
		},
	}
	tokens := estimateTokens(req)
	if tokens <= 0 {
		t.Errorf("expected positive token estimate, got %d", tokens)
	}
}

func TestEstimateTokensEmpty(t *testing.T) {
	req := Request{Messages: []Message{}}
	tokens := estimateTokens(req)
	if tokens != 10 {
		t.Errorf("expected default token estimate of 10, got %d", tokens)
	}
}
