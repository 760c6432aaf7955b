package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter wraps a gollm.LLM instance and implements ProviderAdapter.
// It flattens a unified Request into a single gollm prompt. Calls are
// serialised: request options and the call recorder belong to the adapter.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
	calls    *callRecorder
	mu       sync.Mutex
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
	logger      *slog.Logger
}

// WithAPIKey sets the API key for the adapter.
func WithAPIKey(key string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.apiKey = key
	}
}

// WithModel sets the default model for the adapter.
func WithModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.temperature = t
	}
}

// WithLogger receives gollm's own warnings and errors.
func WithLogger(logger *slog.Logger) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.logger = logger
	}
}

// WithGollmOptions adds extra gollm configuration options, e.g.
// gollm.SetOllamaEndpoint.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates a new GollmAdapter for the given provider.
// If apiKey is empty, gollm will attempt to read it from environment variables.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := &gollmAdapterConfig{
		apiKey:      apiKey,
		maxTokens:   2048,
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := ResolveModel(provider, cfg.model)
	if model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("no model configured and no default known for provider %q", provider),
		}}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	calls := newCallRecorder(logger.With("provider", provider), gollm.LogLevelWarn)

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // The agent loop owns retries.
		gollm.SetLogLevel(gollm.LogLevelWarn),
		gollm.SetLogger(calls),
	}

	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}

	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("failed to create gollm LLM for provider %s", provider),
			Cause:   err,
		}}
	}

	return &GollmAdapter{
		provider: provider,
		llm:      llm,
		model:    model,
		calls:    calls,
	}, nil
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Model returns the adapter's default model.
func (a *GollmAdapter) Model() string {
	return a.model
}

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prompt := a.translateRequest(req)
	a.applyRequestOptions(req)
	a.calls.reset()

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &AbortError{SDKError: SDKError{Message: "request aborted", Cause: ctxErr}}
		}
		return nil, a.translateError(err, a.calls.last())
	}

	return a.buildResponse(req, text), nil
}

// translateRequest converts a unified Request into a gollm Prompt. System
// messages become the system prompt; everything else is concatenated in order.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	systemPrompt, promptText := flattenMessages(req.Messages)

	var promptOpts []gollm.PromptOption
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(systemPrompt, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// flattenMessages splits messages into a system prompt and a single user
// prompt body.
func flattenMessages(messages []Message) (system string, prompt string) {
	var systemParts, userParts []string
	for _, msg := range messages {
		text := msg.TextContent()
		if text == "" {
			continue
		}
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, text)
		case RoleUser:
			userParts = append(userParts, text)
		case RoleAssistant:
			userParts = append(userParts, "[Assistant]: "+text)
		}
	}
	prompt = strings.Join(userParts, "\n")
	if prompt == "" {
		prompt = "Hello"
	}
	return strings.TrimSpace(strings.Join(systemParts, "\n")), prompt
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
func (a *GollmAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse constructs a unified Response from the generated text.
func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	input := estimateTokens(req)
	output := len(text) / 4
	return &Response{
		ID:       "resp_" + uuid.New().String()[:8],
		Model:    model,
		Provider: a.provider,
		Message: Message{
			Role:    RoleAssistant,
			Content: []ContentPart{TextPart(text)},
		},
		FinishReason: FinishReason{Reason: "stop", Raw: "stop"},
		Usage: Usage{
			// gollm doesn't expose usage; estimate from text length.
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		},
	}
}

// translateError converts a gollm error into the unified error hierarchy.
// gollm's Generate error carries no provider detail, so the status code and
// attempt error seen by the call recorder take precedence over its text.
func (a *GollmAdapter) translateError(err error, call gollmCall) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AbortError{SDKError: SDKError{Message: "request aborted", Cause: err}}
	}

	if call.status != 0 {
		msg := fmt.Sprintf("%s api error: status %d", a.provider, call.status)
		if call.body != "" {
			msg += ": " + call.body
		}
		return ErrorFromStatusCode(call.status, msg, a.provider, nil)
	}
	if call.err != nil {
		if errors.Is(call.err, context.DeadlineExceeded) {
			return &RequestTimeoutError{SDKError: SDKError{Message: call.err.Error(), Cause: call.err}}
		}
		err = call.err
	}
	return a.classifyMessage(err)
}

// classifyMessage maps an error without a status code by its text.
func (a *GollmAdapter) classifyMessage(err error) error {
	msg := err.Error()
	provider := func(status int, retryable bool) ProviderError {
		return ProviderError{
			SDKError:   SDKError{Message: msg, Cause: err},
			Provider:   a.provider,
			StatusCode: status,
			Retryable:  retryable,
		}
	}

	msgLower := strings.ToLower(msg)
	switch {
	case containsAny(msgLower, "401", "unauthorized", "invalid key", "invalid api key", "api key not valid", "empty api key"):
		return &AuthenticationError{ProviderError: provider(401, false)}
	case containsAny(msgLower, "403", "forbidden", "permission denied"):
		return &AccessDeniedError{ProviderError: provider(403, false)}
	case containsAny(msgLower, "quota", "insufficient_quota", "billing"):
		return &QuotaExceededError{ProviderError: provider(402, false)}
	case containsAny(msgLower, "404", "not found"):
		return &NotFoundError{ProviderError: provider(404, false)}
	case containsAny(msgLower, "429", "rate limit", "too many requests"):
		return &RateLimitError{ProviderError: provider(429, true)}
	case containsAny(msgLower, "context length", "too many tokens", "maximum context"):
		return &ContextLengthError{ProviderError: provider(413, false)}
	case containsAny(msgLower, "500", "502", "503", "504", "internal server", "overloaded", "unavailable"):
		return &ServerError{ProviderError: provider(500, true)}
	case containsAny(msgLower, "timeout", "timed out"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	case containsAny(msgLower, "connection refused", "no such host", "connection reset", "eof"):
		return &NetworkError{SDKError: SDKError{Message: msg, Cause: err}}
	case containsAny(msgLower, "content filter", "safety"):
		return &ContentFilterError{ProviderError: provider(0, false)}
	default:
		// Unknown provider errors are retryable by default.
		pe := provider(0, true)
		return &pe
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// estimateTokens provides a rough token count estimate from request messages.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.TextContent()) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
