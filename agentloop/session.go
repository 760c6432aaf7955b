package agentloop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/martinemde/reactagent/unifiedllm"
)

// ExhaustedAnswer is returned when no answer is produced within the
// iteration budget.
const ExhaustedAnswer = "I apologize, but I couldn't find a satisfactory answer within the given number of iterations."

// Model is the text-generation boundary used by a Session.
// *unifiedllm.Client satisfies it.
type Model interface {
	Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error)
}

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	Model                 string         `json:"model,omitempty"`
	Provider              string         `json:"provider,omitempty"`
	MaxIterations         int            `json:"max_iterations"`
	MaxRetries            int            `json:"max_retries"` // total model attempts per iteration
	RetryDelay            time.Duration  `json:"retry_delay"`
	RetryOnAnyError       bool           `json:"retry_on_any_error"`
	ObservationLimit      int            `json:"observation_limit"`      // characters, 0 = unlimited
	ObservationTruncation TruncationMode `json:"observation_truncation"` // empty = head_tail
	EnableLoopDetection   bool           `json:"enable_loop_detection"`
	LoopDetectionWindow   int            `json:"loop_detection_window"`
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxIterations:       5,
		MaxRetries:          3,
		RetryDelay:          time.Second,
		ObservationLimit:    20000,
		LoopDetectionWindow: 3,
	}
}

// Outcome describes how a run ended.
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeExhausted Outcome = "exhausted"
)

// RunResult summarises one call to RunDetailed.
type RunResult struct {
	Answer     string  `json:"answer"`
	Outcome    Outcome `json:"outcome"`
	Iterations int     `json:"iterations"`
	ToolCalls  int     `json:"tool_calls"`
}

// Session drives the reason-act loop for one conversation. History persists
// across runs. Runs on the same session are serialised.
type Session struct {
	id        string
	model     Model
	tools     *ToolRegistry
	history   *History
	emitter   *EventEmitter
	config    SessionConfig
	logger    *slog.Logger
	loops     *loopDetector
	iteration int
	mu        sync.Mutex
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithConfig replaces the default configuration.
func WithConfig(cfg SessionConfig) SessionOption {
	return func(s *Session) {
		s.config = cfg
	}
}

// WithListener registers an event listener at construction time.
func WithListener(l Listener) SessionOption {
	return func(s *Session) {
		s.emitter.Subscribe(l)
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session that calls model and dispatches to tools.
// A nil registry behaves like an empty one.
func NewSession(model Model, tools *ToolRegistry, opts ...SessionOption) *Session {
	if tools == nil {
		tools = NewToolRegistry()
	}
	id := uuid.New().String()
	s := &Session{
		id:      id,
		model:   model,
		tools:   tools,
		history: &History{},
		emitter: NewEventEmitter(id),
		config:  DefaultSessionConfig(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.EnableLoopDetection {
		s.loops = newLoopDetector(s.config.LoopDetectionWindow)
	}
	s.logger = s.logger.With("session_id", id)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the session configuration.
func (s *Session) Config() SessionConfig { return s.config }

// Tools returns the session's tool registry.
func (s *Session) Tools() *ToolRegistry { return s.tools }

// History returns a copy of the conversation history.
func (s *Session) History() []Message {
	return s.history.Messages()
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	return s.emitter.Subscribe(l)
}

// Run answers query and returns the answer text, or ExhaustedAnswer when the
// iteration budget runs out. An error is returned only when the model could
// not be reached after all retry attempts.
func (s *Session) Run(ctx context.Context, query string) (string, error) {
	result, err := s.RunDetailed(ctx, query)
	if err != nil {
		return "", err
	}
	return result.Answer, nil
}

// RunDetailed is Run with iteration and tool call counts.
func (s *Session) RunDetailed(ctx context.Context, query string) (RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result RunResult
	s.iteration = 0
	s.appendMessage(RoleUser, query)

	for i := 1; i <= s.config.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		s.iteration = i
		result.Iterations = i
		s.logger.Debug("iteration started", "iteration", i)
		s.emitter.Emit(Event{Kind: EventIteration, Iteration: i})

		prompt := BuildPrompt(query, s.history, s.tools)
		text, err := s.callModel(ctx, prompt)
		if err != nil {
			s.logger.Warn("model call failed", "iteration", i, "error", err)
			return result, fmt.Errorf("model call failed: %w", err)
		}

		switch r := ParseResponse(text).(type) {
		case InvalidResponse:
			s.logger.Debug("invalid model response", "iteration", i, "reason", r.Reason, "error", r.Err)
			s.appendMessage(RoleSystem, "Error: "+r.Reason)

		case ActionRequest:
			if s.dispatch(ctx, r) {
				result.ToolCalls++
			}

		case FinalAnswer:
			s.logger.Debug("final answer", "iteration", i)
			s.appendMessage(RoleAssistant, "Thought: "+r.Thought)
			s.appendMessage(RoleAssistant, "Final Answer: "+r.Answer)
			result.Answer = r.Answer
			result.Outcome = OutcomeAnswered
			return result, nil
		}
	}

	s.logger.Debug("iteration budget exhausted", "iterations", s.config.MaxIterations)
	result.Answer = ExhaustedAnswer
	result.Outcome = OutcomeExhausted
	return result, nil
}

// callModel sends prompt with a fixed-delay retry policy. Every failed
// attempt is reported as an error event.
func (s *Session) callModel(ctx context.Context, prompt string) (string, error) {
	policy := unifiedllm.FixedRetryPolicy(s.config.MaxRetries, s.config.RetryDelay)
	if s.config.RetryOnAnyError {
		policy.ShouldRetry = func(error) bool { return true }
	}
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		s.logger.Debug("retrying model call", "attempt", attempt, "delay", delay, "error", err)
	}

	req := unifiedllm.Request{
		Model:    s.config.Model,
		Provider: s.config.Provider,
		Messages: []unifiedllm.Message{unifiedllm.UserMessage(prompt)},
	}

	attempt := 0
	return unifiedllm.Retry(ctx, policy, func(ctx context.Context) (string, error) {
		attempt++
		resp, err := s.model.Complete(ctx, req)
		if err != nil {
			s.emitter.Emit(Event{
				Kind:      EventError,
				Iteration: s.iteration,
				Content:   fmt.Sprintf("API error on attempt %d: %v", attempt, err),
			})
			return "", err
		}
		text := resp.Text()
		s.emitter.Emit(Event{Kind: EventModelResponse, Iteration: s.iteration, Content: text})
		return text, nil
	})
}

// dispatch records the thought, runs the requested tool and records the
// observation. It reports whether the tool existed.
func (s *Session) dispatch(ctx context.Context, action ActionRequest) bool {
	s.appendMessage(RoleAssistant, "Thought: "+action.Thought)

	tool := s.tools.Get(action.Tool)
	if tool == nil {
		s.logger.Debug("unknown tool", "tool", action.Tool)
		s.appendToolMessage(action.Tool, ToolNotFound, fmt.Sprintf("Error: Tool '%s' not found", action.Tool))
	} else {
		s.logger.Debug("dispatching tool", "tool", action.Tool, "input", action.Input)
		start := time.Now()
		observation := tool.Executor(ctx, action.Input)
		s.logger.Debug("tool finished", "tool", action.Tool, "duration", time.Since(start), "bytes", len(observation))
		observation = TruncateOutput(observation, s.config.ObservationLimit, s.config.ObservationTruncation)
		s.appendToolMessage(action.Tool, ToolOK, "Observation: "+observation)
	}

	if s.loops.Observe(action) {
		s.logger.Debug("repeated action detected", "tool", action.Tool)
		s.appendMessage(RoleSystem, loopWarning(s.loops.window))
	}
	return tool != nil
}

func (s *Session) appendMessage(role Role, content string) {
	s.record(NewMessage(role, content), "", "")
}

// appendToolMessage records a system message produced by dispatching tool.
func (s *Session) appendToolMessage(tool string, status ToolStatus, content string) {
	s.record(NewMessage(RoleSystem, content), tool, status)
}

func (s *Session) record(msg Message, tool string, status ToolStatus) {
	s.history.Append(msg)
	s.emitter.Emit(Event{
		Kind:       EventMessage,
		Timestamp:  msg.Timestamp,
		Iteration:  s.iteration,
		Role:       msg.Role,
		Content:    msg.Content,
		Tool:       tool,
		ToolStatus: status,
	})
}
