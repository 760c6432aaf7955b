// Package observability exposes Prometheus metrics for agent runs, model
// calls and tool use.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martinemde/reactagent/agentloop"
	"github.com/martinemde/reactagent/unifiedllm"
)

// Metrics bundles Prometheus collectors for the agent.
type Metrics struct {
	registry         *prometheus.Registry
	Runs             *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	Iterations       prometheus.Histogram
	ModelCalls       *prometheus.CounterVec
	ModelLatency     *prometheus.HistogramVec
	ToolCalls        *prometheus.CounterVec
	InvalidResponses prometheus.Counter
	ActiveSessions   *prometheus.GaugeVec
}

// NewMetrics constructs a private registry with the agent collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reactagent_runs_total",
		Help: "Agent runs by outcome (answered, exhausted, error)",
	}, []string{"outcome"})

	runDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reactagent_run_duration_seconds",
		Help:    "Agent run duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	iters := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reactagent_run_iterations",
		Help:    "Iterations consumed per run",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})

	modelCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reactagent_model_calls_total",
		Help: "Model calls by provider and status (ok, retryable, fatal)",
	}, []string{"provider", "status"})

	modelLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reactagent_model_call_duration_seconds",
		Help:    "Model call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	toolCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reactagent_tool_calls_total",
		Help: "Tool dispatches by tool and result (ok, not_found)",
	}, []string{"tool", "result"})

	invalid := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reactagent_invalid_responses_total",
		Help: "Model replies that were not valid JSON or matched neither shape",
	})

	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reactagent_active_sessions",
		Help: "Open sessions by transport",
	}, []string{"transport"})

	reg.MustRegister(runs, runDur, iters, modelCalls, modelLatency, toolCalls, invalid, active)

	return &Metrics{
		registry:         reg,
		Runs:             runs,
		RunDuration:      runDur,
		Iterations:       iters,
		ModelCalls:       modelCalls,
		ModelLatency:     modelLatency,
		ToolCalls:        toolCalls,
		InvalidResponses: invalid,
		ActiveSessions:   active,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun records the outcome of one Session.RunDetailed call.
func (m *Metrics) RecordRun(result agentloop.RunResult, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := string(result.Outcome)
	if err != nil {
		outcome = "error"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if result.Iterations > 0 {
		m.Iterations.Observe(float64(result.Iterations))
	}
}

// IncActiveSessions increments the active session gauge.
func (m *Metrics) IncActiveSessions(transport string) {
	if m == nil {
		return
	}
	m.ActiveSessions.WithLabelValues(transport).Inc()
}

// DecActiveSessions decrements the active session gauge.
func (m *Metrics) DecActiveSessions(transport string) {
	if m == nil {
		return
	}
	m.ActiveSessions.WithLabelValues(transport).Dec()
}

// Middleware counts model calls and observes their latency.
func (m *Metrics) Middleware() unifiedllm.Middleware {
	return func(ctx context.Context, req unifiedllm.Request, next func(context.Context, unifiedllm.Request) (*unifiedllm.Response, error)) (*unifiedllm.Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		if m == nil {
			return resp, err
		}
		provider := req.Provider
		if provider == "" {
			provider = "unknown"
		}
		m.ModelLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "fatal"
			if unifiedllm.IsRetryable(err) {
				status = "retryable"
			}
		}
		m.ModelCalls.WithLabelValues(provider, status).Inc()
		return resp, err
	}
}

// Listener returns an event listener counting tool dispatches and invalid
// model replies.
// UnknownTool labels calls to tools that are not registered.
const UnknownTool = "unknown"

func (m *Metrics) Listener() agentloop.Listener {
	return func(e agentloop.Event) {
		if m == nil || e.Kind != agentloop.EventMessage || e.Role != agentloop.RoleSystem {
			return
		}
		switch {
		case e.ToolStatus == agentloop.ToolOK:
			m.ToolCalls.WithLabelValues(e.Tool, "ok").Inc()
		case e.ToolStatus == agentloop.ToolNotFound:
			// The name came from the model; keep label cardinality bounded.
			m.ToolCalls.WithLabelValues(UnknownTool, "not_found").Inc()
		case e.Content == "Error: "+agentloop.ReasonNotJSON, e.Content == "Error: "+agentloop.ReasonInvalidFormat:
			m.InvalidResponses.Inc()
		}
	}
}
