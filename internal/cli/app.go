package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/teilomillet/gollm"

	"github.com/martinemde/reactagent/agentloop"
	"github.com/martinemde/reactagent/internal/config"
	"github.com/martinemde/reactagent/internal/logging"
	"github.com/martinemde/reactagent/internal/observability"
	"github.com/martinemde/reactagent/tools"
	"github.com/martinemde/reactagent/unifiedllm"
)

// ModelFactory builds the model client for a configuration.
type ModelFactory func(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (agentloop.Model, func() error, error)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	model   agentloop.Model
	tools   *agentloop.ToolRegistry
	closeFn func() error
}

func newApp(cmd *cobra.Command, opts *Options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics := observability.NewMetrics()

	factory := opts.NewModel
	if factory == nil {
		factory = gollmModel
	}
	model, closeFn, err := factory(cfg, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}

	registry, err := buildTools(cfg)
	if err != nil {
		if closeFn != nil {
			_ = closeFn()
		}
		return nil, err
	}

	logger.Debug("agent ready",
		"provider", cfg.LLM.Provider,
		"model", unifiedllm.ResolveModel(cfg.LLM.Provider, cfg.LLM.Model),
		"tools", registry.Names(),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		model:   model,
		tools:   registry,
		closeFn: closeFn,
	}, nil
}

// loadConfig wraps config loading with shared options.
func loadConfig(opts *Options) (*config.Config, error) {
	var envFiles []string
	if opts.EnvFile != "" {
		envFiles = append(envFiles, opts.EnvFile)
	}
	cfg, err := config.Load(opts.ConfigPath, envFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newSession builds a session with the configured limits, logger and
// metrics listener. Extra options are applied last.
func (a *app) newSession(opts ...agentloop.SessionOption) *agentloop.Session {
	base := []agentloop.SessionOption{
		agentloop.WithConfig(a.cfg.SessionConfig()),
		agentloop.WithLogger(a.logger),
		agentloop.WithListener(a.metrics.Listener()),
	}
	return agentloop.NewSession(a.model, a.tools, append(base, opts...)...)
}

func (a *app) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

// gollmModel builds a unifiedllm client over a gollm adapter for the
// configured provider.
func gollmModel(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (agentloop.Model, func() error, error) {
	adapter, err := unifiedllm.NewGollmAdapter(cfg.LLM.Provider, cfg.LLM.APIKey, adapterOptions(cfg, logger)...)
	if err != nil {
		return nil, nil, err
	}
	client := unifiedllm.NewClient(
		unifiedllm.WithProvider(cfg.LLM.Provider, adapter),
		unifiedllm.WithDefaultProvider(cfg.LLM.Provider),
		unifiedllm.WithMiddleware(unifiedllm.LoggingMiddleware(logger), metrics.Middleware()),
	)
	return client, client.Close, nil
}

func adapterOptions(cfg *config.Config, logger *slog.Logger) []unifiedllm.GollmAdapterOption {
	opts := []unifiedllm.GollmAdapterOption{
		unifiedllm.WithModel(cfg.LLM.Model),
		unifiedllm.WithMaxTokens(cfg.LLM.MaxTokens),
		unifiedllm.WithTemperature(cfg.LLM.Temperature),
		unifiedllm.WithLogger(logger),
	}
	if cfg.LLM.Endpoint != "" {
		opts = append(opts, unifiedllm.WithGollmOptions(gollm.SetOllamaEndpoint(cfg.LLM.Endpoint)))
	}
	return opts
}

// buildTools registers the tools listed in tools.enabled.
func buildTools(cfg *config.Config) (*agentloop.ToolRegistry, error) {
	registry := agentloop.NewToolRegistry()
	for _, name := range cfg.Tools.Enabled {
		switch name {
		case tools.SearchToolName:
			provider, err := tools.NewSearchProvider(cfg.Tools.SearchProvider, cfg.Tools.SearchAPIKey)
			if err != nil {
				return nil, fmt.Errorf("init search tool: %w", err)
			}
			tools.NewWebSearch(provider, cfg.Tools.MaxResults).Register(registry)
		case tools.WikipediaToolName:
			var wopts []tools.WikipediaOption
			if cfg.Tools.WikipediaEndpoint != "" {
				wopts = append(wopts, tools.WithWikipediaEndpoint(cfg.Tools.WikipediaEndpoint))
			}
			tools.NewWikipedia(wopts...).Register(registry)
		case tools.FetchToolName:
			tools.NewFetch().Register(registry)
		default:
			return nil, fmt.Errorf("unknown tool %q", name)
		}
	}
	return registry, nil
}
