// Package config loads the agent configuration from defaults, an optional
// YAML file, a .env file and REACT_AGENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/martinemde/reactagent/agentloop"
)

// EnvPrefix prefixes every environment override, e.g. REACT_AGENT_LLM_MODEL.
const EnvPrefix = "REACT_AGENT"

// Config is the top-level application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Tools   ToolsConfig   `mapstructure:"tools"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, anthropic, groq, ollama, ...
	Model       string  `mapstructure:"model"`    // empty = provider default from the catalog
	APIKey      string  `mapstructure:"api_key"`  // falls back to <PROVIDER>_API_KEY
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Endpoint    string  `mapstructure:"endpoint"` // ollama only, e.g. http://localhost:11434
}

// AgentConfig mirrors agentloop.SessionConfig.
type AgentConfig struct {
	MaxIterations         int           `mapstructure:"max_iterations"`
	MaxRetries            int           `mapstructure:"max_retries"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	RetryOnAnyError       bool          `mapstructure:"retry_on_any_error"`
	ObservationLimit      int           `mapstructure:"observation_limit"`
	ObservationTruncation string        `mapstructure:"observation_truncation"` // head_tail or head
	EnableLoopDetection   bool          `mapstructure:"enable_loop_detection"`
	LoopDetectionWindow   int           `mapstructure:"loop_detection_window"`
}

// ToolsConfig selects and configures tools.
type ToolsConfig struct {
	Enabled           []string `mapstructure:"enabled"`
	SearchProvider    string   `mapstructure:"search_provider"` // duckduckgo, tavily, brave
	SearchAPIKey      string   `mapstructure:"search_api_key"`
	MaxResults        int      `mapstructure:"max_results"`
	WikipediaEndpoint string   `mapstructure:"wikipedia_endpoint"`
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// ServerConfig describes the web front end.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	MetricsEnabled bool     `mapstructure:"metrics_enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration. An empty path looks for an optional config.yaml
// in the working directory and ./configs; a non-empty path must exist.
// envFiles are loaded into the process environment first (default ".env");
// missing files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyKeyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults populates defaults for every key so that environment overrides
// are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.endpoint", "")

	d := agentloop.DefaultSessionConfig()
	v.SetDefault("agent.max_iterations", d.MaxIterations)
	v.SetDefault("agent.max_retries", d.MaxRetries)
	v.SetDefault("agent.retry_delay", d.RetryDelay)
	v.SetDefault("agent.retry_on_any_error", d.RetryOnAnyError)
	v.SetDefault("agent.observation_limit", d.ObservationLimit)
	v.SetDefault("agent.observation_truncation", string(agentloop.TruncateHeadTail))
	v.SetDefault("agent.enable_loop_detection", d.EnableLoopDetection)
	v.SetDefault("agent.loop_detection_window", d.LoopDetectionWindow)

	v.SetDefault("tools.enabled", []string{"search", "wikipedia"})
	v.SetDefault("tools.search_provider", "duckduckgo")
	v.SetDefault("tools.search_api_key", "")
	v.SetDefault("tools.max_results", 3)
	v.SetDefault("tools.wikipedia_endpoint", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.allowed_origins", []string{})
}

// applyKeyFallbacks fills empty API keys from the conventional provider
// variables, e.g. OPENAI_API_KEY or TAVILY_API_KEY.
func (c *Config) applyKeyFallbacks() {
	if c.LLM.APIKey == "" && c.LLM.Provider != "" {
		c.LLM.APIKey = os.Getenv(strings.ToUpper(c.LLM.Provider) + "_API_KEY")
	}
	if c.Tools.SearchAPIKey == "" {
		switch strings.ToLower(c.Tools.SearchProvider) {
		case "tavily":
			c.Tools.SearchAPIKey = os.Getenv("TAVILY_API_KEY")
		case "brave":
			c.Tools.SearchAPIKey = firstNonEmpty(os.Getenv("BRAVE_SEARCH_API_KEY"), os.Getenv("BRAVE_API_KEY"))
		}
	}
}

var knownTools = map[string]bool{"search": true, "wikipedia": true, "fetch": true}

// Validate performs basic sanity checks on configuration values.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return errors.New("llm.provider must be set")
	}
	if c.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}
	if c.LLM.Endpoint != "" && c.LLM.Provider != "ollama" {
		return fmt.Errorf("llm.endpoint is only supported for ollama, not %q", c.LLM.Provider)
	}
	if c.Agent.MaxIterations < 1 {
		return errors.New("agent.max_iterations must be >= 1")
	}
	if c.Agent.MaxRetries < 1 {
		return errors.New("agent.max_retries must be >= 1")
	}
	if c.Agent.RetryDelay < 0 {
		return errors.New("agent.retry_delay must be >= 0")
	}
	if c.Agent.ObservationLimit < 0 {
		return errors.New("agent.observation_limit must be >= 0")
	}
	if !agentloop.TruncationMode(c.Agent.ObservationTruncation).Valid() {
		return fmt.Errorf("agent.observation_truncation: unknown mode %q", c.Agent.ObservationTruncation)
	}
	if c.Agent.EnableLoopDetection && c.Agent.LoopDetectionWindow < 2 {
		return errors.New("agent.loop_detection_window must be >= 2 when loop detection is enabled")
	}
	for _, name := range c.Tools.Enabled {
		if !knownTools[name] {
			return fmt.Errorf("tools.enabled: unknown tool %q", name)
		}
	}
	switch strings.ToLower(c.Tools.SearchProvider) {
	case "", "duckduckgo", "ddg":
	case "tavily", "brave":
		if c.ToolEnabled("search") && c.Tools.SearchAPIKey == "" {
			return fmt.Errorf("tools.search_provider %q requires an API key", c.Tools.SearchProvider)
		}
	default:
		return fmt.Errorf("tools.search_provider: unknown provider %q", c.Tools.SearchProvider)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "console", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	return nil
}

// ToolEnabled reports whether name is listed in tools.enabled.
func (c *Config) ToolEnabled(name string) bool {
	for _, t := range c.Tools.Enabled {
		if t == name {
			return true
		}
	}
	return false
}

// SessionConfig converts the agent section for agentloop.
func (c *Config) SessionConfig() agentloop.SessionConfig {
	return agentloop.SessionConfig{
		Model:                 c.LLM.Model,
		Provider:              c.LLM.Provider,
		MaxIterations:         c.Agent.MaxIterations,
		MaxRetries:            c.Agent.MaxRetries,
		RetryDelay:            c.Agent.RetryDelay,
		RetryOnAnyError:       c.Agent.RetryOnAnyError,
		ObservationLimit:      c.Agent.ObservationLimit,
		ObservationTruncation: agentloop.TruncationMode(c.Agent.ObservationTruncation),
		EnableLoopDetection:   c.Agent.EnableLoopDetection,
		LoopDetectionWindow:   c.Agent.LoopDetectionWindow,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
