package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/martinemde/reactagent/agentloop"
)

// noEnvFile points Load at a .env that does not exist.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("", noEnvFile(t))
	require.NoError(t, err)

	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, "sk-test", cfg.LLM.APIKey)
	require.Equal(t, 5, cfg.Agent.MaxIterations)
	require.Equal(t, 3, cfg.Agent.MaxRetries)
	require.Equal(t, time.Second, cfg.Agent.RetryDelay)
	require.False(t, cfg.Agent.RetryOnAnyError)
	require.Equal(t, []string{"search", "wikipedia"}, cfg.Tools.Enabled)
	require.Equal(t, "duckduckgo", cfg.Tools.SearchProvider)
	require.Equal(t, 3, cfg.Tools.MaxResults)
	require.Equal(t, ":8080", cfg.Server.Addr)

	sc := cfg.SessionConfig()
	require.Equal(t, 5, sc.MaxIterations)
	require.Equal(t, "openai", sc.Provider)
	require.Equal(t, agentloop.TruncateHeadTail, sc.ObservationTruncation)
}

func TestOllamaEndpointAndTruncation(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
llm:
  provider: ollama
  model: llama3.1
  endpoint: http://gpu-box:11434
agent:
  observation_truncation: head
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o644))

	cfg, err := Load(cfgPath, noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, "http://gpu-box:11434", cfg.LLM.Endpoint)
	require.Equal(t, agentloop.TruncateHead, cfg.SessionConfig().ObservationTruncation)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	configYAML := `
llm:
  provider: anthropic
  model: haiku
  api_key: dummy
agent:
  max_iterations: 8
  retry_delay: 250ms
  retry_on_any_error: true
tools:
  enabled: [search, wikipedia, fetch]
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o644))

	cfg, err := Load(cfgPath, noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, "anthropic", cfg.LLM.Provider)
	require.Equal(t, "haiku", cfg.LLM.Model)
	require.Equal(t, 8, cfg.Agent.MaxIterations)
	require.Equal(t, 250*time.Millisecond, cfg.Agent.RetryDelay)
	require.True(t, cfg.Agent.RetryOnAnyError)
	require.True(t, cfg.ToolEnabled("fetch"))
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REACT_AGENT_LLM_PROVIDER", "groq")
	t.Setenv("REACT_AGENT_LLM_API_KEY", "gsk")
	t.Setenv("REACT_AGENT_AGENT_MAX_ITERATIONS", "2")
	t.Setenv("REACT_AGENT_TOOLS_ENABLED", "wikipedia,fetch")

	cfg, err := Load("", noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, "groq", cfg.LLM.Provider)
	require.Equal(t, "gsk", cfg.LLM.APIKey)
	require.Equal(t, 2, cfg.Agent.MaxIterations)
	require.Equal(t, []string{"wikipedia", "fetch"}, cfg.Tools.Enabled)
}

func TestDotEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("REACT_AGENT_TEST_DOTENV_MARKER=1\nTAVILY_API_KEY=tvly-from-dotenv\n"), 0o600))
	t.Setenv("REACT_AGENT_TOOLS_SEARCH_PROVIDER", "tavily")
	// godotenv never overrides variables that are already set.
	t.Setenv("TAVILY_API_KEY", "")
	os.Unsetenv("TAVILY_API_KEY")
	t.Cleanup(func() {
		os.Unsetenv("REACT_AGENT_TEST_DOTENV_MARKER")
		os.Unsetenv("TAVILY_API_KEY")
	})

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	require.Equal(t, "tvly-from-dotenv", cfg.Tools.SearchAPIKey)
	require.Equal(t, "1", os.Getenv("REACT_AGENT_TEST_DOTENV_MARKER"))
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:     LLMConfig{Provider: "openai"},
			Agent:   AgentConfig{MaxIterations: 5, MaxRetries: 3},
			Tools:   ToolsConfig{Enabled: []string{"search"}, SearchProvider: "duckduckgo"},
			Logging: LoggingConfig{Format: "text"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"no provider":        func(c *Config) { c.LLM.Provider = "" },
		"zero iterations":    func(c *Config) { c.Agent.MaxIterations = 0 },
		"zero retries":       func(c *Config) { c.Agent.MaxRetries = 0 },
		"negative delay":     func(c *Config) { c.Agent.RetryDelay = -time.Second },
		"unknown tool":       func(c *Config) { c.Tools.Enabled = []string{"shell"} },
		"unknown search":     func(c *Config) { c.Tools.SearchProvider = "bing" },
		"tavily without key": func(c *Config) { c.Tools.SearchProvider = "tavily" },
		"bad log format":     func(c *Config) { c.Logging.Format = "xml" },
		"bad truncation":     func(c *Config) { c.Agent.ObservationTruncation = "tail" },
		"endpoint on openai": func(c *Config) { c.LLM.Endpoint = "http://localhost:11434" },
		"tiny loop window": func(c *Config) {
			c.Agent.EnableLoopDetection = true
			c.Agent.LoopDetectionWindow = 1
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			require.Error(t, c.Validate())
		})
	}
}

func TestLoadExampleConfig(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	require.FileExists(t, path)

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, 5, cfg.Agent.MaxIterations)
	require.Equal(t, []string{"search", "wikipedia"}, cfg.Tools.Enabled)
}
