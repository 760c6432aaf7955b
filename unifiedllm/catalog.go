package unifiedllm

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	MaxOutput     *int     `json:"max_output,omitempty"`
	JSONMode      bool     `json:"json_mode"`
	Local         bool     `json:"local"`
	Aliases       []string `json:"aliases,omitempty"`
}

func intPtr(v int) *int { return &v }

// Models is the built-in model catalog. The first entry per provider is that
// provider's default.
var Models = []ModelInfo{
	// OpenAI
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini",
		ContextWindow: 128000, MaxOutput: intPtr(16384), JSONMode: true,
		Aliases: []string{"mini"},
	},
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxOutput: intPtr(16384), JSONMode: true,
		Aliases: []string{"4o"},
	},

	// Anthropic
	{
		ID: "claude-3-5-haiku-latest", Provider: "anthropic", DisplayName: "Claude 3.5 Haiku",
		ContextWindow: 200000, MaxOutput: intPtr(8192),
		Aliases: []string{"haiku"},
	},
	{
		ID: "claude-3-5-sonnet-latest", Provider: "anthropic", DisplayName: "Claude 3.5 Sonnet",
		ContextWindow: 200000, MaxOutput: intPtr(8192),
		Aliases: []string{"sonnet"},
	},

	// Groq
	{
		ID: "llama-3.1-8b-instant", Provider: "groq", DisplayName: "Llama 3.1 8B (Groq)",
		ContextWindow: 131072, MaxOutput: intPtr(8192), JSONMode: true,
	},

	// Ollama
	{
		ID: "llama3.1", Provider: "ollama", DisplayName: "Llama 3.1 (local)",
		ContextWindow: 131072, JSONMode: true, Local: true,
		Aliases: []string{"llama"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// GetLatestModel returns the default model for a provider, optionally
// filtered by capability ("json" or "local").
func GetLatestModel(provider string, capability string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider != provider {
			continue
		}
		switch capability {
		case "":
			return &Models[i]
		case "json":
			if Models[i].JSONMode {
				return &Models[i]
			}
		case "local":
			if Models[i].Local {
				return &Models[i]
			}
		}
	}
	return nil
}

// ResolveModel expands an alias to its canonical ID. Unknown IDs are returned
// unchanged; an empty ID resolves to the provider default.
func ResolveModel(provider, modelID string) string {
	if modelID == "" {
		if info := GetLatestModel(provider, ""); info != nil {
			return info.ID
		}
		return ""
	}
	if info := GetModelInfo(modelID); info != nil {
		return info.ID
	}
	return modelID
}
