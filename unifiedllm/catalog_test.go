package unifiedllm

import "testing"

func TestGetModelInfo(t *testing.T) {
	// By exact ID.
	info := GetModelInfo("gpt-4o-mini")
	if info == nil {
		t.Fatal("expected to find gpt-4o-mini")
	}
	if info.Provider != "openai" {
		t.Errorf("expected provider %q, got %q", "openai", info.Provider)
	}
	if !info.JSONMode {
		t.Error("expected json_mode = true")
	}

	// By alias.
	info = GetModelInfo("haiku")
	if info == nil {
		t.Fatal("expected to find model by alias 'haiku'")
	}
	if info.ID != "claude-3-5-haiku-latest" {
		t.Errorf("expected id %q, got %q", "claude-3-5-haiku-latest", info.ID)
	}

	// Unknown model.
	if info := GetModelInfo("nonexistent-model"); info != nil {
		t.Errorf("expected nil for unknown model, got %v", info)
	}
}

func TestListModels(t *testing.T) {
	all := ListModels("")
	if len(all) != len(Models) {
		t.Errorf("expected %d models, got %d", len(Models), len(all))
	}

	anthropic := ListModels("anthropic")
	if len(anthropic) == 0 {
		t.Fatal("expected anthropic models")
	}
	for _, m := range anthropic {
		if m.Provider != "anthropic" {
			t.Errorf("expected anthropic model, got %q", m.Provider)
		}
	}

	if len(ListModels("unknown")) != 0 {
		t.Error("expected no models for unknown provider")
	}
}

func TestGetLatestModel(t *testing.T) {
	if m := GetLatestModel("openai", ""); m == nil || m.ID != "gpt-4o-mini" {
		t.Errorf("expected gpt-4o-mini as openai default, got %v", m)
	}
	if m := GetLatestModel("ollama", "local"); m == nil || !m.Local {
		t.Errorf("expected a local ollama model, got %v", m)
	}
	if m := GetLatestModel("anthropic", "local"); m != nil {
		t.Errorf("expected no local anthropic model, got %v", m)
	}
	if m := GetLatestModel("groq", "json"); m == nil || !m.JSONMode {
		t.Errorf("expected a json-mode groq model, got %v", m)
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		provider, model, want string
	}{
		{"openai", "", "gpt-4o-mini"},
		{"anthropic", "sonnet", "claude-3-5-sonnet-latest"},
		{"openai", "gpt-4-turbo", "gpt-4-turbo"},
		{"mistral", "", ""},
	}
	for _, tt := range tests {
		if got := ResolveModel(tt.provider, tt.model); got != tt.want {
			t.Errorf("ResolveModel(%q, %q) = %q, want %q", tt.provider, tt.model, got, tt.want)
		}
	}
}
