package agentloop

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	registry := NewToolRegistry()
	noop := func(context.Context, string) string { return "" }
	registry.RegisterFunc("search", "", noop)
	registry.RegisterFunc("wikipedia", "", noop)

	h := &History{}
	h.Append(NewMessage(RoleUser, "who wrote Go?"))
	h.Append(NewMessage(RoleSystem, "Observation: Rob Pike et al."))

	prompt := BuildPrompt("who wrote Go?", h, registry)

	assert.Contains(t, prompt, "Query: who wrote Go?")
	assert.Contains(t, prompt, "Previous reasoning and observations:\nuser: who wrote Go?\nsystem: Observation: Rob Pike et al.")
	assert.Contains(t, prompt, "Available tools: search, wikipedia")
	assert.Contains(t, prompt, `"action": {`)
	assert.Contains(t, prompt, `"answer": "Your comprehensive answer to the query"`)
}

func TestBuildPromptDoesNotExpandPlaceholdersInQuery(t *testing.T) {
	prompt := BuildPrompt("what is {{tools}}?", &History{}, NewToolRegistry())
	assert.Contains(t, prompt, "Query: what is {{tools}}?")
	assert.Equal(t, 1, strings.Count(prompt, "{{tools}}"))
}
