package agentloop

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Reasons recorded in history when a model reply cannot be used.
const (
	ReasonNotJSON       = "Failed to parse response as JSON"
	ReasonInvalidFormat = "Invalid response format"
)

// ParsedResponse is the decoded form of one model reply. It is one of
// ActionRequest, FinalAnswer or InvalidResponse.
type ParsedResponse interface {
	parsedResponse()
}

// ActionRequest asks the loop to run a tool.
type ActionRequest struct {
	Thought string
	Tool    string
	Input   string
}

// FinalAnswer ends the run.
type FinalAnswer struct {
	Thought string
	Answer  string
}

// InvalidResponse is a reply that is not JSON or matches neither shape.
type InvalidResponse struct {
	Reason string
	Err    error
}

func (ActionRequest) parsedResponse()   {}
func (FinalAnswer) parsedResponse()     {}
func (InvalidResponse) parsedResponse() {}

// ParseResponse decodes raw model output. Markdown code fences around the
// object are ignored. When both "action" and "answer" are present the action
// is taken.
func ParseResponse(raw string) ParsedResponse {
	text := stripCodeFence(raw)

	var envelope any
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return InvalidResponse{Reason: ReasonNotJSON, Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return InvalidResponse{Reason: ReasonInvalidFormat, Err: err}
	}

	thought := jsonText(fields["thought"])

	if rawAction, ok := fields["action"]; ok {
		var action map[string]json.RawMessage
		if err := json.Unmarshal(rawAction, &action); err != nil || action == nil {
			return InvalidResponse{Reason: ReasonInvalidFormat, Err: errors.New("action is not an object")}
		}
		var tool string
		if err := json.Unmarshal(action["tool"], &tool); err != nil {
			return InvalidResponse{Reason: ReasonInvalidFormat, Err: errors.New("action.tool is not a string")}
		}
		return ActionRequest{
			Thought: thought,
			Tool:    tool,
			Input:   jsonText(action["input"]),
		}
	}

	if rawAnswer, ok := fields["answer"]; ok {
		return FinalAnswer{Thought: thought, Answer: jsonText(rawAnswer)}
	}

	return InvalidResponse{Reason: ReasonInvalidFormat, Err: errors.New("neither action nor answer present")}
}

// jsonText returns a JSON string's value, or the raw JSON text of any other
// value. Missing and null values yield "".
func jsonText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string, e.g. "json".
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
