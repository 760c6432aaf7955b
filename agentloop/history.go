package agentloop

import (
	"strings"
	"sync"
	"time"
)

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in the session history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a Message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now()}
}

// String renders the message as "role: content".
func (m Message) String() string {
	return string(m.Role) + ": " + m.Content
}

// History is the ordered, append-only record of a session.
type History struct {
	messages []Message
	mu       sync.RWMutex
}

// Append adds a message to the end of the history.
func (h *History) Append(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Messages returns a copy of the history.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Render joins every message as "role: content" lines.
func (h *History) Render() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	lines := make([]string, len(h.messages))
	for i, m := range h.messages {
		lines[i] = m.String()
	}
	return strings.Join(lines, "\n")
}
