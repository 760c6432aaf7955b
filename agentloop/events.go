package agentloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	EventIteration     EventKind = "iteration"
	EventMessage       EventKind = "message"
	EventModelResponse EventKind = "model_response"
	EventError         EventKind = "error"
)

// ToolStatus reports the outcome of a tool lookup.
type ToolStatus string

const (
	ToolOK       ToolStatus = "ok"
	ToolNotFound ToolStatus = "not_found"
)

// Event is a typed notification emitted by the agent loop. Which fields are
// set depends on Kind: Iteration for iteration events, Role and Content for
// message events, Content alone for model_response and error events. Tool and
// ToolStatus are set on the message recording a tool's observation or lookup
// failure; Tool is the name the model asked for.
type Event struct {
	Kind       EventKind  `json:"kind"`
	Timestamp  time.Time  `json:"timestamp"`
	SessionID  string     `json:"session_id"`
	Iteration  int        `json:"iteration,omitempty"`
	Role       Role       `json:"role,omitempty"`
	Content    string     `json:"content,omitempty"`
	Tool       string     `json:"tool,omitempty"`
	ToolStatus ToolStatus `json:"tool_status,omitempty"`
}

// Listener receives session events. Listeners run on the goroutine that
// drives the session and must not block for long.
type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener
}

// EventEmitter delivers events to registered listeners synchronously and in
// emission order.
type EventEmitter struct {
	sessionID string
	listeners []subscription
	nextID    uint64
	mu        sync.RWMutex
}

// NewEventEmitter creates an EventEmitter stamping events with sessionID.
func NewEventEmitter(sessionID string, listeners ...Listener) *EventEmitter {
	e := &EventEmitter{sessionID: sessionID}
	for _, l := range listeners {
		e.add(l)
	}
	return e
}

func (e *EventEmitter) add(l Listener) uint64 {
	e.nextID++
	e.listeners = append(e.listeners, subscription{id: e.nextID, fn: l})
	return e.nextID
}

// Subscribe registers a listener. It returns a function that removes it;
// calling that function more than once is a no-op.
func (e *EventEmitter) Subscribe(l Listener) (unsubscribe func()) {
	e.mu.Lock()
	id := e.add(l)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, sub := range e.listeners {
				if sub.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit stamps the event and hands it to every listener in registration order.
func (e *EventEmitter) Emit(event Event) {
	event.SessionID = e.sessionID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e.mu.RLock()
	listeners := make([]subscription, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()

	for _, sub := range listeners {
		if sub.fn != nil {
			sub.fn(event)
		}
	}
}
