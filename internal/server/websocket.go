package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/martinemde/reactagent/agentloop"
)

const writeTimeout = 10 * time.Second

// Frame types exchanged over /ws.
const (
	FrameQuery       = "query"
	FrameEvent       = "event"
	FrameFinalAnswer = "final_answer"
	FrameFailure     = "failure"
	FrameError       = "error"
)

// Frame is a websocket message. Clients send query frames; the server
// replies with event frames followed by one final_answer or failure frame.
type Frame struct {
	Type       string            `json:"type"`
	Content    string            `json:"content,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Event      *agentloop.Event  `json:"event,omitempty"`
	Outcome    agentloop.Outcome `json:"outcome,omitempty"`
	Iterations int               `json:"iterations,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	patterns := s.origins
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
	if err != nil {
		s.logger.Error("failed to accept websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			s.logger.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	ctx := r.Context()
	session := s.newSession(s.sessionOptions()...)
	session.Subscribe(func(e agentloop.Event) {
		if err := s.writeFrame(ctx, ws, Frame{Type: FrameEvent, Event: &e}); err != nil {
			s.logger.Debug("failed to stream event", "session_id", e.SessionID, "error", err)
		}
	})

	s.metrics.IncActiveSessions("websocket")
	defer s.metrics.DecActiveSessions("websocket")
	s.logger.Info("websocket session started", "session_id", session.ID(), "remote", r.RemoteAddr)

	for {
		var in Frame
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				s.logger.Debug("websocket closed by client", "session_id", session.ID())
			} else {
				s.logger.Warn("websocket read error", "session_id", session.ID(), "error", err)
			}
			return
		}
		if in.Type != FrameQuery || in.Content == "" {
			if err := s.writeFrame(ctx, ws, Frame{Type: FrameError, Content: "expected a query frame with content"}); err != nil {
				return
			}
			continue
		}

		start := time.Now()
		result, err := session.RunDetailed(ctx, in.Content)
		s.metrics.RecordRun(result, err, time.Since(start))

		out := Frame{Type: FrameFinalAnswer, SessionID: session.ID(), Content: result.Answer,
			Outcome: result.Outcome, Iterations: result.Iterations}
		if err != nil {
			s.logger.Warn("query failed", "session_id", session.ID(), "error", err)
			out = Frame{Type: FrameFailure, SessionID: session.ID(), Content: agentloop.FailureMessage(err)}
		}
		if err := s.writeFrame(ctx, ws, out); err != nil {
			return
		}
	}
}

func (s *Server) writeFrame(ctx context.Context, ws *websocket.Conn, f Frame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, f)
}
