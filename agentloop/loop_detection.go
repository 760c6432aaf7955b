package agentloop

import (
	"crypto/sha256"
	"fmt"
)

// actionSignature computes a deterministic signature for a tool call
// (name + hash of input).
func actionSignature(tool, input string) string {
	h := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%s:%x", tool, h[:8])
}

// loopDetector remembers the signatures of recent actions.
type loopDetector struct {
	window int
	recent []string
}

func newLoopDetector(window int) *loopDetector {
	return &loopDetector{window: window}
}

// Observe records an action and reports whether the last window actions were
// all identical.
func (d *loopDetector) Observe(action ActionRequest) bool {
	if d == nil || d.window < 2 {
		return false
	}
	d.recent = append(d.recent, actionSignature(action.Tool, action.Input))
	if len(d.recent) > d.window {
		d.recent = d.recent[len(d.recent)-d.window:]
	}
	if len(d.recent) < d.window {
		return false
	}
	for _, sig := range d.recent[1:] {
		if sig != d.recent[0] {
			return false
		}
	}
	return true
}

// loopWarning is appended to history when a loop is detected.
func loopWarning(window int) string {
	return fmt.Sprintf("Warning: the last %d actions repeated the same tool call. Try a different approach.", window)
}
