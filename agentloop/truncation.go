package agentloop

import "fmt"

// TruncationMode specifies how an oversized observation is cut.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateHead     TruncationMode = "head"
)

// Valid reports whether m names a known mode. The empty mode means head_tail.
func (m TruncationMode) Valid() bool {
	switch m {
	case "", TruncateHeadTail, TruncateHead:
		return true
	}
	return false
}

// TruncateOutput shortens output to maxChars characters (runes). A maxChars
// of zero or less disables truncation.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	runes := []rune(output)
	if len(runes) <= maxChars {
		return output
	}

	removed := len(runes) - maxChars
	switch mode {
	case TruncateHead:
		return string(runes[:maxChars]) +
			fmt.Sprintf("\n\n[Observation truncated. %d characters were removed from the end.]", removed)

	default:
		half := maxChars / 2
		return string(runes[:half]) +
			fmt.Sprintf("\n\n[Observation truncated. %d characters were removed from the middle.]\n\n", removed) +
			string(runes[len(runes)-half:])
	}
}
