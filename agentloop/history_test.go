package agentloop

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryRender(t *testing.T) {
	h := &History{}
	assert.Equal(t, "", h.Render())

	h.Append(NewMessage(RoleUser, "hi"))
	h.Append(NewMessage(RoleAssistant, "Thought: greet"))
	assert.Equal(t, "user: hi\nassistant: Thought: greet", h.Render())
	assert.Equal(t, 2, h.Len())
}

func TestHistoryMessagesIsCopy(t *testing.T) {
	h := &History{}
	h.Append(NewMessage(RoleUser, "hi"))

	msgs := h.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "hi", h.Messages()[0].Content)
}

func TestTruncateOutput(t *testing.T) {
	assert.Equal(t, "short", TruncateOutput("short", 100, TruncateHeadTail))
	assert.Equal(t, "unlimited", TruncateOutput("unlimited", 0, TruncateHeadTail))

	head := TruncateOutput("abcdefghij", 4, TruncateHead)
	assert.Contains(t, head, "abcd")
	assert.Contains(t, head, "6 characters were removed from the end")

	mid := TruncateOutput("abcdefghij", 4, TruncateHeadTail)
	assert.True(t, len(mid) > 4)
	assert.Contains(t, mid, "ab")
	assert.Contains(t, mid, "ij")
}

func TestTruncateOutputCountsCharacters(t *testing.T) {
	// Ten bytes, five characters: within the limit.
	assert.Equal(t, "ééééé", TruncateOutput("ééééé", 5, TruncateHead))

	head := TruncateOutput("ééééé", 3, TruncateHead)
	assert.True(t, strings.HasPrefix(head, "ééé\n"))
	assert.Contains(t, head, "2 characters were removed from the end")

	mid := TruncateOutput("日本語のテキスト", 4, TruncateHeadTail)
	assert.True(t, strings.HasPrefix(mid, "日本\n"))
	assert.True(t, strings.HasSuffix(mid, "\n\nスト"))
	assert.Contains(t, mid, "4 characters were removed from the middle")
}
