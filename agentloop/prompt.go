package agentloop

import (
	"strings"
)

const promptTemplate = `You are a ReAct (Reasoning and Acting) agent. Your goal is to answer the user's query by reasoning about the problem and using available tools when necessary.

Query: {{query}}

Previous reasoning and observations:
{{history}}

Available tools: {{tools}}

Respond in the following JSON format:

If you need to use a tool:
{
    "thought": "Your reasoning about what to do next",
    "action": {
        "tool": "Name of the tool to use",
        "input": "Input for the tool"
    }
}

If you have enough information to answer the query:
{
    "thought": "Your final reasoning process",
    "answer": "Your comprehensive answer to the query"
}

Remember to be thorough in your reasoning and use tools when you need more information.`

// BuildPrompt renders the prompt for one iteration: the task framing, the
// current query, the rendered history, the tool names in registration order
// and the expected reply format.
func BuildPrompt(query string, history *History, tools *ToolRegistry) string {
	r := strings.NewReplacer(
		"{{query}}", query,
		"{{history}}", history.Render(),
		"{{tools}}", strings.Join(tools.Names(), ", "),
	)
	return r.Replace(promptTemplate)
}
