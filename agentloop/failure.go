package agentloop

import "github.com/martinemde/reactagent/unifiedllm"

// FailureMessage renders a run error for display to an end user. Errors from
// the model boundary get the temporary-issue wording.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	if unifiedllm.IsAPIError(err) {
		return "I'm sorry, but I encountered an error while processing your request. " +
			"This might be a temporary issue. Please try again later. Error details: " + err.Error()
	}
	return "An unexpected error occurred. Please try again. Error details: " + err.Error()
}
