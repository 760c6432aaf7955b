// Package agentloop implements a reason-act agent loop.
//
// A Session sends the model a prompt describing the query, the prior steps
// and the available tools. The model replies with JSON that either requests
// a tool call or gives the final answer:
//
//	{"thought": "...", "action": {"tool": "search", "input": "..."}}
//	{"thought": "...", "answer": "..."}
//
// Tool observations and errors are appended to the session history, which is
// embedded in the next prompt. The loop stops at the first answer or after
// SessionConfig.MaxIterations iterations.
//
// # Quick Start
//
//	registry := agentloop.NewToolRegistry()
//	registry.RegisterFunc("search", "Search the web", search.Call)
//
//	session := agentloop.NewSession(client, registry,
//	    agentloop.WithListener(func(e agentloop.Event) {
//	        fmt.Printf("[%s] %s\n", e.Kind, e.Content)
//	    }),
//	)
//	answer, err := session.Run(ctx, "Who designed Go?")
package agentloop
