package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martinemde/reactagent/agentloop"
)

const (
	agentPrefix = "ReAct Agent: "
	greeting    = "Hello! I'm here to help you. What would you like to know?"
	farewell    = "Goodbye!"
	separator   = "=================================================="
)

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

// NewChatCmd starts an interactive console session.
func NewChatCmd(opts *Options) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent on the console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var sessionOpts []agentloop.SessionOption
			if verbose {
				sessionOpts = append(sessionOpts, agentloop.WithListener(consoleListener(out)))
			}
			session := a.newSession(sessionOpts...)
			return chatLoop(cmd.Context(), cmd.InOrStdin(), out, a, session)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print iterations, messages and model responses")
	return cmd
}

// chatLoop reads one query per line until EOF or an exit word. All turns
// share session, so earlier answers stay in the history.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, a *app, session *agentloop.Session) error {
	fmt.Fprintln(out, agentPrefix+greeting)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if exitWords[strings.ToLower(input)] {
			fmt.Fprintln(out, agentPrefix+farewell)
			return nil
		}

		answer, err := runQuery(ctx, a, session, input)
		if err != nil {
			fmt.Fprintln(out, agentPrefix+agentloop.FailureMessage(err))
			continue
		}
		fmt.Fprintln(out, agentPrefix+answer)
		fmt.Fprintf(out, "\n%s\n\n", separator)
	}
}

// consoleListener prints each event as one console line.
func consoleListener(w io.Writer) agentloop.Listener {
	return func(e agentloop.Event) {
		switch e.Kind {
		case agentloop.EventIteration:
			fmt.Fprintf(w, "\nIteration %d\n", e.Iteration)
		case agentloop.EventMessage:
			fmt.Fprintf(w, "%s: %s\n", capitalize(string(e.Role)), e.Content)
		case agentloop.EventModelResponse:
			fmt.Fprintf(w, "Model response: %s\n", e.Content)
		case agentloop.EventError:
			fmt.Fprintf(w, "Error: %s\n", e.Content)
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
