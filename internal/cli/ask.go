package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/martinemde/reactagent/agentloop"
)

// NewAskCmd answers a single query and exits.
func NewAskCmd(opts *Options) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask \"<query>\"",
		Short: "Answer one query and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("query cannot be empty")
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var sessionOpts []agentloop.SessionOption
			if verbose {
				sessionOpts = append(sessionOpts, agentloop.WithListener(consoleListener(cmd.ErrOrStderr())))
			}
			session := a.newSession(sessionOpts...)

			answer, err := runQuery(cmd.Context(), a, session, query)
			if err != nil {
				return errors.New(agentloop.FailureMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print iterations, messages and model responses to stderr")
	return cmd
}

// runQuery runs one query and records its outcome.
func runQuery(ctx context.Context, a *app, session *agentloop.Session, query string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	result, err := session.RunDetailed(ctx, query)
	a.metrics.RecordRun(result, err, time.Since(start))
	if err != nil {
		a.logger.Debug("query failed", "session_id", session.ID(), "error", err)
		return "", err
	}
	a.logger.Debug("query finished",
		"session_id", session.ID(),
		"outcome", result.Outcome,
		"iterations", result.Iterations,
		"tool_calls", result.ToolCalls,
	)
	return result.Answer, nil
}
