package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martinemde/reactagent/agentloop"
	"github.com/martinemde/reactagent/internal/observability"
	"github.com/martinemde/reactagent/internal/server"
)

// NewServeCmd runs the web visualization server.
func NewServeCmd(opts *Options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web visualization and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			var metrics *observability.Metrics
			if a.cfg.Server.MetricsEnabled {
				metrics = a.metrics
			}

			srv, err := server.New(server.Options{
				Addr:           addr,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				NewSession: func(extra ...agentloop.SessionOption) *agentloop.Session {
					return a.newSession(extra...)
				},
				Metrics: metrics,
				Logger:  a.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
