// Package cli implements the react-agent command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/martinemde/reactagent/internal/version"
)

// Options holds global CLI options.
type Options struct {
	ConfigPath string
	EnvFile    string

	// NewModel overrides how the model client is built. Nil uses the
	// configured gollm provider.
	NewModel ModelFactory
}

// NewRootCmd constructs the base CLI command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&Options{})
}

func newRootCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "react-agent",
		Short:         "Reason-act agent with web search and Wikipedia tools",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to config file (default: ./config.yaml or ./configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "Dotenv file loaded before configuration")

	cmd.AddCommand(NewChatCmd(opts))
	cmd.AddCommand(NewAskCmd(opts))
	cmd.AddCommand(NewServeCmd(opts))
	cmd.AddCommand(NewModelsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
