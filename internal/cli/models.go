package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martinemde/reactagent/unifiedllm"
)

// NewModelsCmd lists the built-in model catalog.
func NewModelsCmd() *cobra.Command {
	var (
		provider string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models and their provider defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models := unifiedllm.ListModels(provider)
			if len(models) == 0 {
				return fmt.Errorf("no models known for provider %q", provider)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(models)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tALIASES\tDEFAULT")
			seen := map[string]bool{}
			for _, m := range models {
				def := ""
				if !seen[m.Provider] {
					def = "*"
					seen[m.Provider] = true
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", m.Provider, m.ID, m.ContextWindow, strings.Join(m.Aliases, ","), def)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Only list models for this provider")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}
