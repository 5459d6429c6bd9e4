package cli

import (
	"github.com/spf13/cobra"

	"github.com/grognard-labs/aslcat/internal/mcp"
	"github.com/grognard-labs/aslcat/internal/metrics"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Serves the catalog's search tools over the Model Context Protocol.
Stdout carries the protocol; logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		metrics.IndexOpsTotal.WithLabelValues("rebuild").Inc()
		if err := a.index.Rebuild(cmd.Context(), a.store); err != nil {
			return err
		}

		return mcp.Serve(a.store, a.index, a.formatter, a.aliases, a.weights, a.authors, a.log)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
