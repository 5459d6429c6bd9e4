package cli

import (
	"github.com/spf13/cobra"

	"github.com/grognard-labs/aslcat/internal/metrics"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the search index from the catalog",
	Long: `Drops and repopulates the full-text index from the relational tables.
Useful after restoring or hand-editing the database.`,
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
		cmd.Println("search index rebuilt")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
