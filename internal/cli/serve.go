package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/metrics"
	"github.com/grognard-labs/aslcat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// The index is rebuilt from the catalog on every boot, so external
		// edits to the database never leave it stale.
		metrics.IndexOpsTotal.WithLabelValues("rebuild").Inc()
		if err := a.index.Rebuild(ctx, a.store); err != nil {
			return err
		}

		srv := server.New(a.store, a.index, a.formatter, a.aliases, a.weights,
			a.authors, a.msgs, a.log)
		httpSrv := &http.Server{
			Addr:              a.cfg.Listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("listening", zap.String("addr", a.cfg.Listen))
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
