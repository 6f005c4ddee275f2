package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/turngraph/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the movie bot on /v1/sessions, the train status bot on /v1/transit
and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			s.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, s, os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		var gatherer prometheus.Gatherer = a.registry
		srv := &http.Server{
			Addr: s.Server.Addr,
			Handler: server.NewHandler(a.movie,
				server.WithTransit(a.transit),
				server.WithGatherer(gatherer),
				server.WithLogger(a.logger),
				server.WithTurnTimeout(s.Server.TurnTimeout),
			),
			ReadTimeout:  s.Server.ReadTimeout,
			WriteTimeout: s.Server.WriteTimeout,
		}

		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("server listening", "addr", srv.Addr, "session_driver", s.Session.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server: %w", err)
		case <-ctx.Done():
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("graceful shutdown failed", "error", err)
				return srv.Close()
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
