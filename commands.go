package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Gin_postgres_redis_device_tracker/app"
	"Gin_postgres_redis_device_tracker/db"
	"Gin_postgres_redis_device_tracker/logger"
	"Gin_postgres_redis_device_tracker/routes"
	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background reconciler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		log := logger.WithComponent("server")

		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := app.BootstrapFirstAdmin(ctx, cfg, a.Repo); err != nil {
			log.Error().Err(err).Msg("bootstrap admin failed")
		}
		routes.RegisterRoutes(a.Router, a)
		a.Start(ctx)

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           a.Router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", srv.Addr).Str("timezone", cfg.Location.String()).Msg("listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			log.Info().Msg("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.Tracker.ReconcileAll(cmd.Context())
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		return writeReport(cmd.OutOrStdout(), rep, asJSON)
	},
}

type reportJSON struct {
	*tracker.PassReport
	Errors []tracker.ErrorView `json:"errors"`
}

func writeReport(out io.Writer, rep *tracker.PassReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reportJSON{PassReport: rep, Errors: rep.ErrorViews()})
	}
	printReport(out, rep)
	return nil
}

func printReport(out io.Writer, rep *tracker.PassReport) {
	fmt.Fprintf(out, "Pass started %s\n", rep.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "  Scanned:         %d\n", rep.Scanned)
	fmt.Fprintf(out, "  Flagged overdue: %d\n", rep.Flagged)
	fmt.Fprintf(out, "  Already overdue: %d\n", rep.AlreadyOverdue)
	fmt.Fprintf(out, "  Skipped:         %d\n", rep.Skipped)
	for _, e := range rep.Errors {
		fmt.Fprintf(out, "  ! %s [%s]\n", e.Error(), tracker.KindName(e))
	}
}

var pruneHistoryCmd = &cobra.Command{
	Use:   "prune-history",
	Short: "Delete checkout events recorded within the duplicate window of an earlier one",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		window, _ := cmd.Flags().GetDuration("window")
		if window <= 0 {
			window = tracker.HistoryDedupWindow
		}

		conn, err := db.ConnectDB(cfg.DB)
		if err != nil {
			return err
		}
		if sqlDB, err := conn.DB(); err == nil {
			defer sqlDB.Close()
		}

		n, err := db.NewRepo(conn).PruneDuplicateEvents(cmd.Context(), window)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d duplicate event(s)\n", n)
		return nil
	},
}
