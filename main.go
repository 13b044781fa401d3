package main

import (
	"fmt"
	"os"

	"Gin_postgres_redis_device_tracker/app"
	"Gin_postgres_redis_device_tracker/config"
	"Gin_postgres_redis_device_tracker/logger"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "devtracker",
	Short: "Shared device checkout tracker",
	Long: `devtracker records who holds each shared device, when it was taken
and when it is due back, and flags devices as overdue once the holder's
class schedule for the day says they should have been returned.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("devtracker %s (%s)\n", Version, Commit))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(pruneHistoryCmd)

	serveCmd.Flags().String("port", "", "listen port (overrides PORT)")
	reconcileCmd.Flags().Bool("json", false, "print the pass report as JSON")
	pruneHistoryCmd.Flags().Duration("window", 0, "duplicate window (default 30s)")
}

// loadConfig reads .env, the environment and sets up logging.
func loadConfig() (app.Config, error) {
	config.LoadEnv()
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, err
	}
	logger.Init(cfg.Log)
	return cfg, nil
}
