// Package main provides the relmap CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TFMV/relmap/config"
	"github.com/TFMV/relmap/directory"
	"github.com/TFMV/relmap/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath string
	logLevel   string

	// Populated by the root command before any subcommand runs
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	// Cancel on SIGINT/SIGTERM so layouts and the server stop gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "relmap",
	Short: "Force-directed relation maps of people, teams and repositories",
	Long: `relmap lays out a person together with their teams and repositories
as an interactive force-directed map.

  relmap view u1 --teams --repos     open the interactive canvas
  relmap render --person u1 -o map.png
  relmap serve                       HTTP API and rendered maps
  relmap resolve u1 --repos          print the relation graph`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env if present (ignore error if missing)
		_ = godotenv.Load()

		path := configPath
		if path == "" {
			path = config.Path()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger = logging.NewLogger(cfg.Log.Level, os.Stderr)
		logger.Debug("configuration loaded", "path", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $RELMAP_CONFIG or ~/.config/relmap/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: warn, info, debug, trace")
	rootCmd.Version = Version
}

// openDirectory builds the people directory from the loaded config
func openDirectory() (*directory.Directory, error) {
	return directory.Open(cfg.Directory.File, cfg.Directory.Latency)
}
