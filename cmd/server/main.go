// Command server runs the NutriTrack API and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrylevesque/nutritrack/internal/config"
	"github.com/harrylevesque/nutritrack/internal/logging"
	"github.com/harrylevesque/nutritrack/internal/storage"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "nutritrack-server",
		Short:         "NutriTrack API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path (YAML)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), configPath)
			},
		},
		seedCmd(&configPath),
		backupCmd(&configPath),
		restoreCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("nutritrack-server %s\n", Version)
			},
		},
	)
	return cmd
}

// env is what every subcommand needs: config, a logger and an open store.
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	level zap.AtomicLevel
	store *storage.Store
}

func setup(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, level, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	log.Info("database opened", zap.String("path", cfg.Storage.Path))
	return &env{cfg: cfg, log: log, level: level, store: store}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("close database", zap.Error(err))
	}
	_ = e.log.Sync()
}
