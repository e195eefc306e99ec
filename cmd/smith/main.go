package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sitesmith/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "smith",
	Short: "sitesmith - prompt-to-project generation service",
	Long: `sitesmith turns a free-text request into a downloadable source project.

A model call produces an untrusted text blob; sitesmith decodes it into a
file map, statically validates dependency consistency, materializes the
project on disk, packs it into a zip archive, and serves that archive for a
bounded retrieval window.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the generation HTTP service",
	Long: `Starts the HTTP service:
  POST /api/generate  generate a project from {query, componentLibrary, projectName, cms}
  GET  /download/:zip retrieve a built archive before it expires
  GET  /healthz       liveness probe`,
	RunE: runServe,
}

// generateCmd runs one generation without the HTTP layer
var generateCmd = &cobra.Command{
	Use:   "generate [request]",
	Short: "Generate a project from a free-text request",
	Long: `Runs the full pipeline once and prints where the project and its
archive were written.

Example:
  smith generate "a recipe sharing site" --name tasty --cms strapi`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sitesmith.yaml", "Path to config file")

	generateCmd.Flags().String("name", "", "Project name")
	generateCmd.Flags().String("cms", "", "Target CMS")
	generateCmd.Flags().String("component-library", "", "UI component library")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and validates its durations up front.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	for _, parse := range []func() error{
		func() error { _, err := cfg.ArtifactTTL(); return err },
		func() error { _, err := cfg.RequestTimeout(); return err },
		func() error { _, err := cfg.LLMTimeout(); return err },
	} {
		if err := parse(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// notifyContext cancels on SIGINT/SIGTERM for graceful shutdown.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
