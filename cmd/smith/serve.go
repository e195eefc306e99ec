package main

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitesmith/internal/archive"
	"sitesmith/internal/artifact"
	"sitesmith/internal/llm"
	"sitesmith/internal/pipeline"
	"sitesmith/internal/server"
	"sitesmith/internal/workspace"
)

// runServe wires the pipeline onto the storage root and serves HTTP until
// interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
		return fmt.Errorf("failed to create storage root: %w", err)
	}
	storage := osfs.New(cfg.Storage.Root)

	client, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	ttl, _ := cfg.ArtifactTTL()
	registry := artifact.NewRegistry(storage, ttl, logger)

	p := pipeline.New(client,
		workspace.NewMaterializer(storage, logger),
		archive.NewBuilder(storage, logger),
		registry,
		logger)

	timeout, _ := cfg.RequestTimeout()
	srv := server.New(cfg.Server.Address, p, registry, cfg.Server.CORSOrigin, timeout, logger)

	logger.Info("sitesmith serving",
		zap.String("addr", cfg.Server.Address),
		zap.String("storage", cfg.Storage.Root),
		zap.Duration("artifact_ttl", ttl))
	return srv.ListenAndServe(ctx)
}
