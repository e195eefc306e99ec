package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sitesmith/internal/archive"
	"sitesmith/internal/artifact"
	"sitesmith/internal/filemap"
	"sitesmith/internal/llm"
	"sitesmith/internal/pipeline"
	"sitesmith/internal/workspace"
)

// runGenerate executes the pipeline once from the command line. The archive
// is left on disk (no expiry) since the caller owns the storage directory.
func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()
	llmTimeout, _ := cfg.LLMTimeout()
	ctx, timeoutCancel := context.WithTimeout(ctx, llmTimeout)
	defer timeoutCancel()

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
	defer registry.Close()

	p := pipeline.New(client,
		workspace.NewMaterializer(storage, logger),
		archive.NewBuilder(storage, logger),
		registry,
		logger)

	name, _ := cmd.Flags().GetString("name")
	cms, _ := cmd.Flags().GetString("cms")
	library, _ := cmd.Flags().GetString("component-library")

	res, err := p.Generate(ctx, llm.Request{
		Query:            strings.Join(args, " "),
		ProjectName:      name,
		CMS:              cms,
		ComponentLibrary: library,
	})
	if err != nil {
		return reportError(err)
	}

	logger.Info("generation complete",
		zap.String("project", res.ActualProjectName),
		zap.Int("files", len(res.Files)))

	fmt.Printf("Project: %s/%s\n", cfg.Storage.Root, res.ActualProjectName)
	fmt.Printf("Archive: %s/%s\n", cfg.Storage.Root, res.ZipFileName)
	fmt.Printf("Files:   %d\n", len(res.Files))
	return nil
}

// reportError prints the failure the way the HTTP layer would respond:
// decode failures show the raw model text, validation failures the full
// issue list.
func reportError(err error) error {
	var de *filemap.DecodeError
	if errors.As(err, &de) {
		fmt.Fprintln(os.Stderr, "The model's output could not be decoded. Raw response:")
		fmt.Fprintln(os.Stderr, de.Raw)
		return err
	}

	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintln(os.Stderr, "The generated project is inconsistent:")
		for _, issue := range ve.Report {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return err
	}

	return err
}
