// Package pipeline wires the generated-artifact stages together: model text
// is decoded into a file map, validated for dependency consistency, then
// materialized to disk and packed into a downloadable archive. Each request
// runs its stages sequentially and shares nothing with other requests except
// the storage namespace, which is collision-free by construction.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sitesmith/internal/archive"
	"sitesmith/internal/artifact"
	"sitesmith/internal/filemap"
	"sitesmith/internal/llm"
	"sitesmith/internal/validate"
	"sitesmith/internal/workspace"
)

// ValidationError reports an internally inconsistent file map. It carries
// the full report so the requester gets the complete remediation list; the
// pipeline never patches the project silently.
type ValidationError struct {
	Report validate.Report
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("generated project failed validation with %d issue(s)", len(e.Report))
}

// Result is the successful outcome of one generation request.
type Result struct {
	Files             filemap.FileMap
	Message           string
	ZipFileName       string
	DownloadURL       string
	ActualProjectName string
}

// Pipeline runs generation requests end to end.
type Pipeline struct {
	client       llm.Client
	materializer *workspace.Materializer
	archiver     *archive.Builder
	registry     *artifact.Registry
	log          *zap.Logger
}

// New assembles a Pipeline from its stages.
func New(client llm.Client, m *workspace.Materializer, a *archive.Builder, r *artifact.Registry, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		client:       client,
		materializer: m,
		archiver:     a,
		registry:     r,
		log:          logger,
	}
}

// Generate executes one request: model call, decode, validate, then
// materialize and archive the same immutable file map concurrently, and
// finally hand the archive to the artifact registry. Failures propagate
// typed: *filemap.DecodeError, *ValidationError, or a wrapped I/O error.
// Nothing is retried here; retries belong to the caller of the model.
func (p *Pipeline) Generate(ctx context.Context, req llm.Request) (*Result, error) {
	log := p.log.With(zap.String("project", req.ProjectName))

	prompt := llm.BuildPrompt(req)
	raw, err := p.client.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}
	log.Debug("model responded", zap.Int("bytes", len(raw)))

	files, err := filemap.Decode(raw)
	if err != nil {
		return nil, err
	}

	if report := validate.Check(files); !report.OK() {
		log.Info("validation failed", zap.Int("issues", len(report)))
		return nil, &ValidationError{Report: report}
	}

	namespace := workspace.NewNamespace(req.ProjectName, req.CMS)

	// Both stages read the validated map and never mutate it, so they can
	// run concurrently. Once started, each runs to a terminal state; a
	// cancelled request must not leave an archive registered as available.
	var zipPath string
	g := new(errgroup.Group)
	g.Go(func() error {
		_, err := p.materializer.Write(namespace, files)
		return err
	})
	g.Go(func() error {
		var err error
		zipPath, err = p.archiver.Build(namespace, files)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("persist project %s: %w", namespace, err)
	}

	zipName := p.registry.Register(zipPath)
	log.Info("project generated",
		zap.String("namespace", namespace),
		zap.Int("files", len(files)),
		zap.String("zip", zipName))

	return &Result{
		Files:             files,
		Message:           "Project generated successfully. The download link expires shortly.",
		ZipFileName:       zipName,
		DownloadURL:       "/download/" + zipName,
		ActualProjectName: namespace,
	}, nil
}
