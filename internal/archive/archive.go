// Package archive serializes a file map into a single zip so the generated
// project downloads as one attachment. The archive is built directly from
// the file map, never from the materialized directory, so the two outputs
// cannot drift apart.
package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"

	"sitesmith/internal/filemap"
)

// Builder writes zip archives onto an injected filesystem.
type Builder struct {
	fs  billy.Filesystem
	log *zap.Logger
}

// NewBuilder creates a Builder on the given filesystem.
func NewBuilder(fs billy.Filesystem, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{fs: fs, log: logger}
}

// Build writes every file map entry into <namespace>.zip under its original
// relative path, using maximum compression, and returns the archive path.
// The path is returned only after the stream is finalized and closed; any
// mid-stream error aborts, removes the partial file, and surfaces a build
// failure instead of a truncated archive.
func (b *Builder) Build(namespace string, files filemap.FileMap) (string, error) {
	zipPath := namespace + ".zip"

	f, err := b.fs.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive %s: %w", zipPath, err)
	}

	if err := writeEntries(f, files); err != nil {
		_ = f.Close()
		_ = b.fs.Remove(zipPath)
		return "", fmt.Errorf("build archive %s: %w", zipPath, err)
	}
	if err := f.Close(); err != nil {
		_ = b.fs.Remove(zipPath)
		return "", fmt.Errorf("finalize archive %s: %w", zipPath, err)
	}

	b.log.Debug("archive built",
		zap.String("path", zipPath),
		zap.Int("entries", len(files)))
	return zipPath, nil
}

func writeEntries(w io.Writer, files filemap.FileMap) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	// Lexical order keeps archives byte-stable for identical file maps.
	for _, p := range files.Paths() {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:   p,
			Method: zip.Deflate,
		})
		if err != nil {
			return fmt.Errorf("add entry %s: %w", p, err)
		}
		if _, err := io.WriteString(entry, files[p]); err != nil {
			return fmt.Errorf("write entry %s: %w", p, err)
		}
	}

	return zw.Close()
}
