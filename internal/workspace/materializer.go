package workspace

import (
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"

	"sitesmith/internal/filemap"
)

// Materializer writes validated file maps to a filesystem. The filesystem is
// injected (osfs in production, memfs in tests) and all paths are relative to
// its root.
type Materializer struct {
	fs  billy.Filesystem
	log *zap.Logger
}

// NewMaterializer creates a Materializer on the given filesystem.
func NewMaterializer(fs billy.Filesystem, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{fs: fs, log: logger}
}

// Write persists every file map entry under <namespace>/<path>, creating
// intermediate directories as needed, and returns the project directory.
// Writes are not rolled back on failure; the partial directory is left for
// inspection and the error names the offending path.
func (m *Materializer) Write(namespace string, files filemap.FileMap) (string, error) {
	for _, p := range files.Paths() {
		target := path.Join(namespace, p)
		if dir := path.Dir(target); dir != "." {
			if err := m.fs.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
		if err := util.WriteFile(m.fs, target, []byte(files[p]), 0o644); err != nil {
			return "", fmt.Errorf("write file %s: %w", target, err)
		}
	}

	m.log.Debug("project materialized",
		zap.String("namespace", namespace),
		zap.Int("files", len(files)))
	return namespace, nil
}
