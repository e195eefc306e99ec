package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.Server.Address)
	assert.Equal(t, "generated_projects", cfg.Storage.Root)

	ttl, err := cfg.ArtifactTTL()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9000"
storage:
  root: /tmp/projects
  artifact_ttl: 90s
llm:
  model: gemini-2.5-pro
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "/tmp/projects", cfg.Storage.Root)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)

	ttl, err := cfg.ArtifactTTL()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, ttl)

	// Unset fields keep their defaults.
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SITESMITH_ADDR", ":8080")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
}

func TestDurationValidation(t *testing.T) {
	cfg := Default()
	cfg.Storage.ArtifactTTL = "soon"
	_, err := cfg.ArtifactTTL()
	assert.Error(t, err)

	cfg.Storage.ArtifactTTL = "-1m"
	_, err = cfg.ArtifactTTL()
	assert.Error(t, err)
}
