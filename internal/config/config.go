// Package config holds all sitesmith configuration, loaded from a YAML file
// with environment-variable overrides for deploy-time secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all sitesmith configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	LLM     LLMConfig     `yaml:"llm"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address        string `yaml:"address"`
	CORSOrigin     string `yaml:"cors_origin"`
	RequestTimeout string `yaml:"request_timeout"`
}

// StorageConfig configures where generated projects and archives live.
type StorageConfig struct {
	Root        string `yaml:"root"`
	ArtifactTTL string `yaml:"artifact_ttl"`
}

// LLMConfig configures the generation model.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        ":3001",
			CORSOrigin:     "*",
			RequestTimeout: "5m",
		},
		Storage: StorageConfig{
			Root:        "generated_projects",
			ArtifactTTL: "5m",
		},
		LLM: LLMConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "3m",
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file for values that
// differ per deployment or must not live on disk.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SITESMITH_ADDR"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("SITESMITH_STORAGE_ROOT"); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("SITESMITH_MODEL"); v != "" {
		c.LLM.Model = v
	}
}

// ArtifactTTL parses the artifact expiry window.
func (c *Config) ArtifactTTL() (time.Duration, error) {
	return parseDuration(c.Storage.ArtifactTTL, "storage.artifact_ttl")
}

// RequestTimeout parses the per-request deadline.
func (c *Config) RequestTimeout() (time.Duration, error) {
	return parseDuration(c.Server.RequestTimeout, "server.request_timeout")
}

// LLMTimeout parses the model-call deadline.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return parseDuration(c.LLM.Timeout, "llm.timeout")
}

func parseDuration(value, field string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", field, value)
	}
	return d, nil
}
