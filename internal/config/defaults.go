package config

import (
	"os"
	"path/filepath"
)

// DefaultExcludes are glob patterns excluded from capture scans by default.
var DefaultExcludes = []string{
	"vendor/**",
	"node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	"*.min.js",
	"*.min.css",
	"*.lock",
	"go.sum",
	"package-lock.json",
	"yarn.lock",
}

// DefaultPath returns the conventional config file location,
// ~/.flowdeck/config.yml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yml"
	}
	return filepath.Join(home, ".flowdeck", "config.yml")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8484,
			DataDir: ".flowdeck",
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:8484",
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Export: ExportConfig{
			OutputDir:   "flowdeck-site",
			ProjectName: "Flows",
		},
		Capture: CaptureConfig{
			ContextLines: 4,
			Include:      []string{"**"},
			Exclude:      DefaultExcludes,
		},
	}
}
