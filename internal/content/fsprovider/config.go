package fsprovider

import (
	"os"
	"strings"
	"time"
)

// Environment variable names for filesystem provider configuration.
const (
	envRoot      = "SCENELOADER_CONTENT_ROOT"
	envWatch     = "SCENELOADER_CONTENT_WATCH"
	envStepDelay = "SCENELOADER_CONTENT_STEP_DELAY"
)

// DefaultRoot is the scene document directory used when none is configured.
const DefaultRoot = "scenes"

// Config holds configuration for the filesystem asset system.
type Config struct {
	// Root is the directory scene documents are resolved against.
	Root string

	// Watch enables cache invalidation when scene documents change on disk.
	Watch bool

	// StepDelay is slept between load stages. It makes progress observable
	// for small documents and is zero by default.
	StepDelay time.Duration
}

// LoadConfig reads provider configuration from environment variables,
// applying defaults for values not set.
func LoadConfig() Config {
	cfg := Config{
		Root: DefaultRoot,
	}

	if v := os.Getenv(envRoot); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv(envWatch); v != "" {
		cfg.Watch = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv(envStepDelay); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.StepDelay = d
		}
	}

	return cfg
}
