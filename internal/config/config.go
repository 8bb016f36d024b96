package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	defaultListenAddr  = ":8080"
	defaultDBPath      = "sceneloader.db"
	defaultCatalogPath = "scenes.yaml"
	defaultProvider    = "fs"

	envListenAddr    = "SCENELOADER_LISTEN_ADDR"
	envDBPath        = "SCENELOADER_DB_PATH"
	envLogLevel      = "SCENELOADER_LOG_LEVEL"
	envCatalogPath   = "SCENELOADER_CATALOG"
	envStrictCatalog = "SCENELOADER_STRICT_CATALOG"
	envProvider      = "SCENELOADER_PROVIDER"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr  string
	DBPath      string
	LogLevel    slog.Level
	CatalogPath string

	// StrictCatalog rejects catalogs that register a scene name twice
	// instead of keeping the later entry.
	StrictCatalog bool

	// Provider names the asset system to open from the registry.
	Provider string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:  defaultListenAddr,
		DBPath:      defaultDBPath,
		LogLevel:    slog.LevelInfo,
		CatalogPath: defaultCatalogPath,
		Provider:    defaultProvider,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envCatalogPath); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv(envStrictCatalog); v != "" {
		cfg.StrictCatalog = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv(envProvider); v != "" {
		cfg.Provider = v
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
