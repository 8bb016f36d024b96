package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/seantiz/sceneloader/internal/api"
	"github.com/seantiz/sceneloader/internal/catalog"
	"github.com/seantiz/sceneloader/internal/config"
	"github.com/seantiz/sceneloader/internal/content"
	"github.com/seantiz/sceneloader/internal/content/contenttest"
	"github.com/seantiz/sceneloader/internal/content/fsprovider"
	"github.com/seantiz/sceneloader/internal/coordinator"
	"github.com/seantiz/sceneloader/internal/store"
)

// scriptedDelay is how long each operation of the scripted asset system takes.
const scriptedDelay = 250 * time.Millisecond

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("sceneloader: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"catalog", cfg.CatalogPath,
		"provider", cfg.Provider,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	entries, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to read catalog: %v", err)
	}
	opts := []catalog.Option{catalog.WithLogger(logger)}
	if cfg.StrictCatalog {
		opts = append(opts, catalog.WithStrictDuplicates())
	}
	table, err := catalog.Build(entries, opts...)
	if err != nil {
		log.Fatalf("invalid catalog: %v", err)
	}
	logger.Info("catalog loaded", "scenes", table.Len())

	providers := content.NewRegistry()
	providers.Register("fs", func() (content.Provider, error) {
		return fsprovider.New(fsprovider.LoadConfig(), logger)
	})
	providers.Register("contenttest", func() (content.Provider, error) {
		return contenttest.NewAuto(scriptedDelay), nil
	})

	provider, err := providers.Open(cfg.Provider)
	if err != nil {
		log.Fatalf("failed to start asset system: %v (available: %v)", err, providers.Names())
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	coord := coordinator.New(table, provider, db, logger)
	srv := api.NewServer(cfg.ListenAddr, db, coord, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
