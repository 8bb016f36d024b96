// testserver starts a sceneloader API server over a scripted asset system for
// E2E testing. Loads and unloads complete on their own after a short delay.
// Usage: go run ./cmd/testserver
package main

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/seantiz/sceneloader/internal/api"
	"github.com/seantiz/sceneloader/internal/catalog"
	"github.com/seantiz/sceneloader/internal/content/contenttest"
	"github.com/seantiz/sceneloader/internal/coordinator"
	"github.com/seantiz/sceneloader/internal/store"
)

// operationDelay is how long each scripted load or unload takes.
const operationDelay = 500 * time.Millisecond

func main() {
	addr := ":8080"
	if v := os.Getenv("SCENELOADER_LISTEN_ADDR"); v != "" {
		addr = v
	}

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	table, err := catalog.Build([]catalog.Entry{
		{Name: "Lobby", Reference: catalog.NewReference(uuid.Nil, "lobby.yaml")},
		{Name: "Arena", Reference: catalog.NewReference(uuid.Nil, "arena.yaml")},
		{Name: "Level1", Reference: catalog.NewReference(uuid.Nil, "levels/level1.yaml")},
		{Name: "Broken", Reference: catalog.NewReference(uuid.Nil, "broken.yaml")},
	}, catalog.WithLogger(logger))
	if err != nil {
		log.Fatalf("invalid catalog: %v", err)
	}

	provider := contenttest.NewAuto(operationDelay)
	provider.FailAddress("broken.yaml", errors.New("asset bundle missing"))

	coord := coordinator.New(table, provider, db, logger)
	srv := api.NewServer(addr, db, coord, logger)

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
