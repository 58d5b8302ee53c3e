// Package infrastructure assembles the services shared by the botwatch
// commands: logging, lifecycle coordination, and the optional database and
// blob storage backends that the record and archive stages depend on.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/botwatch/internal/config"
	"github.com/JaimeStill/botwatch/pkg/database"
	"github.com/JaimeStill/botwatch/pkg/lifecycle"
	"github.com/JaimeStill/botwatch/pkg/storage"
)

// Infrastructure holds the core systems required by the pipeline and the API.
// Database is nil unless pipeline.record is enabled and Storage is nil
// unless pipeline.archive is enabled.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all enabled systems but does not start them; call Start separately.
func New(cfg *config.Config, level slog.Level) (*Infrastructure, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	infra := &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
	}

	if cfg.Pipeline.Record {
		db, err := database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
	}

	if cfg.Pipeline.Archive {
		store, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		infra.Storage = store
	}

	return infra, nil
}

// Start registers the enabled systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	return nil
}

// Ready returns database.ErrNotReady when recording is enabled but the
// database could not be reached during startup.
func (i *Infrastructure) Ready() error {
	if i.Database != nil && !i.Database.Ready() {
		return database.ErrNotReady
	}
	return nil
}
