package cli

import (
	"context"
	"fmt"

	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/config"
	"github.com/lazypower/revise/internal/pgstore"
	"github.com/lazypower/revise/internal/store"
)

// backend is what every storage driver provides.
type backend interface {
	agenda.Store
	DueUsers(ctx context.Context, day string) ([]string, error)
	Healthy(ctx context.Context) bool
	Close() error
}

// loadConfig resolves --config (or the default path) and loads it.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

// openBackend opens the configured store. location describes it for logs.
func openBackend(ctx context.Context, cfg *config.Config) (b backend, location string, err error) {
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := pgstore.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, "", err
		}
		return pg, "postgres", nil
	default:
		dbPath := cfg.Database.Path
		if dbPath == "" {
			dbPath, err = store.DefaultDBPath()
			if err != nil {
				return nil, "", fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err := store.Open(dbPath)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		return db, dbPath, nil
	}
}

// openService is the common prologue of the agenda commands.
func openService(ctx context.Context) (*agenda.Service, func(), error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	b, _, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := agenda.NewService(b, agenda.WithUsers(cfg.Users))
	return svc, func() { b.Close() }, nil
}
