// File: cmd/provider.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/wa-humanizer/internal/config"
	"github.com/xkilldash9x/wa-humanizer/internal/observability"
	"github.com/xkilldash9x/wa-humanizer/internal/settingsfile"
	"github.com/xkilldash9x/wa-humanizer/internal/store"
)

// settingsBackend is everything the commands need from the settings store.
type settingsBackend interface {
	EnsureSchema(ctx context.Context) error
	GetSettingValue(ctx context.Context, key string) (string, bool, error)
	SetSettingValue(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
	SettingHistory(ctx context.Context, key string, limit int) ([]store.SettingChange, error)
}

// watchingBackend is implemented by backends that can report external edits.
type watchingBackend interface {
	Watch(ctx context.Context, onChange func(key string)) error
}

// settingsProvider creates the settings backend. This abstraction lets tests
// inject an in-memory backend instead of a live database connection.
type settingsProvider interface {
	// Create returns the backend and a cleanup function. A nil backend with a
	// nil error means no database is configured.
	Create(ctx context.Context, cfg config.Interface) (settingsBackend, func(), error)
}

type defaultSettingsProvider struct{}

// NewSettingsProvider returns the PostgreSQL-backed provider.
func NewSettingsProvider() settingsProvider {
	return &defaultSettingsProvider{}
}

// Create connects to PostgreSQL when database.url is set, and otherwise uses
// the settings directory when humanizer.settings_dir is set.
func (p *defaultSettingsProvider) Create(ctx context.Context, cfg config.Interface) (settingsBackend, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database().URL == "" {
		dir := cfg.Humanizer().SettingsDir
		if dir == "" {
			return nil, func() {}, nil
		}
		files := settingsfile.New(dir, logger)
		if err := files.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return files, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize settings store: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}

// requireBackend is Create for commands that cannot run on defaults alone.
func requireBackend(ctx context.Context, provider settingsProvider, cfg config.Interface) (settingsBackend, func(), error) {
	backend, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if backend == nil {
		cleanup()
		return nil, nil, fmt.Errorf("no settings backend is configured (set database.url, HUMANIZER_DATABASE_URL or humanizer.settings_dir)")
	}
	return backend, cleanup, nil
}
