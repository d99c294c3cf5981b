package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SettingChange is one recorded write to a setting. A nil Value marks a delete.
type SettingChange struct {
	Key       string
	Value     *string
	ChangedAt time.Time
}

// Store is the PostgreSQL settings backend.
type Store struct {
	pool DBPool
	log  *zap.Logger
	now  func() time.Time
}

const (
	sqlCreateSettings = `
        CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );
    `
	sqlCreateHistory = `
        CREATE TABLE IF NOT EXISTS settings_history (
            id BIGSERIAL PRIMARY KEY,
            key TEXT NOT NULL,
            value TEXT,
            changed_at TIMESTAMPTZ NOT NULL
        );
    `
	sqlSelectSetting = `SELECT value FROM settings WHERE key = $1 AND value IS NOT NULL;`
	sqlUpsertSetting = `
        INSERT INTO settings (key, value, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET
            value = EXCLUDED.value,
            updated_at = EXCLUDED.updated_at;
    `
	sqlDeleteSetting = `DELETE FROM settings WHERE key = $1;`
	sqlInsertHistory = `INSERT INTO settings_history (key, value, changed_at) VALUES ($1, $2, $3);`
	sqlSelectHistory = `
        SELECT key, value, changed_at FROM settings_history
        WHERE key = $1
        ORDER BY changed_at DESC, id DESC
        LIMIT $2;
    `
)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
		now:  time.Now,
	}, nil
}

// EnsureSchema creates the settings tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{sqlCreateSettings, sqlCreateHistory} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure settings schema: %w", err)
		}
	}
	return nil
}

// GetSettingValue returns the raw value stored under key. ok is false when the
// row is missing or holds NULL.
func (s *Store) GetSettingValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, sqlSelectSetting, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, true, nil
}

// SetSettingValue upserts key and records the change in the history table,
// both in one transaction.
func (s *Store) SetSettingValue(ctx context.Context, key, value string) error {
	return s.write(ctx, key, &value, func(tx pgx.Tx, at time.Time) error {
		if _, err := tx.Exec(ctx, sqlUpsertSetting, key, value, at); err != nil {
			return fmt.Errorf("failed to upsert setting %q: %w", key, err)
		}
		return nil
	})
}

// DeleteSetting removes key. Deleting a missing key is not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	return s.write(ctx, key, nil, func(tx pgx.Tx, _ time.Time) error {
		if _, err := tx.Exec(ctx, sqlDeleteSetting, key); err != nil {
			return fmt.Errorf("failed to delete setting %q: %w", key, err)
		}
		return nil
	})
}

// SettingHistory lists the most recent changes to key, newest first.
func (s *Store) SettingHistory(ctx context.Context, key string, limit int) ([]SettingChange, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlSelectHistory, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query setting history: %w", err)
	}
	defer rows.Close()

	var changes []SettingChange
	for rows.Next() {
		var c SettingChange
		if err := rows.Scan(&c.Key, &c.Value, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting history row: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate setting history: %w", err)
	}
	return changes, nil
}

func (s *Store) write(ctx context.Context, key string, value *string, apply func(pgx.Tx, time.Time) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful Commit reports ErrTxClosed, which is expected.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	at := s.now().UTC()
	if err := apply(tx, at); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sqlInsertHistory, key, value, at); err != nil {
		return fmt.Errorf("failed to record setting history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Setting updated.", zap.String("key", key), zap.Bool("deleted", value == nil))
	return nil
}
