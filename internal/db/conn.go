package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abdulachik/trendcard/internal/db/migrations"
	_ "modernc.org/sqlite"
)

// Store wraps the history database and its queries.
type Store struct {
	*sql.DB
	*Queries
}

// NewStore opens (and creates if needed) the SQLite database at dbPath.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	return &Store{
		DB:      sqlDB,
		Queries: New(sqlDB),
	}, nil
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.ApplyMigrations(ctx)
	return err
}

// ApplyMigrations is Migrate, returning the files it applied in order.
func (s *Store) ApplyMigrations(ctx context.Context) ([]string, error) {
	slog.Debug("running database migrations")

	if _, err := s.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	files, err := migrationFiles()
	if err != nil {
		return nil, err
	}

	var done []string
	for _, file := range files {
		if applied[file] {
			continue
		}
		if err := s.applyMigration(ctx, file); err != nil {
			return done, err
		}
		slog.Info("applied migration", "file", file)
		done = append(done, file)
	}

	return done, nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migrations: %w", err)
	}
	return applied, nil
}

func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) applyMigration(ctx context.Context, file string) error {
	content, err := fs.ReadFile(migrations.FS, file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, extractUpMigration(string(content))); err != nil {
		return fmt.Errorf("execute migration %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", file); err != nil {
		return fmt.Errorf("record migration %s: %w", file, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file, err)
	}
	return nil
}

// extractUpMigration returns the part of a migration before "-- +migrate Down",
// without the "-- +migrate Up" marker.
func extractUpMigration(content string) string {
	if idx := strings.Index(content, "-- +migrate Down"); idx != -1 {
		content = content[:idx]
	}
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "-- +migrate Up")
	return strings.TrimSpace(content)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}
