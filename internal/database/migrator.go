package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

type Migrator struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewMigrator(db *sql.DB, dialect Dialect, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: db, dialect: dialect, logger: logger.With("component", "migrator")}
}

// Run applies every embedded migration of the dialect that is not yet
// recorded in schema_migrations, each inside its own transaction. It returns
// the names of the migrations applied by this call.
func (m *Migrator) Run() ([]string, error) {
	if err := m.createMigrationsTable(); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	dir := path.Join("migrations", string(m.dialect))
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var applied []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		migrationName := entry.Name()

		done, err := m.isMigrationApplied(migrationName)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if done {
			m.logger.Debug("migration already applied, skipping", "migration", migrationName)
			continue
		}

		migrationSQL, err := migrationsFS.ReadFile(path.Join(dir, migrationName))
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", migrationName, err)
		}

		m.logger.Info("applying migration", "migration", migrationName, "dialect", string(m.dialect))

		tx, err := m.db.Begin()
		if err != nil {
			return applied, fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(string(migrationSQL)); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("failed to execute migration %s: %w", migrationName, err)
		}

		if _, err := tx.Exec(
			Rebind(m.dialect, "INSERT INTO schema_migrations (name, applied_at) VALUES (?, CURRENT_TIMESTAMP)"),
			migrationName,
		); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("failed to record migration %s: %w", migrationName, err)
		}

		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %s: %w", migrationName, err)
		}

		applied = append(applied, migrationName)
	}

	return applied, nil
}

func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := m.db.Exec(query)
	return err
}

func (m *Migrator) isMigrationApplied(name string) (bool, error) {
	var count int
	err := m.db.QueryRow(
		Rebind(m.dialect, "SELECT COUNT(*) FROM schema_migrations WHERE name = ?"),
		name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
