package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE COLLATE NOCASE,
					type TEXT NOT NULL DEFAULT 'expense' CHECK (type IN ('income', 'expense')),
					parent_id INTEGER REFERENCES categories(id),
					keywords TEXT NOT NULL DEFAULT '[]',
					merchant_patterns TEXT NOT NULL DEFAULT '[]',
					sort_order INTEGER NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_categories_parent ON categories(parent_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					merchant_name TEXT NOT NULL DEFAULT '',
					amount TEXT NOT NULL,
					account_id TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_merchant ON transactions(merchant_name)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add categorization rules and merchant mappings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS categorization_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					conditions TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					priority INTEGER NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_active ON categorization_rules(is_active)`,

				`CREATE TABLE IF NOT EXISTS merchant_mappings (
					id TEXT PRIMARY KEY,
					merchant_name TEXT NOT NULL,
					normalized_name TEXT NOT NULL UNIQUE,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					confidence INTEGER NOT NULL CHECK (confidence BETWEEN 0 AND 100),
					source TEXT NOT NULL,
					successful_mappings INTEGER NOT NULL DEFAULT 0,
					failed_mappings INTEGER NOT NULL DEFAULT 0,
					alternative_names TEXT NOT NULL DEFAULT '[]',
					is_active BOOLEAN NOT NULL DEFAULT 1,
					last_used_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_merchant_mappings_category ON merchant_mappings(category_id)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Add categorization state to transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE transactions ADD COLUMN status TEXT NOT NULL DEFAULT 'UNCATEGORIZED'`,
				`ALTER TABLE transactions ADD COLUMN category_id INTEGER REFERENCES categories(id)`,
				`ALTER TABLE transactions ADD COLUMN category_name TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE transactions ADD COLUMN subcategory_name TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE transactions ADD COLUMN suggested_category_id INTEGER REFERENCES categories(id)`,
				`ALTER TABLE transactions ADD COLUMN categorized_by TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE transactions ADD COLUMN confidence INTEGER NOT NULL DEFAULT 0`,
				`ALTER TABLE transactions ADD COLUMN categorized_at DATETIME`,
				`CREATE INDEX idx_transactions_status ON transactions(status)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the current schema version of the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
