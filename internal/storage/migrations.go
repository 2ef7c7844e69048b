package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// Column names follow the tables of the original portal so that exported
// data stays interchangeable. Amounts are stored as canonical decimal text.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: profiles, ledger and financial records",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS profiles (
					id TEXT PRIMARY KEY,
					nome TEXT NOT NULL,
					cargo TEXT NOT NULL DEFAULT '',
					foto_url TEXT NOT NULL DEFAULT '',
					saldo_atual TEXT NOT NULL DEFAULT '0',
					role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
					data_nascimento TEXT,
					data_contratacao TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_profiles_nome ON profiles(nome)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES profiles(id),
					data TEXT NOT NULL,
					motivo TEXT NOT NULL DEFAULT '',
					valor TEXT NOT NULL,
					tipo TEXT NOT NULL CHECK (tipo IN ('credito', 'debito')),
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_data ON transactions(data)`,
				`CREATE INDEX idx_transactions_user ON transactions(user_id)`,

				`CREATE TABLE IF NOT EXISTS financial (
					id TEXT PRIMARY KEY,
					mes TEXT NOT NULL,
					ano INTEGER NOT NULL,
					geracao_caixa TEXT NOT NULL,
					valor_cotacao TEXT NOT NULL DEFAULT '1',
					UNIQUE (mes, ano)
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add rules, activities and rescues",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS rules (
					id TEXT PRIMARY KEY,
					categoria TEXT NOT NULL,
					valor TEXT NOT NULL,
					descricao TEXT NOT NULL DEFAULT '',
					recorrencia TEXT NOT NULL,
					is_self_service BOOLEAN NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS activities (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES profiles(id),
					rule_id TEXT NOT NULL,
					data TEXT NOT NULL,
					categoria TEXT NOT NULL,
					valor TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pendente',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_activities_user ON activities(user_id)`,
				`CREATE INDEX idx_activities_status ON activities(status)`,

				`CREATE TABLE IF NOT EXISTS rescues (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES profiles(id),
					produto TEXT NOT NULL,
					valor_gtx TEXT NOT NULL,
					link_sugerido TEXT NOT NULL DEFAULT '',
					data TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pendente',
					ai_feedback TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rescues_user ON rescues(user_id)`,
				`CREATE INDEX idx_rescues_status ON rescues(status)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Add notifications",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS notifications (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					title TEXT NOT NULL,
					message TEXT NOT NULL,
					type TEXT NOT NULL,
					is_read BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_notifications_user ON notifications(user_id, created_at)`,
			)
		},
	},
	{
		Version:     4,
		Description: "Add checkpoint metadata table",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS checkpoint_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					description TEXT,
					file_size INTEGER,
					row_counts TEXT,
					schema_version INTEGER,
					is_auto BOOLEAN DEFAULT 0
				)`,
				`CREATE INDEX idx_checkpoint_metadata_created_at ON checkpoint_metadata(created_at)`,
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

// Migrate brings the schema up to ExpectedSchemaVersion.
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

// SchemaVersion returns the current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
