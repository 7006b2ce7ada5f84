package db

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS chats (
            chat_id           BIGINT PRIMARY KEY,
            alias             TEXT,
            created_at        BIGINT NOT NULL,
            from_address      TEXT NOT NULL,
            to_address        TEXT NOT NULL,
            verification_text TEXT NOT NULL,
            verified          BOOLEAN NOT NULL DEFAULT FALSE
        );`,
	`CREATE INDEX IF NOT EXISTS idx_chats_created_at ON chats (created_at);`,
	`CREATE TABLE IF NOT EXISTS messages (
            id      BIGINT PRIMARY KEY,
            chat_id BIGINT NOT NULL,
            sent_at BIGINT NOT NULL,
            text    TEXT NOT NULL,
            is_sent BOOLEAN NOT NULL DEFAULT FALSE
        );`,
	`CREATE INDEX IF NOT EXISTS idx_messages_chat_sent_at ON messages (chat_id, sent_at);`,
}

// SQLitePath builds a DSN for a database file under dataDir.
func SQLitePath(dataDir string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(filepath.Join(dataDir, "memochat.db")))
}

// Connect opens the database. Schema creation is left to Migrate.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if driver == DriverSQLite {
		// one writer at a time, SQLite would report SQLITE_BUSY otherwise
		db.SetMaxOpenConns(1)
		var journalMode string
		if err := db.Get(&journalMode, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
		if !strings.EqualFold(journalMode, "wal") && !strings.EqualFold(journalMode, "memory") {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: unexpected journal mode %q", journalMode)
		}
	}
	return db, nil
}

// Migrate applies pending migrations. Safe to call repeatedly.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var version int
	if err := db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= len(migrations) {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(migrations); i++ {
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), i+1); err != nil {
			return fmt.Errorf("set schema version %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration transaction: %w", err)
	}
	log.Printf("database migrations applied version=%d", len(migrations))
	return nil
}

// SchemaVersion reports the applied migration count.
func SchemaVersion(ctx context.Context, db *sqlx.DB) (int, error) {
	var version int
	err := db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	return version, err
}
