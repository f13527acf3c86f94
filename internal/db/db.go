package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open connects to the SQLite database and runs schema migrations.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return conn, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			deck TEXT NOT NULL,
			model TEXT NOT NULL,
			source_doc_id TEXT,
			front TEXT NOT NULL,
			back TEXT NOT NULL,
			due DATETIME,
			stability REAL NOT NULL DEFAULT 0,
			difficulty REAL NOT NULL DEFAULT 0,
			elapsed_days INTEGER NOT NULL DEFAULT 0,
			scheduled_days INTEGER NOT NULL DEFAULT 0,
			reps INTEGER NOT NULL DEFAULT 0,
			lapses INTEGER NOT NULL DEFAULT 0,
			state INTEGER NOT NULL DEFAULT 0,
			last_review DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS import_runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			sink TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('running','complete','failed')),
			documents INTEGER NOT NULL DEFAULT 0,
			cards_found INTEGER NOT NULL DEFAULT 0,
			cards_added INTEGER NOT NULL DEFAULT 0,
			cards_failed INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_documents (
			run_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			document_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			cards_found INTEGER NOT NULL DEFAULT 0,
			cards_added INTEGER NOT NULL DEFAULT 0,
			cards_failed INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			PRIMARY KEY(run_id, position),
			FOREIGN KEY(run_id) REFERENCES import_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_due ON cards(due);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON import_runs(started_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("execute %q: %w", stmt, err)
		}
	}
	return nil
}
