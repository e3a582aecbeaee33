package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Drivers lists the accepted database/sql driver names: "sqlite3" is the
// cgo driver, "sqlite" the pure Go one.
var Drivers = []string{"sqlite3", "sqlite"}

// Open opens the database at path with the given driver and runs migrations.
func Open(driver, path string) (*sql.DB, error) {
	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

const migrationsSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	corpus TEXT NOT NULL,
	window_size INTEGER NOT NULL,
	threshold REAL NOT NULL,
	zero_policy TEXT NOT NULL,
	pair_count INTEGER NOT NULL DEFAULT 0,
	same_count INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS vocabulary (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	lemma TEXT NOT NULL,
	position INTEGER NOT NULL,
	neighbor TEXT NOT NULL,
	PRIMARY KEY (run_id, lemma, neighbor)
);

CREATE TABLE IF NOT EXISTS verdicts (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	word TEXT NOT NULL,
	sentence1 TEXT NOT NULL,
	sentence2 TEXT NOT NULL,
	index1 INTEGER NOT NULL,
	index2 INTEGER NOT NULL,
	similarity REAL NOT NULL,
	same_context INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_verdicts_word ON verdicts(run_id, word);
`
