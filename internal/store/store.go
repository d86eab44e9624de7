package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a trace database to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order on databases whose user_version is below version.
// schema.sql always creates the latest tables; migrations only add what older
// trace files lack.
var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_trace_entries_feature
		ON trace_entries(session, feature_key, seq)`},
}

// schemaVersion is the user_version of a fully migrated trace database.
var schemaVersion = migrations[len(migrations)-1].version

// Store is the SQLite trace log: one row per published action, grouped by
// session. It is safe for concurrent use; writes are serialized on a single
// connection.
type Store struct {
	db *sql.DB
}

// Open creates or opens the trace database at path. Opening an existing file
// is idempotent and upgrades its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open trace database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to trace database %s: %w", path, err)
	}

	// One connection: SQLite has a single writer and the pragmas in the DSN
	// apply per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// dsn configures WAL journaling, NORMAL sync and a 5s busy timeout through
// go-sqlite3 connection parameters.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply trace schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate trace schema to v%d: %w", m.version, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("set schema version %d: %w", m.version, err)
		}
		version = m.version
	}
	return nil
}
