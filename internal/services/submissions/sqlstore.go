package submissions

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"  // register postgres driver
	_ "modernc.org/sqlite" // register sqlite driver
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS submissions (
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    created_at  TEXT NOT NULL,
    payload     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_kind ON submissions(kind, created_at);
`

// SQLStore keeps submissions in a single table of a SQL database
type SQLStore struct {
	db         *sql.DB
	postgres   bool
	insertStmt string
}

// OpenSQLite opens or creates the sqlite database at path
func OpenSQLite(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite backend needs a database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// one writer avoids SQLITE_BUSY under concurrent submissions
	db.SetMaxOpenConns(1)

	return newSQLStore(db, false)
}

// OpenPostgres connects to the postgres database at dsn
func OpenPostgres(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres backend needs a database URL")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return newSQLStore(db, true)
}

func newSQLStore(db *sql.DB, postgres bool) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// lib/pq runs multi-statement strings only without placeholders, which holds here
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &SQLStore{db: db, postgres: postgres}
	s.insertStmt = s.rebind("INSERT INTO submissions (id, kind, created_at, payload) VALUES (?, ?, ?, ?)")
	return s, nil
}

// rebind rewrites ? placeholders as $n for postgres
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save inserts rec
func (s *SQLStore) Save(ctx context.Context, rec Record) error {
	env, err := envelopeOf(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.insertStmt,
		env.ID,
		env.Kind,
		env.CreatedAt.Format(time.RFC3339Nano),
		string(env.Payload),
	)
	if err != nil {
		return fmt.Errorf("inserting %s %s: %w", env.Kind, env.ID, err)
	}
	return nil
}

// List returns stored records of kind, or all kinds when kind is empty
func (s *SQLStore) List(ctx context.Context, kind string) ([]Envelope, error) {
	query := "SELECT id, kind, created_at, payload FROM submissions"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Envelope
	for rows.Next() {
		var env Envelope
		var createdAt, payload string
		if err := rows.Scan(&env.ID, &env.Kind, &createdAt, &payload); err != nil {
			return nil, err
		}
		env.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at of %s: %w", env.ID, err)
		}
		env.Payload = []byte(payload)
		out = append(out, env)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RFC3339Nano strings drop trailing zeros, so text order is not time order
	sortEnvelopes(out)
	return out, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
