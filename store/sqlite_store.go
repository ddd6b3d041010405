package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DBFileName is the database file created under the store directory.
const DBFileName = "narrativa.db"

// SQLiteStore keeps records and session snapshots in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database under basePath.
// basePath ":memory:" opens a private in-memory database.
func NewSQLiteStore(basePath string) (*SQLiteStore, error) {
	var dbPath string
	if basePath == ":memory:" {
		dbPath = ":memory:"
	} else {
		dbPath = filepath.Join(basePath, DBFileName)
		if err := os.MkdirAll(basePath, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		snapshot TEXT NOT NULL,        -- JSON of the session state
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_seq ON records(seq);
	CREATE INDEX IF NOT EXISTS idx_records_session ON records(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append inserts r after every existing record.
func (s *SQLiteStore) Append(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, seq, text, created_at, session_id, kind)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records), ?, ?, ?, ?)
	`, uuid.NewString(), r.Text, r.Timestamp.Format(time.RFC3339Nano), r.SessionID, string(r.Kind))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Records returns every record in insertion order.
func (s *SQLiteStore) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text, created_at, session_id, kind FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var createdAt, kind string
		if err := rows.Scan(&r.Text, &createdAt, &r.SessionID, &kind); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		r.Kind = Kind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// SaveSession replaces the snapshot stored for id.
func (s *SQLiteStore) SaveSession(ctx context.Context, id string, snapshot []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, snapshot, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at
	`, id, string(snapshot), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// LoadSession returns the latest snapshot for id.
func (s *SQLiteStore) LoadSession(ctx context.Context, id string) ([]byte, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return []byte(snapshot), nil
}

// LatestSession returns the id of the most recently saved session.
func (s *SQLiteStore) LatestSession(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("latest session: %w", err)
	}
	return id, nil
}

// FindSessionIDsByPrefix lists saved session ids starting with prefix.
func (s *SQLiteStore) FindSessionIDsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE substr(id, 1, length(?)) = ? ORDER BY id`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("find sessions by prefix: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
