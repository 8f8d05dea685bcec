/*
Package sqlite provides the SQLite-backed snapshot document store.

PURPOSE:
  The core engine works on one whole-document entity snapshot; durability
  means writing that document. This store keeps the snapshot in SQLite as
  a small append-only revision log: every save inserts a new revision and
  prunes the tail, so a bad write or a fat-fingered bulk edit can always
  be recovered from a recent prior revision.

KEY TABLE:
  snapshot_revisions:
    revision  INTEGER PRIMARY KEY (monotonic)
    document  TEXT (the JSON snapshot)
    saved_at  timestamp

WHY REVISIONS INSTEAD OF ONE ROW:
  The original tool this replaces shipped a whole "data recovery" screen
  because a single overwritten document is unrecoverable. Keeping a short
  revision history makes recovery a SELECT instead of a support incident.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the single writer
  - Better crash recovery

USAGE:
  store, err := sqlite.Open("./studio.db")
  if err != nil { log.Fatal(err) }
  defer store.Close()

  rev, err := store.Save(ctx, doc)
  doc, rev, err := store.LoadLatest(ctx)

SEE ALSO:
  - persist: Debounced saver feeding this store
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoSnapshot is returned when the database holds no revisions yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// DefaultKeepRevisions bounds the recovery history.
const DefaultKeepRevisions = 20

// Store persists snapshot documents with a bounded revision history.
type Store struct {
	db   *sql.DB
	keep int
}

// Open creates the store at the given path. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db, keep: DefaultKeepRevisions}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_revisions (
			revision  INTEGER PRIMARY KEY AUTOINCREMENT,
			document  TEXT NOT NULL,
			saved_at  TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Save appends a new revision and prunes history beyond the keep limit.
// Returns the new revision number.
func (s *Store) Save(ctx context.Context, document []byte) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_revisions (document, saved_at) VALUES (?, ?)`,
		string(document), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
	revision, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM snapshot_revisions WHERE revision <= ? - ?`, revision, s.keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune revisions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return revision, nil
}

// LoadLatest returns the newest stored document and its revision.
func (s *Store) LoadLatest(ctx context.Context) ([]byte, int64, error) {
	var (
		document string
		revision int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT revision, document FROM snapshot_revisions
		 ORDER BY revision DESC LIMIT 1`).Scan(&revision, &document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNoSnapshot
	}
	if err != nil {
		return nil, 0, err
	}
	return []byte(document), revision, nil
}

// LoadRevision returns one specific historical revision, for recovery.
func (s *Store) LoadRevision(ctx context.Context, revision int64) ([]byte, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM snapshot_revisions WHERE revision = ?`, revision).
		Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return []byte(document), nil
}

// RevisionInfo describes one recoverable revision.
type RevisionInfo struct {
	Revision int64     `json:"revision"`
	SavedAt  time.Time `json:"savedAt"`
	Size     int       `json:"size"`
}

// Revisions lists the stored history, newest first.
func (s *Store) Revisions(ctx context.Context) ([]RevisionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT revision, saved_at, length(document) FROM snapshot_revisions
		 ORDER BY revision DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []RevisionInfo
	for rows.Next() {
		var info RevisionInfo
		if err := rows.Scan(&info.Revision, &info.SavedAt, &info.Size); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
