package stigmergy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go embedded driver, registered as "sqlite"

	"github.com/obsidian-forge/hfo/pkg/herrors"
)

// Event is one row of the append-only log (spec.md §3).
type Event struct {
	ID        int64
	EventType string
	Timestamp string
	Subject   string
	Source    string
	// DataJSON is the full canonical envelope as written by the Publisher
	// (specversion/id/type/source/subject/time/timestamp/datacontenttype/
	// traceparent/data — §6.1), not just the payload. Decode it with
	// DecodeEnvelope to reach env.Data.
	DataJSON    string
	ContentHash string
}

// Store is the C1 Event Log Store: append-only, content-addressed,
// single-writer-friendly, multi-reader.
type Store struct {
	db         *sql.DB
	maxRetries int
}

// Config controls how the embedded store is opened.
type Config struct {
	// Path is the sqlite file path, or ":memory:" for an ephemeral store
	// (tests, dry-run invocations).
	Path string

	// BusyTimeout bounds how long a writer waits on SQLITE_BUSY before
	// failing, on top of this package's own retry loop in Append.
	BusyTimeout time.Duration

	// MaxRetries bounds Append's exponential backoff on write contention
	// (§4.1 failure modes).
	MaxRetries int
}

// DefaultConfig returns sane defaults for opening the event log.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		MaxRetries:  5,
	}
}

// Open opens (creating if necessary) the embedded event log and applies the
// schema idempotently.
func Open(cfg Config) (*Store, error) {
	dsn := cfg.Path
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout.Milliseconds())
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("stigmergy: open store: %w", err)
	}
	// Single physical connection: sqlite serializes writers anyway, and
	// a shared in-memory store must not be partitioned across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("stigmergy: apply schema: %w", err)
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Store{db: db, maxRetries: cfg.MaxRetries}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Append inserts an event if content_hash is not already present (I1). It
// returns the assigned id, or 0 when the insert was a no-op dedup (I1).
// Write contention (SQLITE_BUSY) is retried with exponential backoff for up
// to Config.MaxRetries attempts (§4.1); persistent failure surfaces a typed UNREACHABLE
// error so the caller (the Publisher) can decide whether to drop the event
// or buffer it in memory.
func (s *Store) Append(ctx context.Context, eventType, timestamp, subject, source, dataJSON, contentHash string) (int64, error) {
	maxAttempts := s.maxRetries
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id, err := s.appendOnce(ctx, eventType, timestamp, subject, source, dataJSON, contentHash)
		if err == nil {
			return id, nil
		}
		if !isBusy(err) {
			return 0, herrors.Wrap(herrors.KindUnreachable, "append event", err)
		}
		lastErr = err
		backoff := time.Duration(1<<attempt) * 25 * time.Millisecond
		backoff += time.Duration(rand.IntN(10)) * time.Millisecond
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return 0, herrors.Wrap(herrors.KindUnreachable, "append event: contention ceiling reached", lastErr)
}

func (s *Store) appendOnce(ctx context.Context, eventType, timestamp, subject, source, dataJSON, contentHash string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (event_type, timestamp, subject, source, data_json, content_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		eventType, timestamp, subject, source, dataJSON, contentHash)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		// Dedup: content_hash already present. Not an error (I1).
		return 0, tx.Commit()
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func isBusy(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SQLITE_BUSY")
}

// QueryByPattern returns events whose event_type matches the glob pattern
// (SQLite GLOB semantics: '*' and '?' wildcards), newest-first, optionally
// restricted to the last sinceMinutes minutes (0 = no time restriction).
func (s *Store) QueryByPattern(ctx context.Context, pattern string, sinceMinutes int, limit int) ([]Event, error) {
	query := `SELECT id, event_type, timestamp, subject, source, data_json, content_hash
	          FROM events WHERE event_type GLOB ?`
	args := []any{pattern}
	if sinceMinutes > 0 {
		query += ` AND timestamp >= ?`
		args = append(args, cutoff(sinceMinutes))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindUnreachable, "query by pattern", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// CountByPattern mirrors QueryByPattern but returns only the match count.
func (s *Store) CountByPattern(ctx context.Context, pattern string, sinceMinutes int) (int, error) {
	query := `SELECT COUNT(*) FROM events WHERE event_type GLOB ?`
	args := []any{pattern}
	if sinceMinutes > 0 {
		query += ` AND timestamp >= ?`
		args = append(args, cutoff(sinceMinutes))
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, herrors.Wrap(herrors.KindUnreachable, "count by pattern", err)
	}
	return count, nil
}

// ReadByIDRange returns up to limit events with id > minIDExclusive, oldest
// first — the shape every high-water-mark consumer (§9) reads in.
func (s *Store) ReadByIDRange(ctx context.Context, minIDExclusive int64, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_type, timestamp, subject, source, data_json, content_hash
		 FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`, minIDExclusive, limit)
	if err != nil {
		return nil, herrors.Wrap(herrors.KindUnreachable, "read by id range", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ReadLastOfType returns the most recently appended event of the given
// exact type, or (Event{}, false, nil) if none exists.
func (s *Store) ReadLastOfType(ctx context.Context, eventType string) (Event, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, event_type, timestamp, subject, source, data_json, content_hash
		 FROM events WHERE event_type = ? ORDER BY id DESC LIMIT 1`, eventType)
	var e Event
	err := row.Scan(&e.ID, &e.EventType, &e.Timestamp, &e.Subject, &e.Source, &e.DataJSON, &e.ContentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, herrors.Wrap(herrors.KindUnreachable, "read last of type", err)
	}
	return e, true, nil
}

func cutoff(sinceMinutes int) string {
	return time.Now().UTC().Add(-time.Duration(sinceMinutes) * time.Minute).Format(time.RFC3339Nano)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventType, &e.Timestamp, &e.Subject, &e.Source, &e.DataJSON, &e.ContentHash); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats summarizes the log for resource-probe reporting (§6.2 ssot block).
type Stats struct {
	EventCount int
	DocCount   int // document ingestion is out of scope (§1); always 0 here.
	FTSOk      bool
}

// Stats reports aggregate log statistics. FTSOk is always true: this store
// has no full-text index to degrade (document ingestion is out of scope).
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return Stats{}, herrors.Wrap(herrors.KindUnreachable, "stats", err)
	}
	return Stats{EventCount: count, FTSOk: true}, nil
}
