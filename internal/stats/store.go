// Package stats keeps anonymous usage statistics in a sqlite database.
package stats

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
	"pkt.systems/pslog"

	"pkt.systems/termfolio/schema"
)

var nowFunc = time.Now

const schemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS commands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	variant TEXT NOT NULL,
	transport TEXT NOT NULL,
	command TEXT NOT NULL,
	outcome TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS commands_created_at ON commands(created_at);
CREATE TABLE IF NOT EXISTS visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_addr TEXT NOT NULL,
	transport TEXT NOT NULL,
	variant TEXT NOT NULL,
	path TEXT,
	user_agent TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS visits_created_at ON visits(created_at);
`

// Options configures Open.
type Options struct {
	Path string
	// Salt is mixed into hashed addresses. When empty a random salt is
	// generated once and kept in the database.
	Salt   string
	Logger pslog.Logger
}

// Visit is one recorded page view or SSH connection.
type Visit struct {
	RemoteAddr string
	Transport  schema.Transport
	Variant    schema.VariantName
	Path       string
	UserAgent  string
}

// CommandCount is one row of TopCommands.
type CommandCount struct {
	Command string
	Count   int64
}

// Summary aggregates the store.
type Summary struct {
	Commands       int64
	NotFound       int64
	Sessions       int64
	Visits         int64
	UniqueVisitors int64
	VisitsToday    int64
	ByTransport    map[schema.Transport]int64
}

// Store is a sqlite backed statistics store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	salt   string
	logger pslog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open opens or creates the database at opts.Path.
func Open(ctx context.Context, opts Options) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, errors.New("stats: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("stats: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("stats: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("stats: pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("stats: migrate: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	store := &Store{db: db, logger: logger}
	store.salt = opts.Salt
	if store.salt == "" {
		salt, err := store.storedSalt(ctx)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		store.salt = salt
	}
	logger.Debug("stats store opened", "path", path)
	return store, nil
}

func (s *Store) storedSalt(ctx context.Context) (string, error) {
	var salt string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'salt'`).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("stats: read salt: %w", err)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("stats: generate salt: %w", err)
	}
	salt = hex.EncodeToString(buf)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('salt', ?)`, salt); err != nil {
		return "", fmt.Errorf("stats: store salt: %w", err)
	}
	return salt, nil
}

// HashAddress returns the salted hash stored in place of a remote address.
// The port is ignored so reconnects from one host count once.
func (s *Store) HashAddress(addr string) string {
	host := strings.TrimSpace(addr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	sum := sha256.Sum256([]byte(host + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// RecordCommand stores one executed command.
func (s *Store) RecordCommand(ctx context.Context, record schema.CommandRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commands (session_id, variant, transport, command, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(record.SessionID), string(record.Variant), string(record.Transport),
		record.Command, string(record.Outcome), nowFunc().UnixMilli())
	if err != nil {
		return fmt.Errorf("stats: record command: %w", err)
	}
	return nil
}

// RecordVisit stores one visit with the remote address hashed.
func (s *Store) RecordVisit(ctx context.Context, visit Visit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (hashed_addr, transport, variant, path, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.HashAddress(visit.RemoteAddr), string(visit.Transport), string(visit.Variant),
		visit.Path, visit.UserAgent, nowFunc().UnixMilli())
	if err != nil {
		return fmt.Errorf("stats: record visit: %w", err)
	}
	return nil
}

// TopCommands returns the most executed commands, most frequent first.
func (s *Store) TopCommands(ctx context.Context, limit int) ([]CommandCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT command, COUNT(*) AS n
		FROM commands
		GROUP BY command
		ORDER BY n DESC, command ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("stats: top commands: %w", err)
	}
	defer rows.Close()
	var out []CommandCount
	for rows.Next() {
		var row CommandCount
		if err := rows.Scan(&row.Command, &row.Count); err != nil {
			return nil, fmt.Errorf("stats: scan top commands: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Summary aggregates command and visit counters.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	summary := Summary{ByTransport: map[schema.Transport]int64{}}
	now := nowFunc()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	counters := []struct {
		query string
		args  []any
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM commands`, nil, &summary.Commands},
		{`SELECT COUNT(*) FROM commands WHERE outcome = ?`, []any{string(schema.OutcomeNotFound)}, &summary.NotFound},
		{`SELECT COUNT(DISTINCT session_id) FROM commands`, nil, &summary.Sessions},
		{`SELECT COUNT(*) FROM visits`, nil, &summary.Visits},
		{`SELECT COUNT(DISTINCT hashed_addr) FROM visits`, nil, &summary.UniqueVisitors},
		{`SELECT COUNT(*) FROM visits WHERE created_at >= ?`, []any{midnight.UnixMilli()}, &summary.VisitsToday},
	}
	for _, counter := range counters {
		if err := s.db.QueryRowContext(ctx, counter.query, counter.args...).Scan(counter.dst); err != nil {
			return Summary{}, fmt.Errorf("stats: summary: %w", err)
		}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT transport, COUNT(*) FROM visits GROUP BY transport`)
	if err != nil {
		return Summary{}, fmt.Errorf("stats: summary transports: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var transport string
		var n int64
		if err := rows.Scan(&transport, &n); err != nil {
			return Summary{}, fmt.Errorf("stats: scan transports: %w", err)
		}
		summary.ByTransport[schema.Transport(transport)] = n
	}
	return summary, rows.Err()
}

// Prune deletes rows older than maxAge and returns how many were removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := nowFunc().Add(-maxAge).UnixMilli()
	var removed int64
	for _, table := range []string{"commands", "visits"} {
		res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", cutoff)
		if err != nil {
			return removed, fmt.Errorf("stats: prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	if removed > 0 {
		s.logger.Info("stats pruned", "rows", removed)
	}
	return removed, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
