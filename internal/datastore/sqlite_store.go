package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/models"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS urls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	discovered_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS endpoints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	param TEXT NOT NULL,
	UNIQUE(path, param)
);
CREATE TABLE IF NOT EXISTS findings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	param TEXT,
	type TEXT NOT NULL,
	platform TEXT,
	confidence INTEGER NOT NULL,
	details TEXT,
	scanner TEXT,
	verified INTEGER NOT NULL DEFAULT 0,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_findings_type ON findings (type);
`

// Store is the persistence handle for one run. It is opened once in main and
// passed to whoever needs it; nothing reaches it through package state.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
	closed bool
}

// NewStore opens (or creates) the SQLite database at dbPath and ensures the schema exists.
func NewStore(dbPath string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, common.NewValidationError("sqlite_db_path", dbPath, "database path cannot be empty")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database at %s: %w", dbPath, err)
	}
	// Workers write concurrently; a single connection serializes them instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		path:   dbPath,
		logger: logger.With().Str("component", "Store").Logger(),
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Info().Str("path", dbPath).Msg("SQLite store initialized")
	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// SaveURLs records discovered URLs, ignoring ones already stored. Returns the number inserted.
func (s *Store) SaveURLs(ctx context.Context, urls []string) (int, error) {
	return s.insertBatch(ctx, "INSERT OR IGNORE INTO urls (url) VALUES (?)", len(urls), func(stmt *sql.Stmt, i int) (sql.Result, error) {
		return stmt.ExecContext(ctx, urls[i])
	})
}

// SaveEndpoints records every (endpoint path, parameter) pair, ignoring duplicates.
func (s *Store) SaveEndpoints(ctx context.Context, endpoints []models.Endpoint) (int, error) {
	type row struct{ path, param string }
	var rows []row
	for _, ep := range endpoints {
		for _, p := range ep.Params {
			rows = append(rows, row{ep.URL, p})
		}
	}

	return s.insertBatch(ctx, "INSERT OR IGNORE INTO endpoints (path, param) VALUES (?, ?)", len(rows), func(stmt *sql.Stmt, i int) (sql.Result, error) {
		return stmt.ExecContext(ctx, rows[i].path, rows[i].param)
	})
}

// SaveFinding stores one verified finding.
func (s *Store) SaveFinding(ctx context.Context, f models.VerifiedFinding) error {
	ts := f.VerifiedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO findings (url, param, type, platform, confidence, details, scanner, verified, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.URL, f.Param, string(f.Type), f.Platform, f.Confidence, f.DetailsString(), f.Scanner, boolToInt(f.Verified), ts.UTC(),
	)
	if err != nil {
		return common.WrapErrorf(err, "failed to save finding for %s", f.URL)
	}

	s.logger.Debug().Str("url", f.URL).Str("type", string(f.Type)).Msg("Finding saved")
	return nil
}

// Findings returns stored findings in insertion order.
func (s *Store) Findings(ctx context.Context) ([]models.VerifiedFinding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, param, type, platform, confidence, details, scanner, verified, timestamp
		 FROM findings ORDER BY id ASC`)
	if err != nil {
		return nil, common.WrapError(err, "failed to query findings")
	}
	defer func() { _ = rows.Close() }()

	var out []models.VerifiedFinding
	for rows.Next() {
		var (
			f                                 models.VerifiedFinding
			vulnType                          string
			param, platform, details, scanner sql.NullString
			verified                          int
			ts                                time.Time
		)
		if err := rows.Scan(&f.URL, &param, &vulnType, &platform, &f.Confidence, &details, &scanner, &verified, &ts); err != nil {
			return nil, common.WrapError(err, "failed to scan finding row")
		}
		f.Param = param.String
		f.Type = models.VulnType(vulnType)
		f.Platform = platform.String
		f.Scanner = scanner.String
		f.Verified = verified != 0
		f.VerifiedAt = ts
		f.DetectedAt = ts
		if details.String != "" {
			f.Details = strings.Split(details.String, "; ")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Count returns the number of rows in one of the store's tables.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "urls", "endpoints", "findings":
	default:
		return 0, common.NewValidationError("table", table, "unknown table")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, common.WrapErrorf(err, "failed to count %s", table)
	}
	return n, nil
}

// Close releases the database. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) insertBatch(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) (sql.Result, error)) (int, error) {
	if n == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, common.WrapError(err, "failed to begin transaction")
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return 0, common.WrapError(err, "failed to prepare statement")
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := 0; i < n; i++ {
		res, err := exec(stmt, i)
		if err != nil {
			_ = tx.Rollback()
			return 0, common.WrapError(err, "failed to insert row")
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, common.WrapError(err, "failed to commit transaction")
	}
	return inserted, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
