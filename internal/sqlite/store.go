// File path: internal/sqlite/store.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nicodishanthj/ecomqa/internal/common"
)

// Store owns the disposable SQLite file the CSV sources are loaded into.
// The loader writes through writer; introspection and question queries go
// through reader, which is the same pool unless QueryOnly is set.
type Store struct {
	cfg Config

	mu     sync.RWMutex
	writer *sqlx.DB
	reader *sqlx.DB
}

// Open constructs a Store for the database file at path using the
// environment-derived pool configuration.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration. The
// file is created when missing; existing contents are left alone until
// Rebuild is called.
func OpenWithConfig(cfg Config) (*Store, error) {
	cfg.applyDefaults()
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	cfg.Path = abs
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &Store{cfg: cfg}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) connect() error {
	writer, err := openPool(s.cfg, false)
	if err != nil {
		return err
	}
	reader := writer
	if s.cfg.QueryOnly {
		reader, err = openPool(s.cfg, true)
		if err != nil {
			writer.Close()
			return err
		}
	}
	s.writer = writer
	s.reader = reader
	return nil
}

func openPool(cfg Config, queryOnly bool) (*sqlx.DB, error) {
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	db, err := sqlx.Open("sqlite", fileDSN(cfg.Path, busy, queryOnly))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// fileDSN builds a file: URI for path. The path is percent-encoded so '?',
// '#' and '%' in file names survive URI parsing.
func fileDSN(path string, busyMillis int, queryOnly bool) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	query := fmt.Sprintf("_pragma=busy_timeout(%d)", busyMillis)
	if queryOnly {
		query += "&_pragma=query_only(1)"
	}
	u := url.URL{Scheme: "file", Path: slashed, RawQuery: query}
	return u.String()
}

// Path returns the absolute path of the database file.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.cfg.Path
}

// QueryOnly reports whether question queries run on a read-only connection.
func (s *Store) QueryOnly() bool {
	return s != nil && s.cfg.QueryOnly
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnect()
}

func (s *Store) disconnect() error {
	var err error
	if s.reader != nil && s.reader != s.writer {
		err = errors.Join(err, s.reader.Close())
	}
	if s.writer != nil {
		err = errors.Join(err, s.writer.Close())
	}
	s.reader = nil
	s.writer = nil
	return err
}

// Rebuild deletes the database file, recreates it and loads every source
// into it. The returned report is always non-nil; err is a *LoadError when a
// source could not be loaded, in which case earlier tables stay loaded.
func (s *Store) Rebuild(ctx context.Context, sources []Source) (*LoadReport, error) {
	if s == nil {
		return nil, ErrStoreClosed
	}
	logger := common.Logger()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.disconnect(); err != nil {
		logger.Warn("sqlite: closing previous store failed", "path", s.cfg.Path, "error", err)
	}
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if err := os.Remove(s.cfg.Path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &LoadReport{StartedAt: time.Now().UTC(), Failed: true}, fmt.Errorf("remove previous store: %w", err)
		}
	}
	if err := s.connect(); err != nil {
		return &LoadReport{StartedAt: time.Now().UTC(), Failed: true}, err
	}
	logger.Info("sqlite: store recreated", "path", s.cfg.Path, "query_only", s.cfg.QueryOnly)
	return s.loadSources(ctx, sources)
}

func (s *Store) readDB() (*sqlx.DB, error) {
	if s == nil || s.reader == nil {
		return nil, ErrStoreClosed
	}
	return s.reader, nil
}
