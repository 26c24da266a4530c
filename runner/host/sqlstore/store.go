// Package sqlstore persists applet storage regions in a SQLite file.
//
// Every region shares one table keyed by (region, key), so regions stay
// isolated while a single file holds the whole board's storage.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/wippyai/firmlet/board"
	"github.com/wippyai/firmlet/errors"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o600
	opTimeout       = 5 * time.Second
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	region TEXT    NOT NULL,
	key    INTEGER NOT NULL,
	value  BLOB    NOT NULL,
	PRIMARY KEY (region, key)
)`

// Config selects the database file.
type Config struct {
	// Path of the database file. ":memory:" keeps everything in memory.
	Path string
	// BusyTimeout is how long a writer waits for a lock.
	BusyTimeout time.Duration
}

// Store is a board.Store backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ board.Store = (*Store)(nil)

// Open creates the directory and file as needed and applies the schema.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		return nil, errors.Config("storage path is empty", nil)
	}
	memory := cfg.Path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, errors.Storage("creating storage directory", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, cfg.BusyTimeout.Milliseconds())
	if !memory {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Storage("opening storage", err)
	}
	// one writer; an in-memory database also lives only as long as its
	// single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, errors.Storage("applying storage schema", err)
	}
	if !memory {
		_ = os.Chmod(cfg.Path, filePermissions)
	}

	logger.Debug("storage opened", zap.String("path", cfg.Path))
	return &Store{db: db, path: cfg.Path, logger: logger}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Storage("closing storage", err)
	}
	return nil
}

// Open returns the named region. Regions need no creation.
func (s *Store) Open(region string) (board.Region, error) {
	if region == "" {
		return nil, errors.InvalidInput(errors.PhaseStorage, "empty region name")
	}
	return &Region{store: s, name: region}, nil
}

// Region is one applet's key space.
type Region struct {
	store *Store
	name  string
}

func (r *Region) Insert(key uint16, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO entries (region, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (region, key) DO UPDATE SET value = excluded.value`,
		r.name, key, value)
	if err != nil {
		return errors.Storage(fmt.Sprintf("inserting %s/%d", r.name, key), err)
	}
	return nil
}

func (r *Region) Find(key uint16) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var value []byte
	err := r.store.db.QueryRowContext(ctx,
		`SELECT value FROM entries WHERE region = ? AND key = ?`, r.name, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage(fmt.Sprintf("finding %s/%d", r.name, key), err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (r *Region) Remove(key uint16) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := r.store.db.ExecContext(ctx,
		`DELETE FROM entries WHERE region = ? AND key = ?`, r.name, key); err != nil {
		return errors.Storage(fmt.Sprintf("removing %s/%d", r.name, key), err)
	}
	return nil
}
