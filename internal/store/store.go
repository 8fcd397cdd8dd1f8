// Package store persists extractions, timeline facts, keyword weights and
// custom patterns in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by name
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Queries runs the repository queries against a database or a transaction
type Queries struct {
	ext    sqlx.ExtContext
	driver string
}

// Store is the durable store
type Store struct {
	*Queries
	db     *sqlx.DB
	locks  *keyedMutex
	logger *zap.Logger
}

// Tx is a store transaction
type Tx struct {
	*Queries
	tx *sqlx.Tx
}

// Open connects to the configured database and, if enabled, applies the
// embedded migrations
func Open(ctx context.Context, cfg model.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(cfg.Driver)
	dsn := cfg.DSN
	switch driver {
	case DriverSQLite, "sqlite3":
		driver = DriverSQLite
		if dsn == "" {
			dsn = ":memory:"
		}
		if !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "_pragma") {
			dsn += sep(dsn) + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
	case DriverPostgres, "postgresql", "pgx":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, wrap("open database", err)
	}
	if driver == DriverSQLite {
		// One connection: an in-memory database lives in its connection, and
		// a single writer avoids SQLITE_BUSY between our own goroutines.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrap("ping database", err)
	}

	s := &Store{
		Queries: &Queries{ext: db, driver: driver},
		db:      db,
		locks:   newKeyedMutex(),
		logger:  logger,
	}

	if cfg.Migrate {
		if err := s.Migrate(ctx, dsn); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("store opened", zap.String("driver", driver), zap.Bool("migrated", cfg.Migrate))
	return s, nil
}

func sep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the normalised driver name
func (s *Store) Driver() string {
	return s.driver
}

// InTx runs fn in a transaction, committing when it returns nil
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("begin transaction", err)
	}

	if err := fn(&Tx{Queries: &Queries{ext: tx, driver: s.driver}, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

// WithGroupLock runs fn in a transaction that is serialised with every other
// writer of the same dedup group, in this process and, on PostgreSQL, across
// processes.
func (s *Store) WithGroupLock(ctx context.Context, key model.GroupKey, fn func(*Tx) error) error {
	unlock := s.locks.Lock(key.String())
	defer unlock()

	return s.InTx(ctx, func(tx *Tx) error {
		if s.driver == DriverPostgres {
			if _, err := tx.ext.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
				return wrap("lock group", err)
			}
		}
		return fn(tx)
	})
}

// RecordFeedback runs the counter update in its own transaction
func (s *Store) RecordFeedback(ctx context.Context, category model.Category, keyword string, approved bool,
	modifier func(approvals, rejections int) float64, now time.Time) (*model.WeightEntry, error) {
	var entry *model.WeightEntry
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		entry, err = tx.RecordFeedback(ctx, category, keyword, approved, modifier, now)
		return err
	})
	return entry, err
}

// wrap tags err as a persistence failure; missing rows become ErrNotFound
func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrPersistence, err)
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key and returns its release function
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
