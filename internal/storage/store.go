package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	defaultBusyTimeout = 5 * time.Second
)

type Options struct {
	Path        string
	BusyTimeout time.Duration
	Logger      *slog.Logger
}

// Store is an open point of sale database. Repositories are safe for
// concurrent use; every committed write notifies live subscriptions on the
// tables it touched.
type Store struct {
	db        *sqlx.DB
	path      string
	feed      *changeFeed
	logger    *slog.Logger
	migration MigrationReport
	closeOnce sync.Once
	closeErr  error

	Products        ProductRepository
	Categories      CategoryRepository
	SalesOrders     SalesOrderRepository
	SalesOrderItems SalesOrderItemRepository
}

func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("open storage: empty path")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return nil, fmt.Errorf("open storage: create parent dir: %w", err)
	}

	db, err := sqlx.Open(driverName, buildDSN(opts.Path, opts.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open storage: ping: %w", err)
	}

	report, err := RunMigrations(ctx, db.DB, DefaultMigrations(), logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	feed := newChangeFeed()
	store := &Store{
		db:        db,
		path:      opts.Path,
		feed:      feed,
		logger:    logger,
		migration: report,
	}
	store.Products = &productRepository{db: db, feed: feed}
	store.Categories = &categoryRepository{db: db, feed: feed}
	store.SalesOrders = &salesOrderRepository{db: db, feed: feed}
	store.SalesOrderItems = &salesOrderItemRepository{db: db, feed: feed}

	logger.Debug("storage opened", "path", opts.Path, "schema_version", report.ToVersion)
	return store, nil
}

// Close stops all live subscriptions and then closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.feed.shutdown()
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *Store) DB() *sql.DB {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.DB
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Migration reports what Open did to the on-disk schema.
func (s *Store) Migration() MigrationReport {
	if s == nil {
		return MigrationReport{}
	}
	return s.migration
}

// SchemaVersion reads the stamped version from the file.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return readSchemaVersion(ctx, s.db.DB)
}

// AppliedMigration is one row of the schema_migrations ledger.
type AppliedMigration struct {
	Version     int    `db:"version" json:"version"`
	Description string `db:"description" json:"description"`
	AppliedAt   string `db:"applied_at" json:"applied_at"`
}

// MigrationHistory lists the ledger oldest first.
func (s *Store) MigrationHistory(ctx context.Context) ([]AppliedMigration, error) {
	var rows []AppliedMigration
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT version, description, applied_at FROM schema_migrations
		ORDER BY version ASC
	`); err != nil {
		return nil, fmt.Errorf("list schema migrations: %w", err)
	}
	return rows, nil
}

// ActiveSubscriptions counts live subscriptions that have not been closed.
func (s *Store) ActiveSubscriptions() int {
	if s == nil || s.feed == nil {
		return 0
	}
	return s.feed.active()
}

func buildDSN(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_txlock", "immediate")
	return path + "?" + q.Encode()
}
