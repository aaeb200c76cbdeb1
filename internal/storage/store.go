// Package storage persists charge cycles and flight logs in a relational
// database. DuckDB, SQLite and PostgreSQL are supported through database/sql.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrNotFound          = errors.New("not found")
)

// Driver names as accepted by Open.
const (
	DriverDuckDB   = "duckdb"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config selects and tunes the database.
type Config struct {
	Driver string
	// Path is the database file for duckdb and sqlite. Empty means in-memory.
	Path string
	// DSN is the connection string for pgx.
	DSN string

	DuckDBThreads     int
	DuckDBMemoryLimit string
}

// Store is the relational log store.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// Open connects to the configured database and creates or extends the
// schema.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("storage")

	name := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if name == "" {
		name = DriverDuckDB
	}

	var (
		db  *sql.DB
		err error
	)
	switch name {
	case DriverDuckDB:
		db, err = openDuckDB(cfg)
	case DriverSQLite:
		db, err = sql.Open("sqlite", sqlitePath(cfg.Path))
	case DriverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("pgx driver needs a DSN")
		}
		db, err = sql.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", name, err)
	}

	// single writer for the embedded engines
	switch name {
	case DriverDuckDB, DriverSQLite:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		db.SetMaxOpenConns(4)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", name, err)
	}

	s := &Store{db: db, dialect: dialectFor(name), logger: logger}
	if name == DriverSQLite {
		s.tuneSQLite(ctx)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("database ready", zap.String("driver", name), zap.String("path", cfg.Path))
	return s, nil
}

func openDuckDB(cfg Config) (*sql.DB, error) {
	pragmas := make([]string, 0, 3)
	if cfg.DuckDBMemoryLimit != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", cfg.DuckDBMemoryLimit))
	}
	if cfg.DuckDBThreads > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", cfg.DuckDBThreads))
	}
	pragmas = append(pragmas, "PRAGMA enable_progress_bar=false")

	connector, err := duckdb.NewConnector(cfg.Path, func(execer driver.ExecerContext) error {
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func sqlitePath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}

func (s *Store) tuneSQLite(ctx context.Context) {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			s.logger.Warn("sqlite pragma skipped", zap.String("pragma", pragma), zap.Error(err))
		}
	}
}

// Driver returns the normalized driver name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// q adapts a ?-placeholder query to the dialect.
func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}
