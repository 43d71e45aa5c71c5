package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eugenenazirov/sessionconf/internal/dao"
	"github.com/eugenenazirov/sessionconf/internal/session"
)

// updated_at holds unix nanoseconds written by the storage clock.
const schema = `
CREATE TABLE IF NOT EXISTS session_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	cache_sync INTEGER NOT NULL DEFAULT 0,
	naming_url TEXT,
	updated_at INTEGER NOT NULL DEFAULT 0
);
`

const seedRow = `INSERT OR IGNORE INTO session_config (id, cache_sync, naming_url, updated_at) VALUES (1, 0, NULL, ?)`

const driverParams = "_busy_timeout=5000&_journal_mode=WAL"

// SQLiteStorage persists the descriptor in a single-row SQLite table.
// A NULL naming_url means the URL is unset.
type SQLiteStorage struct {
	db    *sql.DB
	clock func() time.Time
}

// NewSQLiteStorage opens the database at path and runs migrations.
func NewSQLiteStorage(path string, opts ...Option) (*SQLiteStorage, error) {
	o := buildOptions(opts)

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, dao.Wrap(fmt.Sprintf("open database %s", path), err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, dao.Wrap("run session_config migration", err)
	}
	if _, err := db.Exec(seedRow, o.clock().UnixNano()); err != nil {
		_ = db.Close()
		return nil, dao.Wrap("seed session_config", err)
	}

	return &SQLiteStorage{db: db, clock: o.clock}, nil
}

// dsn appends the driver parameters, keeping any query the path already carries.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + driverParams
}

// GetDescriptor reads the stored descriptor.
func (s *SQLiteStorage) GetDescriptor(ctx context.Context) (session.Descriptor, error) {
	var (
		cacheSync bool
		namingURL sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT cache_sync, naming_url FROM session_config WHERE id = 1`,
	).Scan(&cacheSync, &namingURL)
	if err != nil {
		return session.Descriptor{}, dao.Wrap("read session config", err)
	}

	d := session.DefaultDescriptor()
	d.Commands.SetCacheSync(cacheSync)
	if namingURL.Valid {
		d.NamingService.SetURL(namingURL.String)
	}
	return d, nil
}

// UpdatedAt reads the last write time recorded in the database.
func (s *SQLiteStorage) UpdatedAt(ctx context.Context) (time.Time, error) {
	var nanos int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM session_config WHERE id = 1`,
	).Scan(&nanos)
	if err != nil {
		return time.Time{}, dao.Wrap("read session config timestamp", err)
	}
	return time.Unix(0, nanos).UTC(), nil
}

// SetCommands stores the cache sync flag.
func (s *SQLiteStorage) SetCommands(ctx context.Context, commands session.CommandsConfig) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE session_config SET cache_sync = ?, updated_at = ? WHERE id = 1`,
		commands.CacheSync(), s.clock().UnixNano(),
	)
	if err != nil {
		return dao.Wrap("update commands config", err)
	}
	return nil
}

// SetNamingService stores the naming URL, writing NULL when it is unset.
func (s *SQLiteStorage) SetNamingService(ctx context.Context, naming session.RMIRegistryNamingServiceConfig) error {
	var namingURL sql.NullString
	if url, ok := naming.URL(); ok {
		namingURL = sql.NullString{String: url, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE session_config SET naming_url = ?, updated_at = ? WHERE id = 1`,
		namingURL, s.clock().UnixNano(),
	)
	if err != nil {
		return dao.Wrap("update naming service config", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return dao.Wrap("close database", err)
	}
	return nil
}
