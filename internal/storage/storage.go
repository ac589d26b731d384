package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	driverName, dsn, err := driverAndDSN(u, databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	store := &Store{
		db:     db,
		driver: driverName,
		logger: logger,
	}

	if isSQLiteDriver(driverName) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.applyConnectionTuning(pingCtx, driverName); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := store.Ready(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := initSchema(pingCtx, db, driverName); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ready(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("db not initialized")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return err
	}
	if one != 1 {
		return fmt.Errorf("unexpected SELECT 1 result: %d", one)
	}
	return nil
}

func (s *Store) applyConnectionTuning(ctx context.Context, driver string) error {
	if !isSQLiteDriver(driver) {
		return nil
	}
	// SQLite foreign keys are per-connection, so with max_open_conns=1 this is sufficient.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return err
	}
	return nil
}

// ExecScript runs an external declarative SQL source (schema or seed dump)
// verbatim against the store.
func (s *Store) ExecScript(ctx context.Context, script string) error {
	if s == nil || s.db == nil {
		return errors.New("db not initialized")
	}
	if strings.TrimSpace(script) == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("exec script: %w", err)
	}
	return nil
}

// PurgeAll deletes every row from every table while keeping the schema in
// place. Children go first so the deletes succeed regardless of the cascade
// policy in effect.
func (s *Store) PurgeAll(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("db not initialized")
	}

	tables := []string{
		"auth_tokens",
		"messages",
		"conversations",
		"groups_statuses",
		"groups_requests",
		"groups_members",
		"statuses_media",
		"statuses_tags",
		"rates",
		"comments",
		"statuses",
		"friendships",
		"groups",
		"users_profiles",
		"users_credentials",
		"media_items",
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+";"); err != nil {
			return fmt.Errorf("purge %s: %w", table, err)
		}
	}

	if isSQLiteDriver(s.driver) {
		// Reset the autoincrement counters; sqlite_sequence only exists once a
		// row has been inserted into an AUTOINCREMENT table.
		var name string
		err := tx.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence';`,
		).Scan(&name)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return err
		default:
			if _, err := tx.ExecContext(ctx, "DELETE FROM sqlite_sequence;"); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Destroy removes the backing SQLite file. It is a no-op for in-memory
// databases and non-sqlite URLs.
func Destroy(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "sqlite" && scheme != "sqlite3" {
		return nil
	}
	path, err := sqliteDSN(u, databaseURL)
	if err != nil {
		return err
	}
	if path == ":memory:" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func driverAndDSN(u *url.URL, raw string) (driver string, dsn string, _ error) {
	switch strings.ToLower(u.Scheme) {
	case "sqlite":
		dsn, err := sqliteDSN(u, raw)
		if err != nil {
			return "", "", err
		}
		return "sqlite", dsn, nil
	case "sqlite3":
		// The CGO driver, selectable explicitly for deployments that prefer it.
		dsn, err := sqliteDSN(u, raw)
		if err != nil {
			return "", "", err
		}
		return "sqlite3", dsn, nil
	case "postgres", "postgresql":
		return "pgx", raw, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme %q (expected sqlite:// or postgres://)", u.Scheme)
	}
}

func isSQLiteDriver(driver string) bool {
	return driver == "sqlite" || driver == "sqlite3"
}

func sqliteDSN(u *url.URL, raw string) (string, error) {
	// Supported:
	// - sqlite:///absolute/path.db
	// - sqlite:relative/path.db
	// - sqlite::memory:
	switch {
	case u.Opaque != "":
		return u.Opaque, nil
	case u.Path != "":
		return u.Path, nil
	default:
		return "", fmt.Errorf("invalid sqlite DATABASE_URL %q", raw)
	}
}

func RedactedDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid>"
	}

	switch strings.ToLower(u.Scheme) {
	case "sqlite", "sqlite3":
		// For sqlite, path is not sensitive.
		if u.Opaque != "" {
			return u.Scheme + ":" + u.Opaque
		}
		return u.Scheme + "://" + u.Path
	case "postgres", "postgresql":
		redacted := *u
		if redacted.User != nil {
			user := redacted.User.Username()
			redacted.User = url.UserPassword(user, "***")
		}
		return redacted.String()
	default:
		return "<unknown>"
	}
}
