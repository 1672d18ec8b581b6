package runstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Backend identifies which engine a store runs on.
type Backend int

const (
	BackendSQLite Backend = iota
	BackendPostgres
)

func (b Backend) String() string {
	if b == BackendPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Options selects the engine. A non-empty DatabaseURL picks Postgres with
// SQLite as the fallback; otherwise SQLite is used directly.
type Options struct {
	DatabaseURL string
	SQLitePath  string
}

// Conn is the tagged result of Open: which engine actually came up, and
// whether it was the fallback rather than the configured primary.
type Conn struct {
	Store    *Store
	Backend  Backend
	FellBack bool
}

// Open connects to the configured engine. When the Postgres primary is
// unreachable it falls back to the embedded engine so ingestion stays
// available; the divergence window until the primary recovers is accepted.
func Open(opts Options, log *slog.Logger) (*Conn, error) {
	if opts.DatabaseURL != "" {
		store, err := openPostgres(opts.DatabaseURL)
		if err == nil {
			return &Conn{Store: store, Backend: BackendPostgres}, nil
		}
		log.Warn("postgres unavailable, falling back to sqlite",
			"error", err, "sqlite_path", opts.SQLitePath)

		store, err = openSQLite(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open fallback sqlite: %w", err)
		}
		return &Conn{Store: store, Backend: BackendSQLite, FellBack: true}, nil
	}

	store, err := openSQLite(opts.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Conn{Store: store, Backend: BackendSQLite}, nil
}

func openSQLite(path string) (*Store, error) {
	if path == "" {
		path = "data/ci_runs.db"
	}

	// The on-disk store's parent directory must exist before first use.
	if !strings.Contains(path, ":memory:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	dsn := "file:" + path + "?_time_format=sqlite&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, backend: BackendSQLite}, nil
}

func openPostgres(url string) (*Store, error) {
	db, err := sqlx.Connect("pgx", url)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaPostgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, backend: BackendPostgres}, nil
}
