package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"
)

// Open connects to Postgres when dsn is set, otherwise to a SQLite file at
// sqlitePath. The schema is created if missing.
func Open(ctx context.Context, dsn, sqlitePath string) (*JobRepo, error) {
	var (
		db  *sql.DB
		d   Dialect
		err error
	)
	switch {
	case dsn != "":
		db, err = sql.Open("pgx", dsn)
		d = Postgres
	case sqlitePath != "":
		db, err = sql.Open("sqlite", sqlitePath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
		d = SQLite
	default:
		return nil, fmt.Errorf("store: neither DATABASE_URL nor SQLITE_PATH is set")
	}
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if d == Postgres {
		// пул под ~20 rps
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)
	} else {
		db.SetMaxOpenConns(1)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	if d == Postgres {
		log.Printf("db connected: %s", SafeDSNSummary(dsn))
	} else {
		log.Printf("db connected: sqlite %s", sqlitePath)
	}

	repo := NewJobRepo(db, d)
	if err := repo.Migrate(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// ResolveDSN prefers DATABASE_URL and otherwise builds a DSN from
// POSTGRES_* / PG* variables. Returns "" when no Postgres is configured.
func ResolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	if strings.TrimSpace(os.Getenv("PGHOST")) == "" && strings.TrimSpace(os.Getenv("POSTGRES_DB")) == "" {
		return ""
	}
	user := getenvDefault("POSTGRES_USER", "examsolver")
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := getenvDefault("PGHOST", "db")
	port := getenvDefault("PGPORT", "5432")
	name := getenvDefault("POSTGRES_DB", "examsolver")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// SafeDSNSummary returns host/db/user without the password, for logs.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
