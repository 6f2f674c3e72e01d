package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect selects placeholder syntax for the SQL backends.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const schema = `
create table if not exists solve_jobs (
  id         text primary key,
  status     text    not null,
  answer     text    not null default '',
  message    text    not null default '',
  debug      text    not null default '',
  attempts   integer not null default 0,
  budget     integer not null default 0,
  updated_at bigint  not null
);
create index if not exists solve_jobs_status_updated on solve_jobs (status, updated_at);`

// JobRepo is a JobStore over database/sql (pgx or modernc sqlite).
type JobRepo struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewJobRepo(db *sql.DB, d Dialect) *JobRepo { return &JobRepo{DB: db, Dialect: d} }

// Migrate создаёт таблицу solve_jobs, если её ещё нет.
func (r *JobRepo) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate solve_jobs: %w", err)
		}
	}
	return nil
}

// Put перезаписывает запись целиком (upsert по id).
func (r *JobRepo) Put(ctx context.Context, j Job) error {
	const q = `
insert into solve_jobs (id, status, answer, message, debug, attempts, budget, updated_at)
values (?,?,?,?,?,?,?,?)
on conflict (id) do update
set status = excluded.status,
    answer = excluded.answer,
    message = excluded.message,
    debug = excluded.debug,
    attempts = excluded.attempts,
    budget = excluded.budget,
    updated_at = excluded.updated_at`
	_, err := r.DB.ExecContext(ctx, r.rebind(q),
		j.ID, string(j.Status), j.Answer, j.Message, string(j.Debug),
		j.Attempts, j.Budget, j.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put job %s: %w", j.ID, err)
	}
	return nil
}

func (r *JobRepo) Advance(ctx context.Context, j Job) (bool, error) {
	return r.replaceRunning(ctx, j, time.Time{})
}

func (r *JobRepo) CloseStale(ctx context.Context, j Job, before time.Time) (bool, error) {
	return r.replaceRunning(ctx, j, before)
}

// replaceRunning обновляет запись одним условным update, без чтения перед записью.
func (r *JobRepo) replaceRunning(ctx context.Context, j Job, before time.Time) (bool, error) {
	q := `
update solve_jobs
set status = ?, answer = ?, message = ?, debug = ?, attempts = ?, budget = ?, updated_at = ?
where id = ? and status = ?`
	args := []any{
		string(j.Status), j.Answer, j.Message, string(j.Debug), j.Attempts, j.Budget, j.UpdatedAt.UTC().UnixMilli(),
		j.ID, string(StatusRunning),
	}
	if !before.IsZero() {
		q += ` and updated_at < ?`
		args = append(args, before.UTC().UnixMilli())
	}
	res, err := r.DB.ExecContext(ctx, r.rebind(q), args...)
	if err != nil {
		return false, fmt.Errorf("update job %s: %w", j.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update job %s: %w", j.ID, err)
	}
	return n > 0, nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (Job, error) {
	const q = `
select id, status, answer, message, debug, attempts, budget, updated_at
from solve_jobs
where id = ?`
	j, err := scanJob(r.DB.QueryRowContext(ctx, r.rebind(q), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return j, err
}

func (r *JobRepo) ListStale(ctx context.Context, before time.Time) ([]Job, error) {
	const q = `
select id, status, answer, message, debug, attempts, budget, updated_at
from solve_jobs
where status = ? and updated_at < ?
order by id`
	rows, err := r.DB.QueryContext(ctx, r.rebind(q), string(StatusRunning), before.UTC().UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Ping проверяет соединение с БД (для /healthz).
func (r *JobRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		j      Job
		status string
		debug  string
		ts     int64
	)
	if err := row.Scan(&j.ID, &status, &j.Answer, &j.Message, &debug, &j.Attempts, &j.Budget, &ts); err != nil {
		return Job{}, err
	}
	j.Status = Status(status)
	j.UpdatedAt = time.UnixMilli(ts).UTC()
	if debug != "" && json.Valid([]byte(debug)) {
		j.Debug = json.RawMessage(debug)
	}
	return j, nil
}

// rebind переписывает "?" в "$1, $2, …" для Postgres.
func (r *JobRepo) rebind(q string) string {
	if r.Dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
