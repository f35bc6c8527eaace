// Package postgres persists assessments and health signals in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // registers the "postgres" driver
)

//go:embed schema.sql
var schema string

const dateLayout = "2006-01-02"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements service.AssessmentStore and service.SignalStore.
type Store struct {
	db    *sql.DB
	newID func() string
}

// Open connects to databaseURL, verifies the connection, and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := New(db)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, newID: uuid.NewString}
}

// Migrate creates tables and indexes that do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// queryAll runs q and scans every row with scan.
func queryAll[T any](ctx context.Context, db queryer, q sq.Sqlizer, scan func(scanner) (T, error)) ([]T, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}
	return out, nil
}

// queryOne runs q and scans its single row. A missing row reports
// domain.ErrNotFound for kind and id.
func queryOne[T any](ctx context.Context, db queryer, q sq.Sqlizer, scan func(scanner) (T, error), kind, id string) (T, error) {
	var zero T
	query, args, err := q.ToSql()
	if err != nil {
		return zero, fmt.Errorf("build query: %w", err)
	}
	v, err := scan(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, domain.NotFoundError(kind, id)
	}
	if err != nil {
		return zero, fmt.Errorf("query %s: %w", kind, err)
	}
	return v, nil
}

// exec runs q and returns the number of affected rows.
func exec(ctx context.Context, db queryer, q sq.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// upsertSuffix overwrites every non-key column on id conflict.
func upsertSuffix(columns []string) string {
	set := ""
	for _, c := range columns {
		if c == "id" {
			continue
		}
		if set != "" {
			set += ", "
		}
		set += c + " = EXCLUDED." + c
	}
	return "ON CONFLICT (id) DO UPDATE SET " + set
}
