package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/researcher/internal/research"
)

// Store persists completed research results in Postgres.
type Store struct {
	DB *sql.DB
}

// Result is one persisted research outcome. Identifiers come from the
// database sequence: strictly increasing and never reused, even after
// deletes.
type Result struct {
	ID        int64             `json:"id"`
	Query     string            `json:"query"`
	Findings  research.Findings `json:"findings"`
	CreatedAt time.Time         `json:"created_at"`
}

const defaultListLimit = 50

// New constructs the Store from DATABASE_URL or the POSTGRES_* variables.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// Append stores one completed result and returns its identifier.
func (s *Store) Append(ctx context.Context, query string, findings research.Findings) (int64, error) {
	raw, err := json.Marshal(findings)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.DB.QueryRowContext(ctx, `INSERT INTO results (query, findings) VALUES ($1,$2) RETURNING id`, query, raw).Scan(&id)
	return id, err
}

// Get returns the result with id; ok is false when no record exists.
func (s *Store) Get(ctx context.Context, id int64) (Result, bool, error) {
	var (
		r   Result
		raw []byte
	)
	err := s.DB.QueryRowContext(ctx, `SELECT id, query, findings, created_at FROM results WHERE id=$1`, id).
		Scan(&r.ID, &r.Query, &raw, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	if err := json.Unmarshal(raw, &r.Findings); err != nil {
		return Result{}, false, err
	}
	return r, true, nil
}

// List returns up to limit results, most recent first. limit <= 0 applies
// the default bound.
func (s *Store) List(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, query, findings, created_at FROM results ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Empty histories marshal as [] rather than null.
	out := make([]Result, 0, limit)
	for rows.Next() {
		var (
			r   Result
			raw []byte
		)
		if err := rows.Scan(&r.ID, &r.Query, &raw, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &r.Findings); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes the result with id, reporting whether a record existed.
// Identifiers of remaining records are unaffected.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM results WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of stored results.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n)
	return n, err
}
