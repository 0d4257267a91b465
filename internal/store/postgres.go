package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// querier is the subset of pgxpool.Pool the store uses, narrowed so tests
// can substitute a mock pool.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool querier
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS checks (
	id            TEXT PRIMARY KEY,
	bike_info     TEXT NOT NULL,
	product_url   TEXT NOT NULL,
	product_key   TEXT NOT NULL,
	product_h1    TEXT NOT NULL DEFAULT '',
	compatibility TEXT NOT NULL DEFAULT '',
	confidence    TEXT NOT NULL DEFAULT '',
	argument      TEXT NOT NULL DEFAULT '',
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_checks_product_key ON checks(product_key);
CREATE INDEX IF NOT EXISTS idx_checks_created_at ON checks(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveCheck(ctx context.Context, run CheckRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO checks (id, bike_info, product_url, product_key, product_h1,
			compatibility, confidence, argument, duration_ms, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.BikeInfo, run.ProductURL, run.ProductKey, run.ProductH1,
		run.Compatibility, run.Confidence, run.Argument, run.DurationMS, run.Error, run.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert check")
}

func (s *PostgresStore) ListChecks(ctx context.Context, limit int) ([]CheckRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, bike_info, product_url, product_key, product_h1,
			compatibility, confidence, argument, duration_ms, error, created_at
		 FROM checks ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list checks")
	}
	defer rows.Close()

	var runs []CheckRun
	for rows.Next() {
		var run CheckRun
		if err := rows.Scan(&run.ID, &run.BikeInfo, &run.ProductURL, &run.ProductKey, &run.ProductH1,
			&run.Compatibility, &run.Confidence, &run.Argument, &run.DurationMS, &run.Error, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan check")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate checks")
}
