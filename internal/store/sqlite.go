package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS checks (
	id            TEXT PRIMARY KEY,
	bike_info     TEXT NOT NULL,
	product_url   TEXT NOT NULL,
	product_key   TEXT NOT NULL,
	product_h1    TEXT NOT NULL DEFAULT '',
	compatibility TEXT NOT NULL DEFAULT '',
	confidence    TEXT NOT NULL DEFAULT '',
	argument      TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_checks_product_key ON checks(product_key);
CREATE INDEX IF NOT EXISTS idx_checks_created_at ON checks(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCheck(ctx context.Context, run CheckRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (id, bike_info, product_url, product_key, product_h1,
			compatibility, confidence, argument, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.BikeInfo, run.ProductURL, run.ProductKey, run.ProductH1,
		run.Compatibility, run.Confidence, run.Argument, run.DurationMS, run.Error, run.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert check")
}

func (s *SQLiteStore) ListChecks(ctx context.Context, limit int) ([]CheckRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bike_info, product_url, product_key, product_h1,
			compatibility, confidence, argument, duration_ms, error, created_at
		 FROM checks ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list checks")
	}
	defer func() { _ = rows.Close() }()

	var runs []CheckRun
	for rows.Next() {
		var run CheckRun
		if err := rows.Scan(&run.ID, &run.BikeInfo, &run.ProductURL, &run.ProductKey, &run.ProductH1,
			&run.Compatibility, &run.Confidence, &run.Argument, &run.DurationMS, &run.Error, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan check")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate checks")
}
