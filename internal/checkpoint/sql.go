package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BartekS5/moviesync/pkg/database"
)

// SQLStore keeps watermarks in the etl_checkpoints table, one row per stream.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
}

type sqlStatements struct {
	ddl, get, set, all string
}

var statements = map[database.Dialect]sqlStatements{
	database.Postgres: {
		ddl: `
CREATE TABLE IF NOT EXISTS etl_checkpoints (
  stream text PRIMARY KEY,
  watermark text NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now()
)`,
		get: `SELECT watermark FROM etl_checkpoints WHERE stream = $1`,
		set: `INSERT INTO etl_checkpoints (stream, watermark) VALUES ($1, $2)
ON CONFLICT (stream) DO UPDATE SET watermark = EXCLUDED.watermark, updated_at = now()`,
		all: `SELECT stream, watermark FROM etl_checkpoints ORDER BY stream`,
	},
	database.SQLServer: {
		ddl: `
IF OBJECT_ID(N'etl_checkpoints', N'U') IS NULL
CREATE TABLE etl_checkpoints (
  stream NVARCHAR(128) NOT NULL PRIMARY KEY,
  watermark NVARCHAR(64) NOT NULL,
  updated_at DATETIMEOFFSET NOT NULL DEFAULT SYSDATETIMEOFFSET()
)`,
		get: `SELECT watermark FROM etl_checkpoints WHERE stream = @p1`,
		set: `MERGE etl_checkpoints AS t
USING (SELECT @p1 AS stream, @p2 AS watermark) AS s ON t.stream = s.stream
WHEN MATCHED THEN UPDATE SET watermark = s.watermark, updated_at = SYSDATETIMEOFFSET()
WHEN NOT MATCHED THEN INSERT (stream, watermark) VALUES (s.stream, s.watermark);`,
		all: `SELECT stream, watermark FROM etl_checkpoints ORDER BY stream`,
	},
}

// NewSQLStore ensures the checkpoint table exists. The caller keeps
// ownership of db.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect database.Dialect) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	stmts, ok := statements[dialect]
	if !ok {
		return nil, fmt.Errorf("no checkpoint statements for dialect %q", dialect)
	}
	if _, err := db.ExecContext(ctx, stmts.ddl); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

func (s *SQLStore) Get(ctx context.Context, stream string) (Watermark, error) {
	var w string
	err := s.db.QueryRowContext(ctx, statements[s.dialect].get, stream).Scan(&w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read checkpoint for %s: %w", stream, err)
	}
	return Watermark(w), nil
}

func (s *SQLStore) Set(ctx context.Context, stream string, w Watermark) error {
	if _, err := w.Time(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, statements[s.dialect].set, stream, string(w)); err != nil {
		return fmt.Errorf("failed to persist checkpoint for %s: %w", stream, err)
	}
	return nil
}

func (s *SQLStore) All(ctx context.Context) (map[string]Watermark, error) {
	rows, err := s.db.QueryContext(ctx, statements[s.dialect].all)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Watermark)
	for rows.Next() {
		var stream, w string
		if err := rows.Scan(&stream, &w); err != nil {
			return nil, err
		}
		out[stream] = Watermark(w)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return nil
}
