package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createToolsTable = `
CREATE TABLE IF NOT EXISTS registered_tools (
	name        TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	parameters  TEXT[] NOT NULL DEFAULT '{}',
	code        TEXT NOT NULL DEFAULT '',
	llm_proxy   BOOLEAN NOT NULL DEFAULT FALSE,
	llm_code    BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertTool = `
INSERT INTO registered_tools (name, kind, description, parameters, code, llm_proxy, llm_code, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (name) DO UPDATE SET
	kind = EXCLUDED.kind,
	description = EXCLUDED.description,
	parameters = EXCLUDED.parameters,
	code = EXCLUDED.code,
	llm_proxy = EXCLUDED.llm_proxy,
	llm_code = EXCLUDED.llm_code,
	updated_at = now()`

const selectTools = `
SELECT name, kind, description, parameters, code, llm_proxy, llm_code
FROM registered_tools
ORDER BY updated_at, name`

// PostgresStore keeps records in the registered_tools table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and ensures the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if _, err := pool.Exec(ctx, createToolsTable); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create registered_tools table")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx, selectTools)
	if err != nil {
		return nil, errors.Wrap(err, "query registered tools")
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.Kind, &r.Description, &r.Parameters, &r.Code, &r.LLMProxy, &r.LLMCode); err != nil {
			return nil, errors.Wrap(err, "scan registered tool")
		}
		recs = append(recs, r)
	}
	return recs, errors.Wrap(rows.Err(), "iterate registered tools")
}

func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	params := rec.Parameters
	if params == nil {
		params = []string{}
	}
	_, err := s.pool.Exec(ctx, upsertTool,
		rec.Name, rec.Kind, rec.Description, params, rec.Code, rec.LLMProxy, rec.LLMCode)
	return errors.Wrapf(err, "upsert tool %s", rec.Name)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
