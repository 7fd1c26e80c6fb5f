// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package output

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clo/cli/internal/dsn"
	apperr "clo/cli/internal/errors"
	"clo/cli/internal/logging"
)

// DefaultTable receives records when the target names no table.
const DefaultTable = "clo_records"

const connectTimeout = 5 * time.Second

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresTarget is a parsed postgres:// output target.
type PostgresTarget struct {
	// ConnString has the table parameter removed.
	ConnString string
	Redacted   string
	Table      pgx.Identifier
}

// ParsePostgresTarget splits the table query parameter ("name" or
// "schema.name") off a connection URL.
func ParsePostgresTarget(target string) (*PostgresTarget, error) {
	info, err := dsn.Parse(target)
	if err != nil {
		return nil, apperr.Wrap(apperr.Output, "output target", err)
	}
	table := info.Take("table")
	if table == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier(strings.Split(table, "."))
	if len(ident) > 2 {
		return nil, apperr.Newf(apperr.Output, "invalid table %q: expected name or schema.name", table)
	}
	for _, part := range ident {
		if !identPattern.MatchString(part) {
			return nil, apperr.Newf(apperr.Output, "invalid table %q: expected name or schema.name", table)
		}
	}
	return &PostgresTarget{ConnString: info.String(), Redacted: info.Redacted(), Table: ident}, nil
}

// CreateSQL returns the statement creating the target table.
func (t *PostgresTarget) CreateSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	model      text        NOT NULL,
	id         bigint      NOT NULL,
	data       jsonb       NOT NULL,
	fetched_at timestamptz NOT NULL,
	PRIMARY KEY (model, id)
)`, t.Table.Sanitize())
}

// UpsertSQL returns the statement storing one record.
func (t *PostgresTarget) UpsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (model, id, data, fetched_at) VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (model, id) DO UPDATE SET data = EXCLUDED.data, fetched_at = EXCLUDED.fetched_at`, t.Table.Sanitize())
}

// PostgresSink upserts records into a table keyed by (model, id).
type PostgresSink struct {
	pool   *pgxpool.Pool
	target *PostgresTarget
	log    *logging.Logger
	now    func() time.Time
}

// OpenPostgres connects to the database named by target and checks that it
// answers.
func OpenPostgres(ctx context.Context, target string, log *logging.Logger) (*PostgresSink, error) {
	t, err := ParsePostgresTarget(target)
	if err != nil {
		return nil, err
	}
	ctxPing, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	pool, err := pgxpool.New(ctxPing, t.ConnString)
	if err != nil {
		return nil, apperr.Wrap(apperr.Output, "connecting to "+t.Redacted, err)
	}
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.Output, "connecting to "+t.Redacted, err)
	}
	log.Debugf("Connected to %s", t.Redacted)
	return &PostgresSink{pool: pool, target: t, log: log, now: time.Now}, nil
}

// Rows converts records into upsert arguments. Every record needs an integer id.
func Rows(model string, recs []map[string]any, at time.Time) ([][]any, error) {
	rows := make([][]any, 0, len(recs))
	for i, rec := range recs {
		id, ok := rec["id"].(int)
		if !ok {
			return nil, apperr.Newf(apperr.Output, "record %d has no integer id", i)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, apperr.Wrap(apperr.Output, "encoding record", err)
		}
		rows = append(rows, []any{model, id, string(data), at})
	}
	return rows, nil
}

func (s *PostgresSink) Write(ctx context.Context, model string, v any, _ Format) error {
	recs, ok := Records(v)
	if !ok {
		return apperr.Newf(apperr.Output, "cannot store %T in PostgreSQL: a list of records is required", v)
	}
	rows, err := Rows(model, recs, s.now().UTC())
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, s.target.CreateSQL()); err != nil {
		return apperr.Wrap(apperr.Output, "creating table", err)
	}

	batch := &pgx.Batch{}
	upsert := s.target.UpsertSQL()
	for _, row := range rows {
		batch.Queue(upsert, row...)
	}
	br := s.pool.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return apperr.Wrap(apperr.Output, "storing records", err)
		}
	}
	if err := br.Close(); err != nil {
		return apperr.Wrap(apperr.Output, "storing records", err)
	}
	s.log.Info(fmt.Sprintf("Stored %d %s record(s) in %s", len(rows), model, s.target.Table.Sanitize()))
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
