package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/schema"
)

const pgColumnsQuery = `
	SELECT c.table_name, c.column_name
	FROM information_schema.columns c
	JOIN information_schema.tables t
	  ON t.table_schema = c.table_schema
	 AND t.table_name   = c.table_name
	WHERE c.table_schema = $1
	  AND t.table_type IN ('BASE TABLE', 'VIEW')
	ORDER BY c.table_name, c.ordinal_position`

// Postgres introspects a PostgreSQL schema through a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	schema string
}

// OpenPostgres connects to dsn and pings before returning.
func OpenPostgres(ctx context.Context, dsn, schemaName string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid postgres DSN", err)
	}
	// A source serves one fetch at a time.
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, mapPgError(err, "ping failed")
	}

	if schemaName == "" {
		schemaName = "public"
	}
	return &Postgres{pool: pool, schema: schemaName}, nil
}

func (p *Postgres) Fetch(ctx context.Context) (*schema.Document, error) {
	doc, err := introspect(ctx, p, pgColumnsQuery, p.schema)
	if err != nil {
		return nil, mapPgError(err, "failed to introspect schema")
	}
	return doc, nil
}

func (p *Postgres) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

type pgxRows struct{ rows pgx.Rows }

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Close()                 { r.rows.Close() }
func (r *pgxRows) Err() error             { return r.rows.Err() }

// mapPgError translates pgx / pgconn native errors into *errs.Error.
func mapPgError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		switch {
		// Class 08: connection exceptions; 3D000: invalid catalog (database) name
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			kind = errs.ErrKindConnectionFailed
		case pgErr.Code == "3D000":
			kind = errs.ErrKindNotFound
		case pgErr.Code == "28000" || pgErr.Code == "28P01" || pgErr.Code == "42501":
			kind = errs.ErrKindPermissionDenied
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
