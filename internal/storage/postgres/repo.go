// Package postgres implements storage.Repository for PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sniff/internal/fieldtype"
	"sniff/internal/storage"
)

// Repo implements storage.Repository for PostgreSQL.
//
// Bulk loading uses the COPY protocol (pgx.CopyFrom), which is the fastest
// append path Postgres offers and needs no statement batching.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	if !spec.AutoCreate {
		return nil
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(spec.Name)
	b.WriteString(" (")
	for i, col := range spec.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(col.Name))
		b.WriteByte(' ')
		b.WriteString(columnType(col.Type))
	}
	b.WriteString(")")

	if _, err := r.pool.Exec(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = c.Name
	}

	n, err := r.pool.CopyFrom(ctx, tableIdent(spec.Name), cols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", spec.Name, err)
	}
	return n, nil
}

// tableIdent splits a possibly schema-qualified name into a pgx.Identifier.
func tableIdent(name string) pgx.Identifier {
	parts := strings.Split(name, ".")
	return pgx.Identifier(parts)
}

// columnType maps a lattice type onto a Postgres column type.
func columnType(t fieldtype.Type) string {
	switch t {
	case fieldtype.Boolean:
		return "boolean"
	case fieldtype.Integer:
		return "bigint"
	case fieldtype.Float:
		return "double precision"
	case fieldtype.Date:
		return "date"
	case fieldtype.DateTime:
		return "timestamptz"
	default:
		return "text"
	}
}

func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
