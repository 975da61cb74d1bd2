// Package sqlite implements storage.Repository for SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sniff/internal/fieldtype"
	"sniff/internal/storage"
)

// Repo implements storage.Repository for SQLite.
//
// Key design points vs Postgres:
//   - SQLite has no dedicated date/timestamp types; modernc.org/sqlite
//     stores them with TEXT affinity. Timestamps are therefore stored as
//     RFC3339Nano strings for reliable round-trip behavior and easy
//     debugging.
//   - Batched multi-VALUES inserts keep well under the default variable
//     limit.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable creates the target table when AutoCreate is set. Creation is
// idempotent (IF NOT EXISTS) so repeated loads into the same database work.
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
		b.WriteString(sqlIdent(col.Name))
		b.WriteByte(' ')
		b.WriteString(columnType(col.Type))
	}
	b.WriteString(")")

	if _, err := r.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

// insertBatch keeps each statement under SQLite's bound-variable limit.
const insertBatch = 200

func (r *Repo) InsertRows(ctx context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = sqlIdent(c.Name)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", spec.Name, strings.Join(cols, ", "))

	var total int64
	for start := 0; start < len(rows); start += insertBatch {
		end := start + insertBatch
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var b strings.Builder
		b.WriteString(prefix)
		args := make([]any, 0, len(batch)*len(cols))
		for i, row := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(")
			for j := range spec.Columns {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString("?")
				var v any
				if j < len(row) {
					v = row[j]
				}
				args = append(args, normalizeValue(v))
			}
			b.WriteString(")")
		}

		res, err := r.db.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", spec.Name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// normalizeValue maps Go values onto what this backend stores natively:
// time.Time becomes an RFC3339Nano string (SQLite TEXT affinity).
func normalizeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return storage.FormatTime(t)
	}
	return v
}

// columnType maps a lattice type onto a SQLite column type.
func columnType(t fieldtype.Type) string {
	switch t {
	case fieldtype.Boolean, fieldtype.Integer:
		return "INTEGER"
	case fieldtype.Float:
		return "REAL"
	default:
		// date, datetime, text: TEXT affinity.
		return "TEXT"
	}
}

func sqlIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
