// Package mssql implements storage.Repository for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"sniff/internal/fieldtype"
	"sniff/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
//
// SQL Server has no CREATE TABLE IF NOT EXISTS; existence is checked with
// OBJECT_ID. Inserts are batched multi-VALUES statements kept under the
// 2100-parameter limit.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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

func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	if !spec.AutoCreate {
		return nil
	}

	var cols strings.Builder
	for i, col := range spec.Columns {
		if i > 0 {
			cols.WriteString(", ")
		}
		cols.WriteString(sqlIdent(col.Name))
		cols.WriteByte(' ')
		cols.WriteString(columnType(col.Type))
	}

	q := fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		strings.ReplaceAll(spec.Name, "'", "''"), spec.Name, cols.String(),
	)
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

// maxParams stays under SQL Server's 2100 bound-parameter ceiling.
const maxParams = 2000

func (r *Repo) InsertRows(ctx context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	nCols := len(spec.Columns)
	batchRows := maxParams / nCols
	if batchRows < 1 {
		batchRows = 1
	}

	cols := make([]string, nCols)
	for i, c := range spec.Columns {
		cols[i] = sqlIdent(c.Name)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", spec.Name, strings.Join(cols, ", "))

	var total int64
	for start := 0; start < len(rows); start += batchRows {
		end := start + batchRows
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var b strings.Builder
		b.WriteString(prefix)
		args := make([]any, 0, len(batch)*nCols)
		p := 0
		for i, row := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(")
			for j := 0; j < nCols; j++ {
				if j > 0 {
					b.WriteString(", ")
				}
				p++
				fmt.Fprintf(&b, "@p%d", p)
				var v any
				if j < len(row) {
					v = row[j]
				}
				args = append(args, v)
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

// columnType maps a lattice type onto a SQL Server column type.
func columnType(t fieldtype.Type) string {
	switch t {
	case fieldtype.Boolean:
		return "bit"
	case fieldtype.Integer:
		return "bigint"
	case fieldtype.Float:
		return "float"
	case fieldtype.Date:
		return "date"
	case fieldtype.DateTime:
		return "datetime2"
	default:
		return "nvarchar(max)"
	}
}

func sqlIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}
