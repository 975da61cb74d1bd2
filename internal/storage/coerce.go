package storage

import (
	"strconv"
	"strings"
	"time"

	"sniff/internal/fieldtype"
)

// CoerceRow converts one positional string record into driver-ready values
// according to the column types of spec.
//
// Coercion is lenient by design: an unparseable value degrades to its raw
// string rather than failing the load, and empty values become NULL. Rows
// shorter than the spec are padded with NULLs; longer rows are truncated
// (flexible dialects produce both).
func CoerceRow(spec TableSpec, fields []string) []any {
	out := make([]any, len(spec.Columns))
	for i, col := range spec.Columns {
		if i >= len(fields) {
			out[i] = nil
			continue
		}
		out[i] = coerceValue(col.Type, fields[i])
	}
	return out
}

func coerceValue(t fieldtype.Type, raw string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}

	switch t {
	case fieldtype.Boolean:
		if b, ok := fieldtype.ParseBool(v); ok {
			return b
		}
	case fieldtype.Integer:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case fieldtype.Float:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case fieldtype.Date:
		if ts, _, ok := fieldtype.ParseDate(v); ok {
			return ts
		}
	case fieldtype.DateTime:
		if ts, _, ok := fieldtype.ParseDateTime(v); ok {
			return ts
		}
	}
	return v
}

// FormatTime renders timestamps the way the SQLite backend stores them:
// RFC3339Nano strings for reliable round-trips and easy debugging.
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
