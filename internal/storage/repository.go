// Package storage loads sniffed datasets into SQL backends.
//
// A Repository is constructed through a factory registry: backend packages
// register themselves from init() and are selected by kind ("postgres",
// "sqlite", "mssql"). The table shape comes straight from a sniffed
// Metadata: column names are normalized header names, column types are
// mapped from the fieldtype lattice by each backend.
package storage

import (
	"context"
	"fmt"
	"sync"

	"sniff/internal/fieldtype"
	"sniff/internal/metadata"
)

// Config is the minimal configuration needed to create a Repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// ColumnSpec is one column of a load target table.
type ColumnSpec struct {
	// Name is the normalized, backend-safe column identifier.
	Name string
	// Type is the inferred lattice type; backends map it to a column type.
	Type fieldtype.Type
}

// TableSpec describes the table a sniffed dataset loads into.
type TableSpec struct {
	// Name is the (possibly schema-qualified) table name.
	Name string
	// Columns are ordered exactly as the sniffed fields.
	Columns []ColumnSpec
	// AutoCreate requests create-if-not-exists before loading.
	AutoCreate bool
}

// Repository is a backend-agnostic loader for sniffed datasets.
//
// IMPORTANT: the interface is intentionally minimal; each backend implements
// the semantics its own way (Postgres COPY, SQLite batched INSERT, etc).
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureTable creates the table when spec.AutoCreate is set.
	EnsureTable(ctx context.Context, spec TableSpec) error

	// InsertRows appends rows (positional, aligned with spec.Columns) and
	// returns the number inserted. Implementations batch internally.
	InsertRows(ctx context.Context, spec TableSpec, rows [][]any) (int64, error)
}

// TableFromMetadata derives a TableSpec from a sniffed Metadata: one column
// per sniffed field, names normalized (and de-duplicated positionally when
// normalization collides or produces an empty identifier).
func TableFromMetadata(table string, md metadata.Metadata) TableSpec {
	spec := TableSpec{
		Name:       table,
		Columns:    make([]ColumnSpec, 0, md.NumFields),
		AutoCreate: true,
	}

	seen := make(map[string]bool, md.NumFields)
	for i := 0; i < md.NumFields; i++ {
		name := ""
		if i < len(md.Fields) {
			name = TruncateIdent(NormalizeIdent(md.Fields[i]))
		}
		if name == "" || seen[name] {
			name = fmt.Sprintf("field_%d", i)
		}
		seen[name] = true

		ty := fieldtype.Text
		if i < len(md.Types) {
			ty = md.Types[i]
		}
		spec.Columns = append(spec.Columns, ColumnSpec{Name: name, Type: ty})
	}
	return spec
}

// ---- factory registry (backends register from init()) ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Panics on empty kind, nil factory, or duplicate registration: failing fast
// beats ambiguous backend selection.
func Register(kind string, f factory) {
	regMu.Lock()
	defer regMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - cfg.Kind empty or unregistered.
//   - Whatever the backend factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	regMu.RLock()
	f := factories[cfg.Kind]
	regMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
