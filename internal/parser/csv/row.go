// Package csv streams records out of a delimited-text file using a sniffed
// metadata.Dialect as the parsing contract.
// This file defines a pooled Row type used across parser → loader to reduce
// heap churn on large imports.
package csv

import "sync"

// Row is a pooled container holding one positional record.
//
// Ownership contract:
//   - Exactly one goroutine owns a Row at a time.
//   - A Row may be passed downstream via channels (ownership transfer).
//   - The final consumer must call Free() AFTER it is fully done with the
//     Row (and anything referencing r.V).
//
// On cancellation paths use Drop() instead of Free(): a canceled drain may
// still be reading a Row while the parser unwinds, and re-pooling it lets
// the parser reuse and overwrite it concurrently.
type Row struct {
	V    []string
	Line int // 1-based record number within the structural rows
}

var rowPool sync.Pool

// GetRow returns a pooled Row with length fieldCount and zeroed fields.
func GetRow(fieldCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < fieldCount {
			r.V = make([]string, fieldCount)
		}
		r.V = r.V[:fieldCount]
		for i := range r.V {
			r.V[i] = ""
		}
		r.Line = 0
		return r
	}
	return &Row{V: make([]string, fieldCount)}
}

// Free returns the Row to the pool. Call only when no other goroutine can
// observe r or r.V.
func (r *Row) Free() {
	rowPool.Put(r)
}

// Drop discards the Row without re-pooling. Use on ctx-cancellation paths.
func (r *Row) Drop() {
	r.V = nil
	r.Line = 0
}
