// Package file provides the local-filesystem datasource.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local reads a dataset from a local filesystem path.
type Local struct {
	path string
}

// NewLocal returns a datasource for the given path. The path is not touched
// until Open is called.
func NewLocal(path string) *Local {
	return &Local{path: path}
}

// Open opens the underlying file. The context is checked before touching the
// filesystem so canceled sniff runs fail fast.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
