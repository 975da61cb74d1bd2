// Package metadata defines the result model of dialect sniffing.
//
// A sniff produces one immutable Metadata value: the structural Dialect of
// the sampled file (delimiter, quoting, escaping, commenting, header and
// preamble, raggedness, text encoding) plus the inferred per-column schema.
// The Dialect alone is enough to configure a record tokenizer; Metadata adds
// the informational schema on top.
//
// Values in this package are created by internal/sniffer and are read-only
// afterward. Nothing here performs inference.
package metadata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"sniff/internal/fieldtype"
)

// Metadata is the primary sniffing result.
//
// Invariant: len(Fields) == len(Types) == NumFields.
type Metadata struct {
	// Dialect is the structural parsing contract for the file.
	Dialect Dialect
	// AvgRecordLen is the average structural record length in bytes
	// (informational; integer division, 0 when no structural rows were seen).
	AvgRecordLen int
	// NumFields is the number of fields per record.
	NumFields int
	// Fields holds column names: the header row when one was detected,
	// synthesized positional placeholders otherwise.
	Fields []string
	// Types holds the inferred column types, parallel to Fields.
	Types []fieldtype.Type
}

// String renders a human-readable report: the dialect summary followed by an
// aligned index/type/name table. Presentational only.
func (m Metadata) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "Metadata")
	fmt.Fprintln(&b, "========")
	fmt.Fprint(&b, m.Dialect.String())
	fmt.Fprintf(&b, "Average record length (bytes): %d\n", m.AvgRecordLen)
	fmt.Fprintf(&b, "Number of fields: %d\n", m.NumFields)
	fmt.Fprintln(&b, "Fields:")

	tw := tabwriter.NewWriter(&b, 0, 4, 1, ' ', 0)
	for i, ty := range m.Types {
		name := ""
		if i < len(m.Fields) {
			name = m.Fields[i]
		}
		fmt.Fprintf(tw, "\t%d:\t%s\t%s\n", i, ty, name)
	}
	tw.Flush()

	return b.String()
}

// Equal reports structural equality over every field.
func (m Metadata) Equal(o Metadata) bool {
	if !m.Dialect.Equal(o.Dialect) ||
		m.AvgRecordLen != o.AvgRecordLen ||
		m.NumFields != o.NumFields ||
		len(m.Fields) != len(o.Fields) ||
		len(m.Types) != len(o.Types) {
		return false
	}
	for i := range m.Fields {
		if m.Fields[i] != o.Fields[i] {
			return false
		}
	}
	for i := range m.Types {
		if m.Types[i] != o.Types[i] {
			return false
		}
	}
	return true
}

// Dialect is the structural contract needed to parse a delimited-text file.
// It is the sole input required to configure a record tokenizer.
type Dialect struct {
	// Delimiter is the field separator byte.
	Delimiter byte
	// Header describes header presence and preamble length.
	Header Header
	// Quote describes the quoting convention.
	Quote Quote
	// Escape describes the escape convention.
	Escape Escape
	// Comment describes the comment-line convention.
	Comment Comment
	// Flexible reports whether records may have varying field counts.
	// Callers must tolerate ragged rows when set.
	Flexible bool
	// IsUTF8 reports whether the sample validated as well-formed UTF-8.
	// When false, callers should prefer a byte-oriented code path (see
	// internal/charset for the decoding fallback).
	IsUTF8 bool
}

// Equal reports structural equality over all dialect fields.
func (d Dialect) Equal(o Dialect) bool {
	return d == o
}

// String renders the dialect summary block used by Metadata.String.
func (d Dialect) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "Dialect:")
	fmt.Fprintf(&b, "\tDelimiter: %s\n", printableByte(d.Delimiter))
	fmt.Fprintf(&b, "\tHas header row?: %t\n", d.Header.HasHeaderRow)
	fmt.Fprintf(&b, "\tNumber of preamble rows: %d\n", d.Header.NumPreambleRows)
	if d.Quote.Enabled {
		fmt.Fprintf(&b, "\tQuote character: %s (doubled escapes: %t)\n",
			printableByte(d.Quote.Char), d.Quote.DoubleQuote)
	} else {
		fmt.Fprintln(&b, "\tQuote character: none")
	}
	if d.Escape.Enabled {
		fmt.Fprintf(&b, "\tEscape character: %s\n", printableByte(d.Escape.Char))
	} else {
		fmt.Fprintln(&b, "\tEscape character: disabled")
	}
	if d.Comment.Enabled {
		fmt.Fprintf(&b, "\tComment character: %s\n", printableByte(d.Comment.Char))
	} else {
		fmt.Fprintln(&b, "\tComment character: disabled")
	}
	fmt.Fprintf(&b, "\tFlexible: %t\n", d.Flexible)
	fmt.Fprintf(&b, "\tIs utf-8 encoded?: %t\n", d.IsUTF8)
	return b.String()
}

func printableByte(c byte) string {
	switch c {
	case '\t':
		return `\t`
	case 0:
		return `\0`
	default:
		return string(rune(c))
	}
}

// Reader snips the preamble from r and returns an encoding/csv reader
// configured from this dialect.
//
// encoding/csv only tokenizes double-quote quoting natively; for other quote
// bytes (or for row-channel streaming with pooled rows) use
// internal/parser/csv, which honors the full dialect.
func (d Dialect) Reader(r io.Reader) (*csv.Reader, error) {
	br := bufio.NewReader(r)
	if err := snipPreamble(br, d.Header.NumPreambleRows); err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = rune(d.Delimiter)
	if d.Comment.Enabled {
		cr.Comment = rune(d.Comment.Char)
	}
	if d.Flexible {
		cr.FieldsPerRecord = -1
	}
	// Lazy quoting when the file does not use strict double-quote quoting:
	// the tokenizer must not reject bare quote bytes inside fields.
	if !d.Quote.Enabled || d.Quote.Char != '"' || !d.Quote.DoubleQuote {
		cr.LazyQuotes = true
	}
	return cr, nil
}

// OpenPath opens path and returns a configured reader positioned past the
// preamble. The returned closer owns the underlying file.
func (d Dialect) OpenPath(path string) (*csv.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	cr, err := d.Reader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return cr, f, nil
}

// snipPreamble discards n lines from br. Hitting EOF before n lines is not an
// error: a short file simply has nothing left to parse.
func snipPreamble(br *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("snip preamble: %w", err)
		}
	}
	return nil
}

// Header describes header presence and preamble length.
type Header struct {
	// HasHeaderRow reports whether the first structural row holds column
	// labels rather than data.
	HasHeaderRow bool
	// NumPreambleRows is the number of leading rows to discard before the
	// header (or the first data row). Preamble rows are never tabular data.
	NumPreambleRows int
}

// Quote is a two-variant choice: disabled, or enabled with a quote byte and
// a flag reporting whether a doubled quote inside a quoted field represents
// a literal quote.
type Quote struct {
	Enabled     bool
	Char        byte
	DoubleQuote bool
}

// QuoteNone returns the disabled variant.
func QuoteNone() Quote { return Quote{} }

// QuoteSome returns the enabled variant.
func QuoteSome(c byte, doubled bool) Quote {
	return Quote{Enabled: true, Char: c, DoubleQuote: doubled}
}

// Escape is a two-variant choice: disabled, or enabled with an escape byte.
type Escape struct {
	Enabled bool
	Char    byte
}

// EscapeNone returns the disabled variant.
func EscapeNone() Escape { return Escape{} }

// EscapeSome returns the enabled variant.
func EscapeSome(c byte) Escape { return Escape{Enabled: true, Char: c} }

// Comment is a two-variant choice: disabled, or enabled with a comment byte.
type Comment struct {
	Enabled bool
	Char    byte
}

// CommentNone returns the disabled variant.
func CommentNone() Comment { return Comment{} }

// CommentSome returns the enabled variant.
func CommentSome(c byte) Comment { return Comment{Enabled: true, Char: c} }
