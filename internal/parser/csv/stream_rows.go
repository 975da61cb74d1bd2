package csv

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"sniff/internal/charset"
	"sniff/internal/metadata"
)

// StreamRows tokenizes src according to the dialect and sends pooled *Row
// values on out. It skips the preamble, drops the header row when the
// dialect declares one, and honors quoting, commenting, escaping, and the
// flexible flag exactly as sniffed.
//
// Per-record tokenizer errors are reported through onErr and skipped; only
// unrecoverable errors (I/O, context cancellation) end the stream. The
// channel is NOT closed by StreamRows; the caller owns it.
//
// NOTE on cancellation: in-flight rows are Dropped, never re-pooled, so a
// canceled downstream drain can never observe a reused Row.
func StreamRows(
	ctx context.Context,
	src io.ReadCloser,
	d metadata.Dialect,
	out chan<- *Row,
	onErr func(line int, err error),
) error {
	defer src.Close()

	br := bufio.NewReader(charset.NewReader(src, d.IsUTF8))
	for i := 0; i < d.Header.NumPreambleRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("skip preamble: %w", err)
		}
	}

	if d.Escape.Enabled {
		return streamEscaped(ctx, br, d, out, onErr)
	}

	cr := csv.NewReader(br)
	cr.Comma = rune(d.Delimiter)
	cr.ReuseRecord = true
	if d.Comment.Enabled {
		cr.Comment = rune(d.Comment.Char)
	}
	if d.Flexible {
		cr.FieldsPerRecord = -1
	}
	// encoding/csv only understands strict double-quote quoting; anything
	// else is tokenized lazily and unwrapped after the fact.
	strictQuotes := d.Quote.Enabled && d.Quote.Char == '"' && d.Quote.DoubleQuote
	if !strictQuotes {
		cr.LazyQuotes = true
	}

	var line int
	dropHeader := d.Header.HasHeaderRow

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}
		if dropHeader {
			dropHeader = false
			continue
		}

		row := GetRow(len(rec))
		row.Line = line
		for i, v := range rec {
			if !strictQuotes && d.Quote.Enabled {
				v = unwrapQuote(v, d.Quote)
			}
			row.V[i] = strings.TrimSpace(v)
		}

		select {
		case out <- row:
		case <-ctx.Done():
			// IMPORTANT: do not re-pool on cancellation.
			row.Drop()
			return ctx.Err()
		}
	}
}

// streamEscaped handles the escape-enabled dialect family (quoting disabled,
// embedded delimiters escaped with a designated byte). encoding/csv has no
// escape support, so records are split manually line by line.
func streamEscaped(
	ctx context.Context,
	br *bufio.Reader,
	d metadata.Dialect,
	out chan<- *Row,
	onErr func(line int, err error),
) error {
	var line int
	dropHeader := d.Header.HasHeaderRow

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw := strings.TrimSuffix(sc.Text(), "\r")
		line++
		if raw == "" {
			continue
		}
		if d.Comment.Enabled && raw[0] == d.Comment.Char {
			continue
		}
		if dropHeader {
			dropHeader = false
			continue
		}

		fields := splitEscaped(raw, d.Delimiter, d.Escape.Char)
		row := GetRow(len(fields))
		row.Line = line
		for i, v := range fields {
			row.V[i] = strings.TrimSpace(v)
		}

		select {
		case out <- row:
		case <-ctx.Done():
			row.Drop()
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		if onErr != nil {
			onErr(line, fmt.Errorf("scan: %w", err))
		}
		return err
	}
	return nil
}

// splitEscaped splits s on delim, treating esc as protecting the byte that
// follows it.
func splitEscaped(s string, delim, esc byte) []string {
	var out []string
	var field strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == esc && i+1 < len(s):
			field.WriteByte(s[i+1])
			i++
		case c == delim:
			out = append(out, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	out = append(out, field.String())
	return out
}

// unwrapQuote strips a wrapping non-double-quote quote byte from a field and
// collapses doubled quotes when the dialect uses them.
func unwrapQuote(v string, q metadata.Quote) string {
	if len(v) >= 2 && v[0] == q.Char && v[len(v)-1] == q.Char {
		v = v[1 : len(v)-1]
		if q.DoubleQuote {
			qq := string([]byte{q.Char, q.Char})
			v = strings.ReplaceAll(v, qq, string(q.Char))
		}
	}
	return v
}
