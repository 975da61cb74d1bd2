// Package sniffer infers the structural dialect of a delimited-text file
// from a bounded byte sample.
//
// The sniffer is responsible for:
//   - Skipping non-tabular preamble lines (titles, blank lines, comments)
//   - Scoring candidate field delimiters for structural consistency
//   - Detecting the quoting, escaping, and commenting conventions
//   - Deciding whether the first structural row is a header
//   - Inferring per-column types over the fieldtype lattice
//
// Design constraints:
//   - Sniffing consumes a bounded, already-materialized sample; it never
//     reads beyond the prefix the caller supplied.
//   - Inference is a pure, deterministic, single pass: the same sample
//     always yields the same Metadata.
//   - Ambiguity resolves to documented defaults rather than errors; only an
//     unusable sample (ErrSampleTooSmall) or total scoring failure
//     (ErrNoConsistentDelimiter) fails a sniff.
package sniffer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"sniff/internal/datasource/file"
	"sniff/internal/datasource/htmltable"
	"sniff/internal/datasource/httpds"
	"sniff/internal/fieldtype"
	"sniff/internal/metadata"
)

// ErrSampleTooSmall reports a sample too short or too empty to infer any
// structure from. Callers should supply a larger prefix.
var ErrSampleTooSmall = errors.New("sample too small to sniff")

// ErrNoConsistentDelimiter reports that every delimiter candidate scored
// below the configured confidence threshold. Callers can fall back to a
// manually specified dialect.
var ErrNoConsistentDelimiter = errors.New("no consistent delimiter found")

// Defaults for Options zero values. These are heuristic policy constants;
// they are exposed as configuration rather than hard-coded so callers can
// tighten or relax them.
const (
	DefaultMaxBytes         = 20000
	DefaultMaxRows          = 100
	DefaultPreambleMaxLines = 20
	DefaultMinConfidence    = 0.5
)

// Options control sniffing limits and policy.
//
// The zero value is usable: every field falls back to its documented
// default.
type Options struct {
	// MaxBytes bounds the prefix materialized by SniffReader/SniffURL.
	MaxBytes int
	// MaxRows bounds the number of structural rows examined by the scoring,
	// header, and type passes.
	MaxRows int
	// Delimiters overrides the candidate delimiter set
	// (default: comma, tab, semicolon, pipe). Bytes repeating at regular
	// per-line frequencies are always added as extra candidates.
	Delimiters []byte
	// MinConfidence is the fraction of rows that must share the modal field
	// count for the best candidate to win (default 0.5). Below it,
	// ErrNoConsistentDelimiter is returned.
	MinConfidence float64
	// PreambleMaxLines bounds how many leading lines the preamble skipper
	// examines (default 20).
	PreambleMaxLines int
	// AllowInsecureTLS skips TLS certificate verification for SniffURL
	// downloads (useful for self-signed / internal endpoints).
	AllowInsecureTLS bool
}

// Sniffer runs dialect inference with a fixed set of options.
type Sniffer struct {
	opt Options
}

// New returns a Sniffer with zero-value options replaced by defaults.
func New(opt Options) *Sniffer {
	if opt.MaxBytes <= 0 {
		opt.MaxBytes = DefaultMaxBytes
	}
	if opt.MaxRows <= 0 {
		opt.MaxRows = DefaultMaxRows
	}
	if len(opt.Delimiters) == 0 {
		opt.Delimiters = DefaultDelimiters
	}
	if opt.MinConfidence <= 0 {
		opt.MinConfidence = DefaultMinConfidence
	}
	if opt.PreambleMaxLines <= 0 {
		opt.PreambleMaxLines = DefaultPreambleMaxLines
	}
	return &Sniffer{opt: opt}
}

// PeekFn is the overridable seam used to fetch the first n bytes of a URL.
type PeekFn func(ctx context.Context, url string, n int, insecure bool) ([]byte, error)

// peekFn fetches the first n bytes from a URL. In production it is backed by
// httpds.Client for http(s):// URLs and file.NewLocal for file:// URLs.
// Tests can replace it to avoid real I/O.
var peekFn PeekFn = func(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("peek: n must be > 0")
	}

	if strings.HasPrefix(url, "file://") {
		path := strings.TrimPrefix(url, "file://")

		src := file.NewLocal(path)
		rc, err := src.Open(ctx)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		lr := &io.LimitedReader{R: rc, N: int64(n)}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, lr); err != nil && err != io.EOF {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	client := httpds.NewClient(httpds.Config{
		InsecureSkipVerify: insecure,
	})
	return client.FetchFirstBytes(ctx, url, n)
}

// SniffBytes runs the full inference pipeline over an already-materialized
// sample. This is the pure core: no I/O, deterministic for a given sample.
func (s *Sniffer) SniffBytes(sample []byte) (metadata.Metadata, error) {
	if len(bytes.TrimSpace(sample)) == 0 {
		return metadata.Metadata{}, ErrSampleTooSmall
	}
	isUTF8 := utf8.Valid(sample)

	lines := splitSampleLines(sample)
	if len(lines) == 0 {
		return metadata.Metadata{}, ErrSampleTooSmall
	}

	candidates := extendCandidates(lines, s.opt.Delimiters)

	pre := detectPreamble(lines, candidates, s.opt.PreambleMaxLines)
	body := lines[pre:]

	// Comment stripping before scoring is provisional: the '#' convention can
	// only be confirmed once the winning delimiter is known.
	scoreLines, _ := splitCommentLines(body, 0)
	if len(scoreLines) == 0 {
		scoreLines = body
	}
	if len(scoreLines) > s.opt.MaxRows {
		scoreLines = scoreLines[:s.opt.MaxRows]
	}

	scores := scoreDelimiters(scoreLines, candidates)
	best := scores[0]
	if best.score < s.opt.MinConfidence {
		return metadata.Metadata{}, fmt.Errorf("%w: best candidate %q scored %.2f (min %.2f)",
			ErrNoConsistentDelimiter, best.delim, best.score, s.opt.MinConfidence)
	}

	structural, comment := splitCommentLines(body, best.delim)
	if len(structural) == 0 {
		return metadata.Metadata{}, ErrSampleTooSmall
	}
	if len(structural) > s.opt.MaxRows {
		structural = structural[:s.opt.MaxRows]
	}

	quote := detectQuote(structural, best.delim)
	escape := detectEscape(structural, best.delim, quote)
	rows, flexible := parseRows(structural, best.delim, quote, escape)

	hasHeader := detectHeader(rows, s.opt.MaxRows)

	dialect := metadata.Dialect{
		Delimiter: best.delim,
		Header: metadata.Header{
			HasHeaderRow:    hasHeader,
			NumPreambleRows: pre,
		},
		Quote:    quote,
		Escape:   escape,
		Comment:  comment,
		Flexible: flexible,
		IsUTF8:   isUTF8,
	}
	return assemble(dialect, rows, structural), nil
}

// SniffReader materializes a bounded prefix of r and sniffs it. When the
// byte limit is hit mid-line, the trailing partial record is discarded so it
// cannot skew scoring.
func (s *Sniffer) SniffReader(ctx context.Context, r io.Reader) (metadata.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return metadata.Metadata{}, err
	}

	lr := &io.LimitedReader{R: r, N: int64(s.opt.MaxBytes)}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lr); err != nil && err != io.EOF {
		return metadata.Metadata{}, fmt.Errorf("read sample: %w", err)
	}

	sample := buf.Bytes()
	if lr.N == 0 {
		// Limit hit: cut at the last newline to drop a half-read record.
		if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i+1]
		}
	}
	return s.SniffBytes(sample)
}

// Peek materializes the bounded sample prefix of url (http://, https://,
// file://, or a bare local path) that SniffURL would sniff. When the fetched
// bytes are an HTML page, the dominant <table> is extracted into delimited
// text first, so table-bearing web pages sniff like files.
//
// Callers that need both the sample and its metadata can Peek once and pass
// the result to SniffBytes.
func (s *Sniffer) Peek(ctx context.Context, url string) ([]byte, error) {
	peekURL := url
	if peekURL != "" && !strings.HasPrefix(peekURL, "http://") &&
		!strings.HasPrefix(peekURL, "https://") && !strings.HasPrefix(peekURL, "file://") {
		peekURL = "file://" + peekURL
	}

	sample, err := peekFn(ctx, peekURL, s.opt.MaxBytes, s.opt.AllowInsecureTLS)
	if err != nil {
		return nil, fmt.Errorf("peek %s: %w", url, err)
	}

	if htmltable.LooksLikeHTML(sample) {
		extracted, err := htmltable.ToDelimited(sample, ',')
		if err == nil && len(extracted) > 0 {
			sample = extracted
		}
	} else if i := bytes.LastIndexByte(sample, '\n'); i > 0 && len(sample) >= s.opt.MaxBytes {
		// Full prefix fetched: drop the trailing partial record.
		sample = sample[:i+1]
	}
	return sample, nil
}

// SniffURL fetches a bounded prefix of url and sniffs it.
func (s *Sniffer) SniffURL(ctx context.Context, url string) (metadata.Metadata, error) {
	sample, err := s.Peek(ctx, url)
	if err != nil {
		return metadata.Metadata{}, err
	}
	return s.SniffBytes(sample)
}

// assemble packages the dialect, header decision, and type pass into one
// Metadata value.
//
// Field names come from the header row when present, padded with synthesized
// positional names for ragged headers; otherwise every name is synthesized.
// The average record length is total structural byte length (line
// terminators excluded) over structural row count, rounded down.
func assemble(dialect metadata.Dialect, rows [][]string, structural [][]byte) metadata.Metadata {
	numFields := 0
	for _, r := range rows {
		if len(r) > numFields {
			numFields = len(r)
		}
	}

	dataRows := rows
	if dialect.Header.HasHeaderRow && len(rows) > 0 {
		dataRows = rows[1:]
	}

	types := make([]fieldtype.Type, numFields)
	for c := range types {
		t := columnType(dataRows, c)
		if t == fieldtype.Unknown {
			// A column with no meaningful values reports the absorbing type.
			t = fieldtype.Text
		}
		types[c] = t
	}

	fields := make([]string, numFields)
	for i := range fields {
		if dialect.Header.HasHeaderRow && len(rows) > 0 && i < len(rows[0]) && rows[0][i] != "" {
			fields[i] = rows[0][i]
			continue
		}
		fields[i] = fmt.Sprintf("field %d", i)
	}

	avg := 0
	if len(structural) > 0 {
		total := 0
		for _, line := range structural {
			total += len(line)
		}
		avg = total / len(structural)
	}

	return metadata.Metadata{
		Dialect:      dialect,
		AvgRecordLen: avg,
		NumFields:    numFields,
		Fields:       fields,
		Types:        types,
	}
}

// splitSampleLines splits the sample into lines, trimming a trailing '\r'
// per line (CRLF input) and dropping trailing blank lines.
func splitSampleLines(sample []byte) [][]byte {
	raw := bytes.Split(sample, []byte{'\n'})
	lines := make([][]byte, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, bytes.TrimSuffix(line, []byte{'\r'}))
	}
	for len(lines) > 0 && len(bytes.TrimSpace(lines[len(lines)-1])) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}
