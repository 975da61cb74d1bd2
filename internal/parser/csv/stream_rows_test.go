package csv

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"sniff/internal/metadata"
)

func collect(t *testing.T, src string, d metadata.Dialect) ([][]string, []int, error) {
	t.Helper()

	out := make(chan *Row, 64)
	var errLines []int
	errCh := make(chan error, 1)
	go func() {
		errCh <- StreamRows(context.Background(), io.NopCloser(strings.NewReader(src)), d, out, func(line int, err error) {
			errLines = append(errLines, line)
		})
		close(out)
	}()

	var rows [][]string
	for row := range out {
		rows = append(rows, append([]string(nil), row.V...))
		row.Free()
	}
	return rows, errLines, <-errCh
}

// TestStreamRows_BasicDialect verifies preamble skipping, header dropping,
// and field trimming under a plain comma dialect.
func TestStreamRows_BasicDialect(t *testing.T) {
	t.Parallel()

	d := metadata.Dialect{
		Delimiter: ',',
		Header:    metadata.Header{HasHeaderRow: true, NumPreambleRows: 2},
		IsUTF8:    true,
	}
	src := "A report\nmade by hand\nid,name\n1, alpha \n2,beta\n"

	rows, errLines, err := collect(t, src, d)
	if err != nil {
		t.Fatalf("StreamRows() err=%v", err)
	}
	if len(errLines) != 0 {
		t.Fatalf("unexpected row errors at lines %v", errLines)
	}
	want := [][]string{{"1", "alpha"}, {"2", "beta"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows=%v, want %v", rows, want)
	}
}

// TestStreamRows_StrictQuotes verifies standard double-quote tokenization.
func TestStreamRows_StrictQuotes(t *testing.T) {
	t.Parallel()

	d := metadata.Dialect{
		Delimiter: ',',
		Quote:     metadata.QuoteSome('"', true),
		IsUTF8:    true,
	}
	src := "\"Smith, John\",\"said \"\"hi\"\"\"\nplain,row\n"

	rows, _, err := collect(t, src, d)
	if err != nil {
		t.Fatalf("StreamRows() err=%v", err)
	}
	want := [][]string{{"Smith, John", `said "hi"`}, {"plain", "row"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows=%v, want %v", rows, want)
	}
}

// TestStreamRows_SingleQuoteDialect verifies the non-standard quote byte path
// (lazy tokenization plus post-hoc unwrapping).
func TestStreamRows_SingleQuoteDialect(t *testing.T) {
	t.Parallel()

	d := metadata.Dialect{
		Delimiter: ',',
		Quote:     metadata.QuoteSome('\'', false),
		IsUTF8:    true,
	}
	src := "'alpha',1\n'beta',2\n"

	rows, _, err := collect(t, src, d)
	if err != nil {
		t.Fatalf("StreamRows() err=%v", err)
	}
	want := [][]string{{"alpha", "1"}, {"beta", "2"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows=%v, want %v", rows, want)
	}
}

// TestStreamRows_EscapeDialect verifies the manual escape-aware path.
//
// Edge cases:
//   - Escaped delimiters stay inside the field.
//   - Comment lines and blank lines are skipped.
//   - The header row is dropped after skipping comments.
func TestStreamRows_EscapeDialect(t *testing.T) {
	t.Parallel()

	d := metadata.Dialect{
		Delimiter: ',',
		Header:    metadata.Header{HasHeaderRow: true},
		Escape:    metadata.EscapeSome('\\'),
		Comment:   metadata.CommentSome('#'),
		IsUTF8:    true,
	}
	src := "# preface\nname,value\nx\\,y,1\n\nplain,2\n"

	rows, _, err := collect(t, src, d)
	if err != nil {
		t.Fatalf("StreamRows() err=%v", err)
	}
	want := [][]string{{"x,y", "1"}, {"plain", "2"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows=%v, want %v", rows, want)
	}
}

// TestStreamRows_FlexibleAndErrors verifies that ragged rows flow through
// when the dialect is flexible and are reported when it is not.
func TestStreamRows_FlexibleAndErrors(t *testing.T) {
	t.Parallel()

	src := "1,2,3\n4,5\n6,7,8\n"

	t.Run("flexible_passes_ragged", func(t *testing.T) {
		t.Parallel()
		d := metadata.Dialect{Delimiter: ',', Flexible: true, IsUTF8: true}
		rows, errLines, err := collect(t, src, d)
		if err != nil {
			t.Fatalf("StreamRows() err=%v", err)
		}
		if len(errLines) != 0 {
			t.Fatalf("unexpected row errors at %v", errLines)
		}
		if len(rows) != 3 || len(rows[1]) != 2 {
			t.Fatalf("rows=%v, want 3 rows with a ragged middle", rows)
		}
	})

	t.Run("strict_reports_and_continues", func(t *testing.T) {
		t.Parallel()
		d := metadata.Dialect{Delimiter: ',', IsUTF8: true}
		rows, errLines, err := collect(t, src, d)
		if err != nil {
			t.Fatalf("StreamRows() err=%v", err)
		}
		if len(errLines) != 1 {
			t.Fatalf("errLines=%v, want exactly one rejected row", errLines)
		}
		if len(rows) != 2 {
			t.Fatalf("rows=%v, want the two well-formed rows", rows)
		}
	})
}

// TestStreamRows_Cancellation verifies the stream stops on context cancel
// without closing the output channel.
func TestStreamRows_Cancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	d := metadata.Dialect{Delimiter: ',', IsUTF8: true}

	// Unbuffered channel with no consumer: the first send blocks until
	// cancellation kicks in.
	out := make(chan *Row)
	errCh := make(chan error, 1)
	go func() {
		errCh <- StreamRows(ctx, io.NopCloser(strings.NewReader("1,2\n3,4\n")), d, out, nil)
	}()

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("StreamRows() err=%v, want context.Canceled", err)
	}
}

// TestGetRowFree verifies pooled rows keep their requested width.
func TestGetRowFree(t *testing.T) {
	t.Parallel()

	r := GetRow(3)
	if len(r.V) != 3 {
		t.Fatalf("GetRow(3).V len=%d, want 3", len(r.V))
	}
	r.V[0] = "x"
	r.Free()

	r2 := GetRow(5)
	if len(r2.V) != 5 {
		t.Fatalf("GetRow(5).V len=%d, want 5", len(r2.V))
	}
	r2.Drop()
}

// TestSplitEscaped verifies the escape-aware splitter.
func TestSplitEscaped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "plain", in: "a,b,c", want: []string{"a", "b", "c"}},
		{name: "escaped_delim", in: `a\,b,c`, want: []string{"a,b", "c"}},
		{name: "escaped_escape", in: `a\\,b`, want: []string{`a\`, "b"}},
		{name: "trailing_escape_kept", in: `a,b\`, want: []string{"a", `b\`}},
		{name: "empty_fields", in: ",,", want: []string{"", "", ""}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := splitEscaped(tc.in, ',', '\\'); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("splitEscaped(%q)=%v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// TestUnwrapQuote verifies wrapping-byte stripping and doubled-quote
// collapsing.
func TestUnwrapQuote(t *testing.T) {
	t.Parallel()

	single := metadata.QuoteSome('\'', false)
	if got := unwrapQuote("'abc'", single); got != "abc" {
		t.Fatalf("unwrapQuote=%q, want abc", got)
	}
	if got := unwrapQuote("abc", single); got != "abc" {
		t.Fatalf("unwrapQuote=%q, unwrapped an unquoted value", got)
	}

	doubled := metadata.QuoteSome('\'', true)
	if got := unwrapQuote("'it''s'", doubled); got != "it's" {
		t.Fatalf("unwrapQuote=%q, want it's", got)
	}
}
