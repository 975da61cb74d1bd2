package sniffer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"sniff/internal/fieldtype"
	"sniff/internal/metadata"
)

// TestSniffBytes_PreambleHeaderAndTypes runs the whole pipeline over a sample
// with a two-line title block, a header row, and mixed column types, and
// checks every inferred axis.
func TestSniffBytes_PreambleHeaderAndTypes(t *testing.T) {
	t.Parallel()

	sample := []byte("Journal of Stuff\nVolume 3\nid,name,active\n1,alpha,true\n2,beta,false\n3,gamma,true\n")

	got, err := New(Options{}).SniffBytes(sample)
	if err != nil {
		t.Fatalf("SniffBytes() err=%v", err)
	}

	want := metadata.Metadata{
		Dialect: metadata.Dialect{
			Delimiter: ',',
			Header:    metadata.Header{HasHeaderRow: true, NumPreambleRows: 2},
			Quote:     metadata.QuoteNone(),
			Escape:    metadata.EscapeNone(),
			Comment:   metadata.CommentNone(),
			Flexible:  false,
			IsUTF8:    true,
		},
		AvgRecordLen: 12,
		NumFields:    3,
		Fields:       []string{"id", "name", "active"},
		Types:        []fieldtype.Type{fieldtype.Integer, fieldtype.Text, fieldtype.Boolean},
	}
	if !got.Equal(want) {
		t.Fatalf("SniffBytes()=\n%s\nwant\n%s", got, want)
	}
}

// TestSniffBytes_Delimiters verifies delimiter selection across the default
// candidate set and the extended-candidate path.
func TestSniffBytes_Delimiters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sample string
		want   byte
	}{
		{name: "comma", sample: "a,b,c\n1,2,3\n4,5,6\n", want: ','},
		{name: "semicolon", sample: "a;b;c\n1;2;3\n4;5;6\n", want: ';'},
		{name: "tab", sample: "a\tb\tc\n1\t2\t3\n4\t5\t6\n", want: '\t'},
		{name: "pipe", sample: "a|b|c\n1|2|3\n4|5|6\n", want: '|'},
		{name: "caret_via_extension", sample: "a^b^c\n1^2^3\n4^5^6\n", want: '^'},
		{name: "single_column_defaults_to_tab", sample: "alpha\nbeta\ngamma\n", want: '\t'},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := New(Options{}).SniffBytes([]byte(tc.sample))
			if err != nil {
				t.Fatalf("SniffBytes() err=%v", err)
			}
			if got.Dialect.Delimiter != tc.want {
				t.Fatalf("delimiter=%q, want %q", got.Dialect.Delimiter, tc.want)
			}
		})
	}
}

// TestSniffBytes_Quoting verifies quote detection and that quoted delimiters
// never affect the field count.
func TestSniffBytes_Quoting(t *testing.T) {
	t.Parallel()

	sample := []byte("name,comment\n\"Smith, John\",\"said \"\"hi\"\"\"\n\"Doe, Jane\",\"said nothing\"\n")

	got, err := New(Options{}).SniffBytes(sample)
	if err != nil {
		t.Fatalf("SniffBytes() err=%v", err)
	}
	if got.Dialect.Delimiter != ',' {
		t.Fatalf("delimiter=%q, want ','", got.Dialect.Delimiter)
	}
	if !got.Dialect.Quote.Enabled || got.Dialect.Quote.Char != '"' || !got.Dialect.Quote.DoubleQuote {
		t.Fatalf("quote=%+v, want doubled double quote", got.Dialect.Quote)
	}
	if got.NumFields != 2 {
		t.Fatalf("NumFields=%d, want 2 (quoted commas must stay inside fields)", got.NumFields)
	}
	if got.Dialect.Flexible {
		t.Fatalf("flexible=true, want false")
	}
}

// TestSniffBytes_CommentsAndEscapes verifies the remaining dialect axes.
func TestSniffBytes_CommentsAndEscapes(t *testing.T) {
	t.Parallel()

	t.Run("comment_lines", func(t *testing.T) {
		t.Parallel()
		sample := []byte("# generated nightly\na,b\n1,2\n# checksum\n3,4\n")
		got, err := New(Options{}).SniffBytes(sample)
		if err != nil {
			t.Fatalf("SniffBytes() err=%v", err)
		}
		if !got.Dialect.Comment.Enabled || got.Dialect.Comment.Char != '#' {
			t.Fatalf("comment=%+v, want '#'", got.Dialect.Comment)
		}
		if got.NumFields != 2 {
			t.Fatalf("NumFields=%d, want 2", got.NumFields)
		}
	})

	t.Run("backslash_escape", func(t *testing.T) {
		t.Parallel()
		sample := []byte("a,b\nx\\,y,z\nq,r\n")
		got, err := New(Options{}).SniffBytes(sample)
		if err != nil {
			t.Fatalf("SniffBytes() err=%v", err)
		}
		if !got.Dialect.Escape.Enabled || got.Dialect.Escape.Char != '\\' {
			t.Fatalf("escape=%+v, want backslash", got.Dialect.Escape)
		}
		// The schema must describe the escape-honoring split: every record
		// tokenizes to two fields, so the sample is not ragged.
		if got.NumFields != 2 {
			t.Fatalf("NumFields=%d, want 2", got.NumFields)
		}
		if got.Dialect.Flexible {
			t.Fatalf("Flexible=true, want false")
		}
	})

	t.Run("hash_delimiter_not_a_comment", func(t *testing.T) {
		t.Parallel()
		// '#' is the delimiter here; the row with an empty first field starts
		// with '#' and must survive as data, not vanish as a comment.
		sample := []byte("a#b#c\n#x#y\nd#e#f\n")
		got, err := New(Options{}).SniffBytes(sample)
		if err != nil {
			t.Fatalf("SniffBytes() err=%v", err)
		}
		if got.Dialect.Delimiter != '#' {
			t.Fatalf("delimiter=%q, want '#'", got.Dialect.Delimiter)
		}
		if got.Dialect.Comment.Enabled {
			t.Fatalf("comment=%+v, want disabled", got.Dialect.Comment)
		}
		if got.NumFields != 3 {
			t.Fatalf("NumFields=%d, want 3", got.NumFields)
		}
		if got.Dialect.Flexible {
			t.Fatalf("Flexible=true, want false")
		}
	})
}

// TestSniffBytes_RaggedRows verifies the flexible flag and the max-width
// field count.
func TestSniffBytes_RaggedRows(t *testing.T) {
	t.Parallel()

	sample := []byte("1,2,3\n4,5\n6,7,8\n9,10,11\n")
	got, err := New(Options{}).SniffBytes(sample)
	if err != nil {
		t.Fatalf("SniffBytes() err=%v", err)
	}
	if !got.Dialect.Flexible {
		t.Fatalf("flexible=false, want true")
	}
	if got.NumFields != 3 {
		t.Fatalf("NumFields=%d, want 3 (max row width)", got.NumFields)
	}
}

// TestSniffBytes_NoHeader verifies synthesized field names.
func TestSniffBytes_NoHeader(t *testing.T) {
	t.Parallel()

	sample := []byte("5,alpha\n6,beta\n7,gamma\n")
	got, err := New(Options{}).SniffBytes(sample)
	if err != nil {
		t.Fatalf("SniffBytes() err=%v", err)
	}
	if got.Dialect.Header.HasHeaderRow {
		t.Fatalf("HasHeaderRow=true, want false")
	}
	if want := []string{"field 0", "field 1"}; !reflect.DeepEqual(got.Fields, want) {
		t.Fatalf("Fields=%v, want %v", got.Fields, want)
	}
	if want := []fieldtype.Type{fieldtype.Integer, fieldtype.Text}; !reflect.DeepEqual(got.Types, want) {
		t.Fatalf("Types=%v, want %v", got.Types, want)
	}
}

// TestSniffBytes_CRLF verifies carriage returns never reach field values.
func TestSniffBytes_CRLF(t *testing.T) {
	t.Parallel()

	sample := []byte("id,name,active\r\n1,alpha,true\r\n2,beta,false\r\n")
	got, err := New(Options{}).SniffBytes(sample)
	if err != nil {
		t.Fatalf("SniffBytes() err=%v", err)
	}
	if !got.Dialect.Header.HasHeaderRow {
		t.Fatalf("HasHeaderRow=false, want true")
	}
	if got.Fields[1] != "name" {
		t.Fatalf("Fields[1]=%q, want %q", got.Fields[1], "name")
	}
}

// TestSniffBytes_NonUTF8 verifies the encoding flag.
func TestSniffBytes_NonUTF8(t *testing.T) {
	t.Parallel()

	sample := []byte("a,b\n1,caf\xe9\n2,x\n")
	got, err := New(Options{}).SniffBytes(sample)
	if err != nil {
		t.Fatalf("SniffBytes() err=%v", err)
	}
	if got.Dialect.IsUTF8 {
		t.Fatalf("IsUTF8=true for Latin-1 bytes, want false")
	}
}

// TestSniffBytes_Errors verifies both sentinel errors are returned wrapped.
func TestSniffBytes_Errors(t *testing.T) {
	t.Parallel()

	t.Run("empty_sample", func(t *testing.T) {
		t.Parallel()
		for _, sample := range [][]byte{nil, {}, []byte("   \n  \n")} {
			_, err := New(Options{}).SniffBytes(sample)
			if !errors.Is(err, ErrSampleTooSmall) {
				t.Fatalf("SniffBytes(%q) err=%v, want ErrSampleTooSmall", sample, err)
			}
		}
	})

	t.Run("no_consistent_delimiter", func(t *testing.T) {
		t.Parallel()
		sample := []byte("a,b\nc,d,e\nf,g,h,i\nj\n")
		_, err := New(Options{}).SniffBytes(sample)
		if !errors.Is(err, ErrNoConsistentDelimiter) {
			t.Fatalf("SniffBytes() err=%v, want ErrNoConsistentDelimiter", err)
		}
	})

	t.Run("threshold_is_tunable", func(t *testing.T) {
		t.Parallel()
		// The same sample passes when the caller lowers the bar.
		sample := []byte("a,b\nc,d,e\nf,g,h,i\nj\n")
		if _, err := New(Options{MinConfidence: 0.2}).SniffBytes(sample); err != nil {
			t.Fatalf("SniffBytes() err=%v, want nil at MinConfidence=0.2", err)
		}
	})
}

// TestSniffBytes_Deterministic verifies sniffing the same bytes twice gives
// identical results.
func TestSniffBytes_Deterministic(t *testing.T) {
	t.Parallel()

	sample := []byte("x;y;z\n1;2;3\n4;5;6\n7;8;9\n")
	s := New(Options{})
	a, err := s.SniffBytes(sample)
	if err != nil {
		t.Fatalf("first SniffBytes() err=%v", err)
	}
	b, err := s.SniffBytes(sample)
	if err != nil {
		t.Fatalf("second SniffBytes() err=%v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("results differ:\n%s\n%s", a, b)
	}
}

// TestSniffReader verifies prefix materialization and the partial-line cut.
func TestSniffReader(t *testing.T) {
	t.Parallel()

	t.Run("cuts_partial_trailing_line", func(t *testing.T) {
		t.Parallel()
		var sb strings.Builder
		sb.WriteString("id,value\n")
		for i := 0; i < 100; i++ {
			fmt.Fprintf(&sb, "%d,%d\n", i, i*10)
		}
		// A limit that lands mid-row: the trailing fragment must not skew
		// the field counts.
		s := New(Options{MaxBytes: 103})
		got, err := s.SniffReader(context.Background(), strings.NewReader(sb.String()))
		if err != nil {
			t.Fatalf("SniffReader() err=%v", err)
		}
		if got.Dialect.Delimiter != ',' || got.NumFields != 2 {
			t.Fatalf("delimiter=%q fields=%d, want ',' and 2", got.Dialect.Delimiter, got.NumFields)
		}
		if got.Dialect.Flexible {
			t.Fatalf("flexible=true; partial trailing line leaked into scoring")
		}
	})

	t.Run("canceled_context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(Options{}).SniffReader(ctx, strings.NewReader("a,b\n1,2\n"))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("SniffReader() err=%v, want context.Canceled", err)
		}
	})
}

// TestSniffURL verifies URL normalization and the HTML fallback using the
// fetch seam, so no real I/O happens.
func TestSniffURL(t *testing.T) {
	orig := peekFn
	t.Cleanup(func() { peekFn = orig })

	t.Run("bare_path_becomes_file_url", func(t *testing.T) {
		var gotURL string
		peekFn = func(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
			gotURL = url
			return []byte("a,b\n1,2\n3,4\n"), nil
		}

		md, err := New(Options{}).SniffURL(context.Background(), "/data/input.csv")
		if err != nil {
			t.Fatalf("SniffURL() err=%v", err)
		}
		if gotURL != "file:///data/input.csv" {
			t.Fatalf("peek url=%q, want file:///data/input.csv", gotURL)
		}
		if md.Dialect.Delimiter != ',' {
			t.Fatalf("delimiter=%q, want ','", md.Dialect.Delimiter)
		}
	})

	t.Run("html_sample_extracts_table", func(t *testing.T) {
		page := `<!DOCTYPE html><html><body><table>
<tr><th>id</th><th>name</th><th>active</th></tr>
<tr><td>1</td><td>alpha</td><td>true</td></tr>
<tr><td>2</td><td>beta</td><td>false</td></tr>
</table></body></html>`
		peekFn = func(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
			return []byte(page), nil
		}

		md, err := New(Options{}).SniffURL(context.Background(), "https://example.com/list")
		if err != nil {
			t.Fatalf("SniffURL() err=%v", err)
		}
		if md.Dialect.Delimiter != ',' || md.NumFields != 3 {
			t.Fatalf("delimiter=%q fields=%d, want ',' and 3", md.Dialect.Delimiter, md.NumFields)
		}
		if !md.Dialect.Header.HasHeaderRow {
			t.Fatalf("HasHeaderRow=false, want true for th cells over typed rows")
		}
	})

	t.Run("peek_error_propagates", func(t *testing.T) {
		injected := errors.New("connection refused")
		peekFn = func(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
			return nil, injected
		}
		_, err := New(Options{}).SniffURL(context.Background(), "https://example.com/x.csv")
		if !errors.Is(err, injected) {
			t.Fatalf("SniffURL() err=%v, want wrapped injected error", err)
		}
	})
}

// TestPeek verifies the sample materialization SniffURL is built on: callers
// that need the raw sample (for size accounting, or to sniff it themselves)
// get exactly the bytes the sniff would see.
func TestPeek(t *testing.T) {
	orig := peekFn
	t.Cleanup(func() { peekFn = orig })

	t.Run("returns_fetched_sample", func(t *testing.T) {
		peekFn = func(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
			return []byte("a,b\n1,2\n"), nil
		}
		sample, err := New(Options{}).Peek(context.Background(), "file:///data/input.csv")
		if err != nil {
			t.Fatalf("Peek() err=%v", err)
		}
		if string(sample) != "a,b\n1,2\n" {
			t.Fatalf("sample=%q", sample)
		}
	})

	t.Run("html_sample_converted", func(t *testing.T) {
		page := `<html><body><table>
<tr><td>1</td><td>x</td></tr>
<tr><td>2</td><td>y</td></tr>
</table></body></html>`
		peekFn = func(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
			return []byte(page), nil
		}
		sample, err := New(Options{}).Peek(context.Background(), "https://example.com/list")
		if err != nil {
			t.Fatalf("Peek() err=%v", err)
		}
		if string(sample) != "1,x\n2,y\n" {
			t.Fatalf("sample=%q, want extracted delimited text", sample)
		}
	})

	t.Run("full_prefix_drops_partial_record", func(t *testing.T) {
		peekFn = func(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
			return []byte("a,b\n1,2\n3,"), nil
		}
		sample, err := New(Options{MaxBytes: 11}).Peek(context.Background(), "file:///data/input.csv")
		if err != nil {
			t.Fatalf("Peek() err=%v", err)
		}
		if string(sample) != "a,b\n1,2\n" {
			t.Fatalf("sample=%q, want trailing partial record dropped", sample)
		}
	})
}

// TestNewDefaults verifies zero-value options pick up every default.
func TestNewDefaults(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	if s.opt.MaxBytes != DefaultMaxBytes {
		t.Fatalf("MaxBytes=%d, want %d", s.opt.MaxBytes, DefaultMaxBytes)
	}
	if s.opt.MaxRows != DefaultMaxRows {
		t.Fatalf("MaxRows=%d, want %d", s.opt.MaxRows, DefaultMaxRows)
	}
	if !reflect.DeepEqual(s.opt.Delimiters, DefaultDelimiters) {
		t.Fatalf("Delimiters=%v, want defaults", s.opt.Delimiters)
	}
	if s.opt.MinConfidence != DefaultMinConfidence {
		t.Fatalf("MinConfidence=%v, want %v", s.opt.MinConfidence, DefaultMinConfidence)
	}
	if s.opt.PreambleMaxLines != DefaultPreambleMaxLines {
		t.Fatalf("PreambleMaxLines=%d, want %d", s.opt.PreambleMaxLines, DefaultPreambleMaxLines)
	}
}
