// Command sniff infers the dialect and schema of a delimited-text source by
// sampling a bounded prefix.
//
// It reads a bounded prefix of the input (default 20KB), infers the
// delimiter, quoting and escaping conventions, preamble and header presence,
// and per-column types, and emits either:
//
//   - A human-readable report (default), or
//   - A JSON document (-json) suitable for scripting.
//
// Supported sources:
//   - http:// and https:// URLs (fetched with a Range request)
//   - file:// URLs
//   - bare local paths (treated as file:// internally)
//
// HTML pages containing a <table> are converted to delimited text before
// sniffing, so the command also works against simple tabular web pages.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"sniff/internal/fieldtype"
	"sniff/internal/metadata"
	"sniff/internal/sniffer"
)

func main() {
	var (
		// flagURL is the URL or local filesystem path of the source.
		flagURL = flag.String("url", "", "URL or path of the delimited-text source")

		// flagBytes controls how many bytes are sampled from the start of the
		// input. Larger values can improve inference quality at the cost of
		// slightly more time and memory.
		flagBytes = flag.Int("bytes", sniffer.DefaultMaxBytes, "Number of bytes to sample from the start of the source")

		// flagRows bounds how many structural rows the scoring, header, and
		// type passes examine.
		flagRows = flag.Int("rows", sniffer.DefaultMaxRows, "Maximum number of sample rows to examine")

		// flagMinConfidence is the fraction of rows that must agree on a field
		// count before a delimiter is accepted.
		flagMinConfidence = flag.Float64("min-confidence", sniffer.DefaultMinConfidence, "Minimum fraction of rows that must agree on the field count")

		// flagDelimiters overrides the candidate delimiter set. Each byte of
		// the string is one candidate; "\\t" is accepted for tab.
		flagDelimiters = flag.String("delimiters", "", `Candidate delimiter bytes, e.g. ",;|" (default: comma, tab, semicolon, pipe)`)

		// flagJSON switches output from the human-readable report to JSON.
		flagJSON = flag.Bool("json", false, "Emit JSON instead of the human-readable report")

		// flagPretty controls JSON indentation. Ignored without -json.
		flagPretty = flag.Bool("pretty", true, "Pretty-print JSON output")

		// flagAllowInsecure controls TLS certificate verification for HTTP
		// sources. Useful for internal endpoints with self-signed certs;
		// prefer false in production.
		flagAllowInsecure = flag.Bool("allow-insecure", false, "Allow insecure TLS")
	)
	flag.Parse()

	// Validate required inputs early and exit with a usage hint.
	if strings.TrimSpace(*flagURL) == "" {
		fmt.Fprintln(os.Stderr, "missing -url")
		flag.Usage()
		os.Exit(2)
	}

	delims, err := parseDelimiters(*flagDelimiters)
	if err != nil {
		log.Fatalf("delimiters: %v", err)
	}

	// Bound the run. Sniffing should be fast and predictable; if the source
	// is slow or unreachable we prefer to fail quickly rather than hang.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s := sniffer.New(sniffer.Options{
		MaxBytes:         *flagBytes,
		MaxRows:          *flagRows,
		Delimiters:       delims,
		MinConfidence:    *flagMinConfidence,
		AllowInsecureTLS: *flagAllowInsecure,
	})

	md, err := s.SniffURL(ctx, *flagURL)
	if err != nil {
		log.Fatalf("sniff: %v", err)
	}

	if !*flagJSON {
		fmt.Fprint(os.Stdout, md.String())
		return
	}

	enc := json.NewEncoder(os.Stdout)
	if *flagPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(toJSON(md)); err != nil {
		log.Fatalf("encode metadata: %v", err)
	}
}

// parseDelimiters converts a -delimiters string into candidate bytes.
//
// Each byte of the input is one candidate. The two-character sequence "\t"
// is folded into a literal tab so shells don't need to pass a real tab byte.
func parseDelimiters(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	s = strings.ReplaceAll(s, `\t`, "\t")
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 {
			return nil, fmt.Errorf("candidate %q is not a single byte", c)
		}
		out = append(out, c)
	}
	return out, nil
}

// jsonMetadata is the stable JSON shape emitted by -json.
//
// It flattens the dialect into scripting-friendly scalars: bytes become
// one-character strings, types become their names.
type jsonMetadata struct {
	Delimiter    string   `json:"delimiter"`
	HasHeader    bool     `json:"has_header"`
	PreambleRows int      `json:"preamble_rows"`
	Quote        string   `json:"quote,omitempty"`
	DoubleQuote  bool     `json:"double_quote,omitempty"`
	Escape       string   `json:"escape,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	Flexible     bool     `json:"flexible"`
	IsUTF8       bool     `json:"is_utf8"`
	AvgRecordLen int      `json:"avg_record_len"`
	NumFields    int      `json:"num_fields"`
	Fields       []string `json:"fields"`
	Types        []string `json:"types"`
}

func toJSON(md metadata.Metadata) jsonMetadata {
	out := jsonMetadata{
		Delimiter:    string(rune(md.Dialect.Delimiter)),
		HasHeader:    md.Dialect.Header.HasHeaderRow,
		PreambleRows: md.Dialect.Header.NumPreambleRows,
		Flexible:     md.Dialect.Flexible,
		IsUTF8:       md.Dialect.IsUTF8,
		AvgRecordLen: md.AvgRecordLen,
		NumFields:    md.NumFields,
		Fields:       md.Fields,
		Types:        typeNames(md.Types),
	}
	if md.Dialect.Quote.Enabled {
		out.Quote = string(rune(md.Dialect.Quote.Char))
		out.DoubleQuote = md.Dialect.Quote.DoubleQuote
	}
	if md.Dialect.Escape.Enabled {
		out.Escape = string(rune(md.Dialect.Escape.Char))
	}
	if md.Dialect.Comment.Enabled {
		out.Comment = string(rune(md.Dialect.Comment.Char))
	}
	return out
}

func typeNames(types []fieldtype.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
