// Package charset handles text-encoding concerns at the sniffing boundary:
// BOM stripping and a byte-preserving decode path for samples that fail
// UTF-8 validation.
//
// The sniffer's heuristics are byte-oriented and work on non-UTF-8 input;
// this package exists for consumers (display, parsing, loading) that need
// well-formed text. Windows-1252 is used as the fallback single-byte
// decoding: it is a superset of Latin-1 and the overwhelmingly common source
// of "not quite UTF-8" CSV exports, and every byte decodes, so the pipeline
// never fails on encoding.
package charset

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StripBOM removes a leading UTF-8 byte order mark, if present.
func StripBOM(sample []byte) []byte {
	return bytes.TrimPrefix(sample, utf8BOM)
}

// DecodeBytes returns sample as valid UTF-8 text. Valid input (after BOM
// stripping) is returned unchanged; everything else is decoded from
// Windows-1252, which cannot fail.
func DecodeBytes(sample []byte) []byte {
	sample = StripBOM(sample)
	if utf8.Valid(sample) {
		return sample
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), sample)
	if err != nil {
		// Windows-1252 decodes every byte; this is unreachable in practice,
		// but fall back to the raw bytes rather than dropping data.
		return sample
	}
	return out
}

// NewReader wraps r so downstream consumers always read UTF-8.
//
// When isUTF8 is true (the sniffed sample validated as text) the stream is
// only BOM-stripped; otherwise it is decoded from Windows-1252. Callers pass
// Dialect.IsUTF8 straight through.
func NewReader(r io.Reader, isUTF8 bool) io.Reader {
	if isUTF8 {
		// UTF8BOM's decoder strips a leading BOM when present and passes
		// BOM-less input through untouched.
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	}
	return transform.NewReader(r, charmap.Windows1252.NewDecoder())
}
