// Package htmltable converts the dominant <table> of an HTML page into
// delimited text, so that table-bearing web pages can be sniffed and parsed
// like delimited files.
//
// Extraction is best-effort and resilient: malformed rows are skipped rather
// than failing the page, and nested tables contribute their own rows only.
package htmltable

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LooksLikeHTML reports whether the sample is plausibly an HTML document
// rather than delimited text. Detection is heuristic and intentionally
// conservative: a leading '<' plus a recognizable document or table tag.
func LooksLikeHTML(sample []byte) bool {
	trim := bytes.TrimSpace(sample)
	if len(trim) == 0 || trim[0] != '<' {
		return false
	}
	lower := bytes.ToLower(trim)
	for _, tag := range [][]byte{[]byte("<!doctype html"), []byte("<html"), []byte("<table"), []byte("<body")} {
		if bytes.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// ToDelimited parses the HTML sample, selects the <table> with the most
// rows, and renders it as delimiter-separated text with RFC-style
// double-quote quoting for cells containing the delimiter, quotes, or
// newlines.
//
// Returns an error when the document cannot be parsed or contains no table
// rows.
func ToDelimited(sample []byte, delim byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(sample))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := dominantTable(doc)
	if table == nil {
		return nil, fmt.Errorf("no <table> found in html sample")
	}

	var b bytes.Buffer
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Skip rows that belong to a nested table.
		if tr.Closest("table").Get(0) != table.Get(0) {
			return
		}

		cells := tr.Find("th, td")
		if cells.Length() == 0 {
			return
		}
		cells.Each(func(i int, cell *goquery.Selection) {
			if i > 0 {
				b.WriteByte(delim)
			}
			b.WriteString(quoteCell(cellText(cell), delim))
		})
		b.WriteByte('\n')
	})

	if b.Len() == 0 {
		return nil, fmt.Errorf("table contained no rows")
	}
	return b.Bytes(), nil
}

// dominantTable returns the table selection with the most rows, or nil when
// the document has none.
func dominantTable(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestRows := 0
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		rows := t.Find("tr").Length()
		if rows > bestRows {
			best = t
			bestRows = rows
		}
	})
	return best
}

// cellText flattens a cell to single-line text.
func cellText(cell *goquery.Selection) string {
	s := strings.TrimSpace(cell.Text())
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}

// quoteCell wraps the cell in double quotes (doubling embedded quotes) when
// it contains the delimiter or a quote byte.
func quoteCell(s string, delim byte) string {
	if !strings.ContainsAny(s, string(rune(delim))+`"`) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
