package sniffer

import "bytes"

// preambleLookahead is the number of lines examined after a candidate table
// start to establish that a consistent multi-field structure begins there.
const preambleLookahead = 5

// detectPreamble returns the number of leading non-tabular lines (titles,
// blank lines, free text) preceding the table. At most maxLines lines are
// examined.
//
// A line is non-tabular when no delimiter candidate splits it into more than
// one field (quote-aware, so a quoted field containing delimiters does not
// make a title line look tabular). The preamble ends at the first line from
// which a strict majority of the following lines split consistently into the
// same multi-field count under some common candidate.
//
// Files with too few lines to establish consistency, and files that are
// genuinely single-column, return 0: assuming no preamble is always safer
// than discarding data rows.
func detectPreamble(lines [][]byte, candidates []byte, maxLines int) int {
	if maxLines <= 0 || maxLines > len(lines) {
		maxLines = len(lines)
	}

	start := 0
	for start < maxLines && nonTabularLine(lines[start], candidates) {
		start++
	}
	if start == 0 || start >= len(lines) {
		return 0
	}
	if !consistentTableFrom(lines[start:], candidates) {
		return 0
	}
	return start
}

// nonTabularLine reports whether no candidate splits the line into more than
// one field.
func nonTabularLine(line []byte, candidates []byte) bool {
	for _, d := range candidates {
		if countFieldsQuoted(line, d, '"') > 1 {
			return false
		}
	}
	return true
}

// consistentTableFrom reports whether a strict majority of the first
// preambleLookahead lines share a multi-field count under some candidate.
func consistentTableFrom(lines [][]byte, candidates []byte) bool {
	n := len(lines)
	if n > preambleLookahead {
		n = preambleLookahead
	}
	if n < 2 {
		return false
	}

	for _, d := range candidates {
		counts := make(map[int]int, n)
		for _, line := range lines[:n] {
			counts[countFieldsQuoted(line, d, '"')]++
		}
		for c, freq := range counts {
			if c >= 2 && freq*2 > n {
				return true
			}
		}
	}
	return false
}

// countFieldsQuoted counts fields in line under delimiter d, treating the
// given quote byte as protecting embedded delimiters (doubled quotes stay
// inside the quoted region).
func countFieldsQuoted(line []byte, d, quote byte) int {
	n := 1
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case quote:
			if inQuote && i+1 < len(line) && line[i+1] == quote {
				i++ // doubled quote, stay quoted
				continue
			}
			inQuote = !inQuote
		case d:
			if !inQuote {
				n++
			}
		}
	}
	return n
}

// splitQuoteAware splits line on d honoring the quote convention: quote
// bytes wrapping a field are stripped, and (when doubled is set) a doubled
// quote inside a quoted region yields one literal quote. With quoting
// disabled it is a plain byte split.
func splitQuoteAware(line []byte, d, quote byte, quoted, doubled bool) []string {
	if !quoted {
		parts := bytes.Split(line, []byte{d})
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = string(p)
		}
		return out
	}

	var out []string
	var field bytes.Buffer
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == quote:
			if inQuote && doubled && i+1 < len(line) && line[i+1] == quote {
				field.WriteByte(quote)
				i++
				continue
			}
			inQuote = !inQuote
		case c == d && !inQuote:
			out = append(out, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	out = append(out, field.String())
	return out
}
