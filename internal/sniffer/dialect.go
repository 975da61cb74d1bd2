package sniffer

import (
	"bytes"
	"sort"

	"sniff/internal/metadata"
)

// DefaultDelimiters is the fixed candidate set tested against every sample.
// Options.Delimiters overrides it; extendCandidates may add bytes that repeat
// at regular per-line frequencies.
var DefaultDelimiters = []byte{',', '\t', ';', '|'}

// quoteCandidates are the bytes considered during quote detection.
var quoteCandidates = []byte{'"', '\''}

// delimScore is the structural-consistency score of one delimiter candidate.
type delimScore struct {
	delim byte
	// score is the fraction of scored rows whose quote-naive field count
	// equals the modal field count.
	score float64
	// modal is the most frequent field count.
	modal int
	// distinct is the number of distinct field-count values observed
	// (first tie-breaker: fewer is more consistent).
	distinct int
}

// scoreDelimiters scores every candidate over the (preamble-stripped) sample
// lines and returns the candidates ordered best-first.
//
// Ordering: higher score, then fewer distinct field-count values, then the
// lexicographically smallest delimiter byte. Candidates whose modal field
// count is 1 (no real split) sort after every candidate that reaches a field
// count of 2, regardless of score.
func scoreDelimiters(lines [][]byte, candidates []byte) []delimScore {
	scores := make([]delimScore, 0, len(candidates))
	for _, d := range candidates {
		scores = append(scores, scoreOne(lines, d))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if (a.modal >= 2) != (b.modal >= 2) {
			return a.modal >= 2
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if a.distinct != b.distinct {
			return a.distinct < b.distinct
		}
		return a.delim < b.delim
	})
	return scores
}

func scoreOne(lines [][]byte, d byte) delimScore {
	counts := make(map[int]int)
	for _, line := range lines {
		counts[bytes.Count(line, []byte{d})+1]++
	}

	modal, modalFreq, total := 1, 0, 0
	for c, freq := range counts {
		total += freq
		if freq > modalFreq || (freq == modalFreq && c > modal) {
			modal, modalFreq = c, freq
		}
	}
	if total == 0 {
		return delimScore{delim: d, modal: 1, distinct: 1}
	}
	return delimScore{
		delim:    d,
		score:    float64(modalFreq) / float64(total),
		modal:    modal,
		distinct: len(counts),
	}
}

// extendCandidates adds bytes that appear with an identical positive count on
// a strict majority of lines: a file delimited by an unusual byte (caret,
// unit separator, ...) shows that byte at regular per-line frequency.
// Letters, digits, space, and quote bytes never become candidates.
func extendCandidates(lines [][]byte, base []byte) []byte {
	if len(lines) < 2 {
		return base
	}

	known := make(map[byte]bool, len(base)+len(quoteCandidates))
	for _, d := range base {
		known[d] = true
	}
	for _, q := range quoteCandidates {
		known[q] = true
	}

	// freq[b] maps per-line occurrence counts to line counts.
	freq := make(map[byte]map[int]int)
	for _, line := range lines {
		var perLine [256]int
		for _, c := range line {
			perLine[c]++
		}
		for b := 0; b < 256; b++ {
			if perLine[b] == 0 {
				continue
			}
			c := byte(b)
			if known[c] || c == ' ' || c == '.' || c == '-' ||
				(c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c >= 0x80 {
				continue
			}
			if freq[c] == nil {
				freq[c] = make(map[int]int)
			}
			freq[c][perLine[b]]++
		}
	}

	out := append([]byte(nil), base...)
	for b, counts := range freq {
		for _, n := range counts {
			if n*2 > len(lines) {
				out = append(out, b)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// detectQuote looks for a byte that consistently wraps fields of the winning
// delimiter's rows. A quote byte must wrap fields at matching positions in at
// least two rows to count. The doubled flag is set when a doubled quote
// sequence is observed inside a quoted field.
func detectQuote(lines [][]byte, d byte) metadata.Quote {
	votes := make(map[byte]map[int]map[int]bool) // quote -> field index -> row set

	for rowIx, line := range lines {
		fields := bytes.Split(line, []byte{d})
		for fieldIx, f := range fields {
			f = bytes.TrimSpace(f)
			if len(f) < 2 {
				continue
			}
			for _, q := range quoteCandidates {
				if f[0] != q || f[len(f)-1] != q {
					continue
				}
				if votes[q] == nil {
					votes[q] = make(map[int]map[int]bool)
				}
				if votes[q][fieldIx] == nil {
					votes[q][fieldIx] = make(map[int]bool)
				}
				votes[q][fieldIx][rowIx] = true
			}
		}
	}

	for _, q := range quoteCandidates {
		for _, rows := range votes[q] {
			if len(rows) < 2 {
				continue
			}
			return metadata.QuoteSome(q, hasDoubledQuote(lines, q))
		}
	}
	return metadata.QuoteNone()
}

// hasDoubledQuote reports whether any line contains a doubled quote sequence
// strictly inside a quoted region.
func hasDoubledQuote(lines [][]byte, q byte) bool {
	pair := []byte{q, q}
	for _, line := range lines {
		ix := bytes.Index(line, pair)
		if ix <= 0 || ix+2 >= len(line) {
			continue
		}
		return true
	}
	return false
}

// detectEscape enables backslash escaping only when quoting is disabled and a
// backslash is observed immediately before a delimiter byte: that is the only
// way an unquoted dialect can carry embedded delimiters.
func detectEscape(lines [][]byte, d byte, quote metadata.Quote) metadata.Escape {
	if quote.Enabled {
		return metadata.EscapeNone()
	}
	seq := []byte{'\\', d}
	for _, line := range lines {
		if bytes.Contains(line, seq) {
			return metadata.EscapeSome('\\')
		}
	}
	return metadata.EscapeNone()
}

// splitCommentLines partitions body lines into structural lines and
// '#'-prefixed comment lines. Comments are only recognized when '#' is not
// the active delimiter and at least one line starts with it; the original
// dialect axes include comments but inference stays conservative.
func splitCommentLines(lines [][]byte, d byte) (structural [][]byte, comment metadata.Comment) {
	const commentByte = '#'
	if d == commentByte {
		return lines, metadata.CommentNone()
	}

	structural = lines[:0:0]
	found := false
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 && trimmed[0] == commentByte {
			found = true
			continue
		}
		structural = append(structural, line)
	}
	if !found {
		return lines, metadata.CommentNone()
	}
	return structural, metadata.CommentSome(commentByte)
}

// parseRows splits every structural line into fields under the detected
// dialect (quote- and escape-aware) and reports whether field counts vary.
// The split must match what the configured tokenizer will later produce, or
// the reported schema would contradict the dialect.
func parseRows(lines [][]byte, d byte, quote metadata.Quote, escape metadata.Escape) (rows [][]string, flexible bool) {
	rows = make([][]string, 0, len(lines))
	width := -1
	for _, line := range lines {
		var fields []string
		if escape.Enabled {
			fields = splitEscapeAware(line, d, escape.Char)
		} else {
			fields = splitQuoteAware(line, d, quote.Char, quote.Enabled, quote.DoubleQuote)
		}
		for i := range fields {
			fields[i] = trimField(fields[i])
		}
		if width == -1 {
			width = len(fields)
		} else if len(fields) != width {
			flexible = true
		}
		rows = append(rows, fields)
	}
	return rows, flexible
}

// splitEscapeAware splits line on d, treating esc as protecting the byte
// that follows it. A trailing escape with nothing after it is kept literal.
func splitEscapeAware(line []byte, d, esc byte) []string {
	var out []string
	var field bytes.Buffer
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == esc && i+1 < len(line):
			field.WriteByte(line[i+1])
			i++
		case c == d:
			out = append(out, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	out = append(out, field.String())
	return out
}

func trimField(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\r') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
