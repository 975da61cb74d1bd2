// Package fieldtype defines the closed lattice of column value types used by
// the sniffer, together with per-value classification and the widening (join)
// rule that computes the most general type accommodating a column's sample.
//
// The lattice is two chains sharing a bottom and a top:
//
//	Unknown ⊏ Boolean ⊏ Integer ⊏ Float ⊏ Text
//	Unknown ⊏ Date    ⊏ DateTime        ⊏ Text
//
// Unknown is the contribution of an empty value (compatible with anything);
// Text absorbs everything. The numeric and temporal chains only meet at Text.
package fieldtype

import (
	"strconv"
	"strings"
	"time"
)

// Type is one point of the inference lattice.
type Type int

const (
	// Unknown is the bottom of the lattice: an empty value, or a column for
	// which no meaningful value has been observed yet.
	Unknown Type = iota
	// Boolean values come from a fixed, case-insensitive literal set.
	Boolean
	// Integer values parse as whole numbers with an optional sign.
	Integer
	// Float values parse as real numbers (including integers too large for
	// int64, which widen here rather than failing).
	Float
	// Date values parse under one of the known date-only layouts.
	Date
	// DateTime values parse under one of the known timestamp layouts.
	DateTime
	// Text is the top of the lattice and absorbs every other type.
	Text

	typeCount = iota
)

func (t Type) String() string {
	switch t {
	case Unknown:
		return "unknown"
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	default:
		return "text"
	}
}

// joinTable is the explicit join over the lattice. Keeping this as a table
// (rather than cascading conditionals) keeps the widening rule auditable and
// makes adding a type a local change.
//
// Rows are the left operand, columns the right; the table is symmetric.
var joinTable = [typeCount][typeCount]Type{
	//             Unknown   Boolean   Integer   Float     Date      DateTime  Text
	Unknown:  {Unknown, Boolean, Integer, Float, Date, DateTime, Text},
	Boolean:  {Boolean, Boolean, Integer, Float, Text, Text, Text},
	Integer:  {Integer, Integer, Integer, Float, Text, Text, Text},
	Float:    {Float, Float, Float, Float, Text, Text, Text},
	Date:     {Date, Text, Text, Text, Date, DateTime, Text},
	DateTime: {DateTime, Text, Text, Text, DateTime, DateTime, Text},
	Text:     {Text, Text, Text, Text, Text, Text, Text},
}

// Join returns the most general type accommodating both operands.
func Join(a, b Type) Type {
	if a < 0 || int(a) >= typeCount || b < 0 || int(b) >= typeCount {
		return Text
	}
	return joinTable[a][b]
}

// Classify maps one raw field value onto the lattice.
//
// Classification tries the most specific types first: empty, boolean,
// integer, float, date, datetime, then text. Every predicate is total; an
// integer too large for int64 still parses as a float and therefore widens
// to Float instead of failing.
func Classify(s string) Type {
	v := strings.TrimSpace(s)
	if v == "" {
		return Unknown
	}
	if _, ok := ParseBool(v); ok {
		return Boolean
	}
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return Integer
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return Float
	}
	if _, _, ok := ParseDate(v); ok {
		return Date
	}
	if _, _, ok := ParseDateTime(v); ok {
		return DateTime
	}
	return Text
}

// ClassifyColumn joins the classifications of every value in a column sample.
// An empty sample (or all-empty values) yields Unknown; callers decide how to
// report that (the sniffer reports it as Text).
func ClassifyColumn(values []string) Type {
	out := Unknown
	for _, v := range values {
		out = Join(out, Classify(v))
		if out == Text {
			break
		}
	}
	return out
}

// ParseBool parses the permissive boolean literal set. The second return
// value reports whether s is a recognized literal.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"02.01.2006 15:04:05",
}

// ParseDate parses a date-only value, returning the matched layout.
func ParseDate(s string) (time.Time, string, bool) {
	s = strings.TrimSpace(s)
	for _, lay := range dateLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, lay, true
		}
	}
	return time.Time{}, "", false
}

// ParseDateTime parses a timestamp value, returning the matched layout.
func ParseDateTime(s string) (time.Time, string, bool) {
	s = strings.TrimSpace(s)
	for _, lay := range dateTimeLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, lay, true
		}
	}
	return time.Time{}, "", false
}
