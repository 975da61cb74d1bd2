package main

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"sniff/internal/fieldtype"
	"sniff/internal/metadata"
)

func TestParseDelimiters(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{"", nil, false},
		{",", []byte{','}, false},
		{",;|", []byte{',', ';', '|'}, false},
		{`\t`, []byte{'\t'}, false},
		{`,\t;`, []byte{',', '\t', ';'}, false},
		{"é", nil, true},
	}
	for _, tt := range tests {
		got, err := parseDelimiters(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDelimiters(%q) err = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseDelimiters(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToJSON(t *testing.T) {
	md := metadata.Metadata{
		Dialect: metadata.Dialect{
			Delimiter: '\t',
			Header:    metadata.Header{HasHeaderRow: true, NumPreambleRows: 2},
			Quote:     metadata.Quote{Enabled: true, Char: '"', DoubleQuote: true},
			Comment:   metadata.Comment{Enabled: true, Char: '#'},
			Flexible:  true,
			IsUTF8:    true,
		},
		AvgRecordLen: 17,
		NumFields:    2,
		Fields:       []string{"id", "name"},
		Types:        []fieldtype.Type{fieldtype.Integer, fieldtype.Text},
	}

	got := toJSON(md)
	want := jsonMetadata{
		Delimiter:    "\t",
		HasHeader:    true,
		PreambleRows: 2,
		Quote:        `"`,
		DoubleQuote:  true,
		Comment:      "#",
		Flexible:     true,
		IsUTF8:       true,
		AvgRecordLen: 17,
		NumFields:    2,
		Fields:       []string{"id", "name"},
		Types:        []string{"integer", "text"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("toJSON:\n got %+v\nwant %+v", got, want)
	}
}

func TestToJSON_OmitsDisabledConventions(t *testing.T) {
	md := metadata.Metadata{
		Dialect: metadata.Dialect{
			Delimiter: ',',
			IsUTF8:    true,
		},
		NumFields: 1,
		Fields:    []string{"field 0"},
		Types:     []fieldtype.Type{fieldtype.Text},
	}

	raw, err := json.Marshal(toJSON(md))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	for _, key := range []string{`"quote"`, `"double_quote"`, `"escape"`, `"comment"`} {
		if strings.Contains(s, key) {
			t.Errorf("output contains %s for disabled convention: %s", key, s)
		}
	}
	if !strings.Contains(s, `"delimiter":","`) {
		t.Errorf("missing delimiter in %s", s)
	}
	// Always-present booleans even when false.
	if !strings.Contains(s, `"has_header":false`) || !strings.Contains(s, `"flexible":false`) {
		t.Errorf("missing always-on fields in %s", s)
	}
}

func TestToJSON_EscapeDialect(t *testing.T) {
	md := metadata.Metadata{
		Dialect: metadata.Dialect{
			Delimiter: ',',
			Escape:    metadata.Escape{Enabled: true, Char: '\\'},
		},
	}
	if got := toJSON(md).Escape; got != `\` {
		t.Errorf("Escape = %q, want backslash", got)
	}
}
