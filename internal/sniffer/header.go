package sniffer

import "sniff/internal/fieldtype"

// detectHeader decides whether row 0 of the structural rows is a label row.
//
// For each column it compares the type of row 0's value against the joined
// type of the remaining rows. A column votes "header" when row 0's type is
// strictly more general than the data type (classically: Text over Integer);
// a label looks like text where the data does not. Header is declared only
// on a strict majority of columns.
//
// Ties and thin samples default to "no header": mistaking a data row for a
// header silently discards a record, while the reverse only mislabels
// columns.
func detectHeader(rows [][]string, maxRows int) bool {
	if len(rows) < 2 {
		return false
	}
	body := rows[1:]
	if maxRows > 0 && len(body) > maxRows {
		body = body[:maxRows]
	}

	cols := len(rows[0])
	if cols < 2 {
		return false
	}

	headerish := 0
	for c := 0; c < cols; c++ {
		rowZero := fieldtype.Classify(rows[0][c])
		data := columnType(body, c)
		if data == fieldtype.Unknown || rowZero == fieldtype.Unknown {
			continue
		}
		if rowZero != data && fieldtype.Join(rowZero, data) == rowZero {
			headerish++
		}
	}
	return headerish*2 > cols
}

// columnType joins the classifications of column c over the given rows,
// skipping rows too short to have the column.
func columnType(rows [][]string, c int) fieldtype.Type {
	out := fieldtype.Unknown
	for _, r := range rows {
		if c >= len(r) {
			continue
		}
		out = fieldtype.Join(out, fieldtype.Classify(r[c]))
		if out == fieldtype.Text {
			break
		}
	}
	return out
}
