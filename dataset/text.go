package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/radbase/scenario"
)

// TextError reports a malformed line of a delimited text block.
type TextError struct {
	Line   int // 1-indexed
	Fields int
	cause  error
}

func (e *TextError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("dataset: text line %d: %v", e.Line, e.cause)
	}
	return fmt.Sprintf("dataset: text line %d: %d fields, want %d", e.Line, e.Fields, scenario.RowWidth)
}

func (e *TextError) Unwrap() error { return e.cause }

// AppendText appends rows to dst as space-separated %.18e text, one row per
// line.
func AppendText(dst []byte, rows []scenario.Row) []byte {
	for i := range rows {
		for j, v := range rows[i] {
			if j > 0 {
				dst = append(dst, ' ')
			}
			dst = strconv.AppendFloat(dst, v, 'e', 18, 64)
		}
		dst = append(dst, '\n')
	}
	return dst
}

// WriteText writes rows to w in the AppendText layout.
func WriteText(w io.Writer, rows []scenario.Row) error {
	_, err := w.Write(AppendText(nil, rows))
	return err
}

// ReadText decodes delimited text into rows.
//
// Fields are separated by whitespace. Blank lines and lines starting with
// '#' are skipped. Every other line must hold exactly scenario.RowWidth
// numbers, otherwise a *TextError names the line.
func ReadText(r io.Reader) ([]scenario.Row, error) {
	var rows []scenario.Row

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != scenario.RowWidth {
			return nil, &TextError{Line: line, Fields: len(fields)}
		}

		var row scenario.Row
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, &TextError{Line: line, Fields: len(fields), cause: err}
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read text: %w", err)
	}

	return rows, nil
}

// Deduplicate removes exact duplicate rows, keeping the first occurrence and
// the original order. It returns the unique rows and the number dropped.
func Deduplicate(rows []scenario.Row) ([]scenario.Row, int) {
	seen := make(map[scenario.Row]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}
