package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

var (
	ErrNoColumns     = errors.New("no columns to parse from file")
	ErrMissingColumn = errors.New("missing column")
)

// DecodeError reports input that could not be decoded as UTF-8 or Latin-1.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// ParseError reports input that was not valid CSV even after the lenient
// retry. Err is the error from the strict first attempt.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// Table is a parsed CSV file. Every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read decodes and parses raw upload bytes.
func Read(data []byte) (*Table, error) {
	text, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("[CSV] Decoded upload", slog.String("encoding", enc), slog.Int("bytes", len(data)))
	return Parse(text)
}

// Decode returns data as a string, reading it as UTF-8 when valid and as
// Latin-1 otherwise. A leading UTF-8 byte order mark is dropped.
func Decode(data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}

	slog.Warn("[CSV] Upload is not valid UTF-8, retrying as Latin-1")
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", &DecodeError{Err: err}
	}
	return string(decoded), EncodingLatin1, nil
}

// Parse reads CSV text with a header row. Short rows are padded with empty
// cells. A malformed file (stray quotes, rows wider than the header) is
// retried once with lazy quotes and wide rows truncated.
func Parse(text string) (*Table, error) {
	table, err := parse(text, false)
	if err == nil || errors.Is(err, ErrNoColumns) {
		return table, err
	}

	slog.Warn("[CSV] Strict parse failed, retrying leniently",
		slog.String("error", err.Error()))

	table, lenientErr := parse(text, true)
	if lenientErr != nil {
		if errors.Is(lenientErr, ErrNoColumns) {
			return nil, lenientErr
		}
		return nil, &ParseError{Err: err}
	}
	return table, nil
}

func parse(text string, lenient bool) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = lenient

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoColumns
	}
	if err != nil {
		return nil, err
	}

	table := &Table{Header: header}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch {
		case len(record) < len(header):
			record = append(record, make([]string, len(header)-len(record))...)
		case len(record) > len(header):
			if !lenient {
				line, _ := r.FieldPos(0)
				return nil, fmt.Errorf("expected %d fields in line %d, saw %d",
					len(header), line, len(record))
			}
			record = record[:len(header)]
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// Column returns the index of the named column or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// RequireColumn is Column that fails with ErrMissingColumn.
func (t *Table) RequireColumn(name string) (int, error) {
	idx := t.Column(name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return idx, nil
}

// SetColumn overwrites the named column, appending it when absent.
// values must have one entry per row.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}

	idx := t.Column(name)
	if idx < 0 {
		t.Header = append(t.Header, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], values[i])
		}
		return nil
	}

	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// Encode writes the table as CSV, quoting only where needed.
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var missingValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a cell has no usable text: blank, whitespace only
// or one of the conventional NA markers.
func IsMissing(cell string) bool {
	if strings.TrimSpace(cell) == "" {
		return true
	}
	_, ok := missingValues[cell]
	return ok
}

// FormatFloat renders v the way a dataframe writer would: shortest exact
// representation, always with a decimal point.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
