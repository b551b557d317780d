// Package tabular reads and writes the CSV tables callsheet works with.
package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/teranos/callsheet/errors"
	"github.com/teranos/callsheet/internal/fileutil"
)

const utf8BOM = "\ufeff"

// Table is a parsed CSV file. Rows may be ragged.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadFile parses the CSV file at path. With header set, the first record
// becomes Table.Header. A missing or unreadable file is ErrSourceUnavailable.
func ReadFile(path string, header bool) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		missing := os.IsNotExist(err)
		err = errors.SourceUnavailable(err, "failed to open "+path)
		if missing {
			err = errors.WithHint(err, "check the path, or pass a different file")
		}
		return nil, err
	}
	defer f.Close()

	t, err := Read(f, header)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	return t, nil
}

// Read parses CSV from r. Quotes are handled leniently since these files
// usually come out of spreadsheet exports.
func Read(r io.Reader, header bool) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.SourceUnavailable(err, "failed to parse CSV")
	}

	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}

	t := &Table{}
	if header && len(records) > 0 {
		t.Header = records[0]
		records = records[1:]
	}
	t.Rows = records
	return t, nil
}

// Column returns the idx-th field of every row, "" where a row is too short.
func (t *Table) Column(idx int) []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx >= 0 && idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

// Encode renders header (if any) and rows as CSV.
func Encode(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if header != nil {
		if err := w.Write(header); err != nil {
			return nil, errors.Wrap(err, "failed to encode header")
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, errors.Wrap(err, "failed to encode rows")
	}
	return buf.Bytes(), nil
}

// WriteFile atomically replaces path with the encoded table.
func WriteFile(path string, header []string, rows [][]string) error {
	data, err := Encode(header, rows)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, fileutil.DefaultFilePermissions)
}
