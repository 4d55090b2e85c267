package elements

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteRowCSV persists one table row as a header-plus-one-line CSV file.
// Parent directories are created as needed and an existing file at the same
// path is overwritten, which keeps re-downloads idempotent under retry.
func WriteRowCSV(path string, columns []string, values []any) error {
	if len(values) != len(columns) {
		return fmt.Errorf("write %s: row has %d values for %d columns", path, len(values), len(columns))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = FormatCell(v)
	}
	if err := w.Write(columns); err == nil {
		err = w.Write(record)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ReadCSV loads a tabular CSV file into column names plus row cells. All
// cells come back as strings; type normalization is a staging concern, not a
// file format one.
func ReadCSV(path string) (columns []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = false
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("read %s: empty file", path)
	}
	return all[0], all[1:], nil
}

// FormatCell renders a cell value for CSV output. Times use RFC 3339 so the
// staging date parser round-trips them; nil renders empty.
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
