// Package elements reads and writes the connector's on-disk interchange
// files: JSON element files produced by the extraction pipeline and staged
// for upload, and single-row CSV files produced by the downloader.
package elements

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadJSON decodes a file holding a JSON array of element objects. The
// decoder streams array entries so large element files do not need to fit a
// second time in memory as raw bytes.
func ReadJSON(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("decode %s: expected top-level array, got %v", path, tok)
	}

	var out []map[string]any
	for dec.More() {
		var element map[string]any
		if err := dec.Decode(&element); err != nil {
			return nil, fmt.Errorf("decode %s element %d: %w", path, len(out), err)
		}
		out = append(out, element)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// WriteJSON writes rows as a JSON array, overwriting any existing file.
// Parent directories must already exist; staged output lands next to its
// input by convention.
func WriteJSON(path string, rows []map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(rows); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
