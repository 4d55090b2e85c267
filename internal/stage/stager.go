package stage

import (
	"fmt"

	"github.com/SygmaHQ/unstructured-ingest/internal/identity"
)

// Stager turns raw extracted elements into destination-conformant rows.
// The zero value is ready to use; staging has no connection to the store.
type Stager struct{}

// Conform produces the staged row for one raw element.
//
// Element-level fields stay at the top level. The metadata mapping is merged
// up one level, and its data_source and coordinates sub-mappings are merged
// up as well, so their fields can match destination columns directly. The
// enhanced element id replaces any incoming "id", fields outside the schema
// contract are dropped, and the record-linkage column is set from recordID.
//
// The input mapping is not mutated.
func (Stager) Conform(element map[string]any, recordID string) map[string]any {
	data := make(map[string]any, len(element))
	for k, v := range element {
		data[k] = v
	}

	metadata, _ := data["metadata"].(map[string]any)
	delete(data, "metadata")
	for k, v := range metadata {
		switch k {
		case "data_source", "coordinates":
			if sub, ok := v.(map[string]any); ok {
				for sk, sv := range sub {
					data[sk] = sv
				}
			}
		default:
			data[k] = v
		}
	}

	data["id"] = identity.ElementIDFromRaw(element, recordID)

	row := make(map[string]any, len(data)+1)
	for k, v := range data {
		if Supported(k) {
			row[k] = v
		}
	}
	row[RecordIDLabel] = recordID
	return row
}

// ConformAll stages and normalizes a whole file's worth of elements.
// Normalization errors (an unparseable date) fail the call; recoverable
// schema mismatches are not possible here because Conform already filtered
// to the allow-list.
func (s Stager) ConformAll(elements []map[string]any, recordID string) ([]map[string]any, error) {
	rows := make([]map[string]any, 0, len(elements))
	for i, element := range elements {
		row := s.Conform(element, recordID)
		if err := NormalizeRow(row); err != nil {
			return nil, fmt.Errorf("stage element %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
