package vecstore

import (
	"encoding/json"
	"fmt"

	"github.com/SygmaHQ/unstructured-ingest/internal/identity"
	"github.com/SygmaHQ/unstructured-ingest/internal/stage"
)

// Stager converts raw elements into the vector table's shape: enhanced id,
// original element id, the text as "document", the embedding vector, and
// metadata flattened into prefixed scalar columns. Unlike the SQL staging
// path there is no allow-list; whatever metadata carries is kept.
type Stager struct{}

// Conform produces the vector-table record for one raw element.
func (Stager) Conform(element map[string]any, recordID string) map[string]any {
	record := map[string]any{
		"id":         identity.ElementIDFromRaw(element, recordID),
		"element_id": element["element_id"],
		"document":   element["text"],
		"embeddings": EncodeEmbedding(element["embeddings"]),
	}
	if metadata, ok := element["metadata"].(map[string]any); ok {
		for k, v := range stage.Flatten(metadata) {
			record["metadata_"+k] = v
		}
	}
	return record
}

// ConformAll stages a whole file's worth of elements.
func (s Stager) ConformAll(elements []map[string]any, recordID string) []map[string]any {
	out := make([]map[string]any, len(elements))
	for i, element := range elements {
		out[i] = s.Conform(element, recordID)
	}
	return out
}

// EncodeEmbedding serializes an embedding vector into a compact JSON string
// suitable for a scalar cell. Non-vector values encode as nil.
func EncodeEmbedding(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []float32, []float64, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return nil
	}
}

// DecodeEmbedding parses a cell written by EncodeEmbedding back into a
// float64 vector.
func DecodeEmbedding(cell any) ([]float64, error) {
	var raw []byte
	switch t := cell.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return nil, fmt.Errorf("decode embedding: unsupported cell %T", cell)
	}
	var out []float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return out, nil
}
