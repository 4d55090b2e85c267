package stage

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Flatten collapses a nested metadata mapping into a single level, joining
// path segments with underscores. Nested maps recurse; lists are flattened
// by element index; nil values are removed. Keys are folded to safe ASCII
// column names so metadata from arbitrary extractors cannot produce
// unquotable identifiers.
//
// This is the staging shape used by the append-only vector path, which has
// no fixed schema contract to filter against.
func Flatten(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	flattenInto(out, "", metadata)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := FoldKey(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch t := v.(type) {
		case nil:
			// dropped
		case map[string]any:
			flattenInto(out, key, t)
		case []any:
			for i, el := range t {
				idx := fmt.Sprintf("%s_%d", key, i)
				if nested, ok := el.(map[string]any); ok {
					flattenInto(out, idx, nested)
				} else if el != nil {
					out[idx] = el
				}
			}
		default:
			out[key] = v
		}
	}
}

// FoldKey normalizes a metadata key into a lowercase ASCII identifier:
// diacritics are decomposed and stripped, runs of separators collapse to a
// single underscore, and anything else is dropped. An empty result folds to
// "field".
func FoldKey(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, strings.ToLower(s))

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		default:
			// drop anything else
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "field"
	}
	return name
}
