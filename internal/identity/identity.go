// Package identity computes the stable identifiers used to reconcile
// extracted elements against previously written rows.
//
// All functions here are pure: the same inputs always produce the same
// identifier, which is what makes delete-then-insert reconciliation and
// re-download idempotent across runs. None of them can fail; absent inputs
// fall back to empty-string defaults instead of returning errors.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// ElementID returns the enhanced, globally unique identifier for one element.
//
// It is a UUIDv5 (SHA-1, DNS namespace) of the element's own id concatenated
// with the record identifier of the file it came from. Two elements with the
// same content extracted from the same record therefore always resolve to the
// same id, while the same content from a different record does not.
//
// A missing element id or record id contributes an empty string; the result
// is still deterministic.
func ElementID(elementID, recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(elementID+recordID)).String()
}

// ElementIDFromRaw extracts "element_id" from a raw element mapping and
// delegates to ElementID. Non-string values are formatted with fmt.Sprint so
// numeric ids keep a stable textual form.
func ElementIDFromRaw(element map[string]any, recordID string) string {
	var elementID string
	if v, ok := element["element_id"]; ok && v != nil {
		if s, ok := v.(string); ok {
			elementID = s
		} else {
			elementID = fmt.Sprint(v)
		}
	}
	return ElementID(elementID, recordID)
}

// FieldsHash returns the 8-character hex digest that disambiguates two
// downloads of the same row under different field projections. The digest
// covers the comma-joined field list in request order.
func FieldsHash(fields []string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, ",")))
	return hex.EncodeToString(sum[:])[:8]
}

// BatchID derives a deterministic identifier for a set of record identifiers.
// The ids must already be sorted; the hash covers the newline-joined list, so
// identical batches hash identically across enumerations.
func BatchID(ids []string) string {
	h := xxh3.HashString128(strings.Join(ids, "\n"))
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}
