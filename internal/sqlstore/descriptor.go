package sqlstore

import (
	"time"

	"github.com/SygmaHQ/unstructured-ingest/internal/identity"
)

// BatchDescriptor is an immutable partition of record identifiers produced
// by the Indexer and consumed by the Downloader. Identifiers are unique and
// sorted; the union of identifiers across all descriptors for a table equals
// the full identifier list at enumeration time. This is a snapshot: nothing
// locks the table against concurrent writes.
//
// Descriptors are never mutated after creation.
type BatchDescriptor struct {
	// TableName is the originating table.
	TableName string
	// IDColumn is the identifier column within TableName.
	IDColumn string
	// Identifiers is the sorted, de-duplicated identifier set of this batch.
	Identifiers []string
	// DateProcessed records when the enumeration snapshot was taken.
	DateProcessed time.Time
}

// ID returns the deterministic identity of this batch, derived from its
// identifier set. Re-enumerating an unchanged table yields the same IDs.
func (d BatchDescriptor) ID() string {
	return identity.BatchID(d.Identifiers)
}
