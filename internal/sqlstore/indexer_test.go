package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore"
)

func seedIDTable(tb testing.TB, p sqlstore.Provider, ids []string) {
	tb.Helper()
	mustExec(tb, p, `CREATE TABLE docs (doc_id TEXT, payload TEXT)`)
	for _, id := range ids {
		mustExec(tb, p, `INSERT INTO docs (doc_id, payload) VALUES (?, ?)`, id, "payload-"+id)
	}
}

func TestBatchesOrderAndContent(t *testing.T) {
	t.Parallel()

	p := newProvider(t)
	seedIDTable(t, p, []string{"b", "a", "c"})

	ix := sqlstore.NewIndexer(p, sqlstore.IndexerConfig{TableName: "docs", IDColumn: "doc_id", BatchSize: 2})
	batches, err := ix.Batches(context.Background())
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	if !reflect.DeepEqual(batches[0].Identifiers, []string{"a", "b"}) {
		t.Fatalf("first batch = %v, want [a b]", batches[0].Identifiers)
	}
	if !reflect.DeepEqual(batches[1].Identifiers, []string{"c"}) {
		t.Fatalf("second batch = %v, want [c]", batches[1].Identifiers)
	}
	for _, b := range batches {
		if b.TableName != "docs" || b.IDColumn != "doc_id" {
			t.Fatalf("descriptor metadata = %+v", b)
		}
		if b.DateProcessed.IsZero() {
			t.Fatal("missing enumeration timestamp")
		}
	}
}

func TestBatchesPartitionProperties(t *testing.T) {
	t.Parallel()

	const n, size = 23, 5
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, fmt.Sprintf("rec-%03d", i))
	}

	p := newProvider(t)
	seedIDTable(t, p, ids)

	ix := sqlstore.NewIndexer(p, sqlstore.IndexerConfig{TableName: "docs", IDColumn: "doc_id", BatchSize: size})
	batches, err := ix.Batches(context.Background())
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}

	// ceil(N/B) descriptors, pairwise disjoint, union equals the sorted set.
	if want := (n + size - 1) / size; len(batches) != want {
		t.Fatalf("batches = %d, want %d", len(batches), want)
	}
	seen := map[string]int{}
	var union []string
	for _, b := range batches {
		if len(b.Identifiers) > size {
			t.Fatalf("batch exceeds size: %d > %d", len(b.Identifiers), size)
		}
		for _, id := range b.Identifiers {
			seen[id]++
			union = append(union, id)
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("identifier %q assigned to %d batches", id, count)
		}
	}
	if !reflect.DeepEqual(union, ids) {
		t.Fatalf("union = %v, want full sorted id list", union)
	}
}

func TestBatchesDeterministic(t *testing.T) {
	t.Parallel()

	p := newProvider(t)
	seedIDTable(t, p, []string{"x", "m", "a", "q", "b"})

	ix := sqlstore.NewIndexer(p, sqlstore.IndexerConfig{TableName: "docs", IDColumn: "doc_id", BatchSize: 2})
	first, err := ix.Batches(context.Background())
	if err != nil {
		t.Fatalf("first enumeration: %v", err)
	}
	second, err := ix.Batches(context.Background())
	if err != nil {
		t.Fatalf("second enumeration: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("batch counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID() != second[i].ID() {
			t.Fatalf("batch %d changed identity across enumerations: %s vs %s", i, first[i].ID(), second[i].ID())
		}
	}
}

func TestBatchesDeduplicatesIdentifiers(t *testing.T) {
	t.Parallel()

	p := newProvider(t)
	seedIDTable(t, p, []string{"a", "a", "b"})

	ix := sqlstore.NewIndexer(p, sqlstore.IndexerConfig{TableName: "docs", IDColumn: "doc_id", BatchSize: 10})
	batches, err := ix.Batches(context.Background())
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	if len(batches) != 1 || !reflect.DeepEqual(batches[0].Identifiers, []string{"a", "b"}) {
		t.Fatalf("batches = %+v, want one batch [a b]", batches)
	}
}

func TestIndexerPrecheck(t *testing.T) {
	t.Parallel()

	p := newProvider(t)
	ix := sqlstore.NewIndexer(p, sqlstore.IndexerConfig{TableName: "docs", IDColumn: "doc_id"})
	if err := ix.Precheck(context.Background()); err != nil {
		t.Fatalf("Precheck on live store: %v", err)
	}
}

func TestIndexerPrecheckFailure(t *testing.T) {
	t.Parallel()

	p := newProvider(t)
	_ = p.Close()

	ix := sqlstore.NewIndexer(p, sqlstore.IndexerConfig{TableName: "docs", IDColumn: "doc_id"})
	err := ix.Precheck(context.Background())
	if err == nil {
		t.Fatal("expected precheck failure on closed store")
	}
	var se *sqlstore.StoreError
	if !errors.As(err, &se) || se.Phase != sqlstore.PhaseValidateSource {
		t.Fatalf("error = %v, want source connection-validation error", err)
	}
}
