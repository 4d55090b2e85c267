package identity

import (
	"strings"
	"testing"
)

func TestElementIDDeterministic(t *testing.T) {
	t.Parallel()

	a := ElementID("elem-1", "rec-1")
	b := ElementID("elem-1", "rec-1")
	if a != b {
		t.Fatalf("same inputs produced different ids: %q vs %q", a, b)
	}
	if len(a) != 36 || strings.Count(a, "-") != 4 {
		t.Fatalf("id %q is not a canonical UUID", a)
	}
}

func TestElementIDVariesWithInputs(t *testing.T) {
	t.Parallel()

	base := ElementID("elem-1", "rec-1")
	if got := ElementID("elem-2", "rec-1"); got == base {
		t.Fatalf("different element ids collided: %q", got)
	}
	if got := ElementID("elem-1", "rec-2"); got == base {
		t.Fatalf("different record ids collided: %q", got)
	}
}

func TestElementIDFromRaw(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		element map[string]any
		same    map[string]any
	}{
		{
			name:    "string id",
			element: map[string]any{"element_id": "abc", "text": "hello"},
			same:    map[string]any{"element_id": "abc", "text": "ignored"},
		},
		{
			name:    "numeric id",
			element: map[string]any{"element_id": 42},
			same:    map[string]any{"element_id": 42},
		},
		{
			name:    "missing id falls back to empty default",
			element: map[string]any{"text": "hello"},
			same:    map[string]any{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := ElementIDFromRaw(tc.element, "rec-9")
			b := ElementIDFromRaw(tc.same, "rec-9")
			if a != b {
				t.Fatalf("ids differ: %q vs %q", a, b)
			}
			if a == "" {
				t.Fatal("empty id")
			}
		})
	}
}

func TestFieldsHash(t *testing.T) {
	t.Parallel()

	h := FieldsHash([]string{"id", "text"})
	if len(h) != 8 {
		t.Fatalf("hash length = %d, want 8", len(h))
	}
	if h != FieldsHash([]string{"id", "text"}) {
		t.Fatal("hash not deterministic")
	}
	// Order matters: a projection is identified by its requested order.
	if h == FieldsHash([]string{"text", "id"}) {
		t.Fatal("distinct projections hashed identically")
	}
}

func TestBatchID(t *testing.T) {
	t.Parallel()

	a := BatchID([]string{"a", "b", "c"})
	if a != BatchID([]string{"a", "b", "c"}) {
		t.Fatal("batch id not deterministic")
	}
	if a == BatchID([]string{"a", "b"}) {
		t.Fatal("different batches hashed identically")
	}
	if len(a) != 32 {
		t.Fatalf("batch id length = %d, want 32", len(a))
	}
}
