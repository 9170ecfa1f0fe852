package scene

import (
	"testing"

	"drawdesk/internal/domain"
)

func seedSearchStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	seed := []domain.Element{
		{"id": "red-big", "type": "rectangle", "strokeColor": "#ff0000", "width": float64(200), "height": float64(80)},
		{"id": "red-small", "type": "rectangle", "strokeColor": "#ff0000", "width": float64(50), "height": float64(40)},
		{"id": "blue", "type": "rectangle", "strokeColor": "#0000ff", "width": float64(300), "height": float64(90)},
		{"id": "circle", "type": "ellipse", "strokeColor": "#ff0000", "width": float64(120), "height": float64(120)},
		{"id": "label", "type": "text", "text": "Hello World", "width": float64(140), "height": float64(30)},
	}
	for _, el := range seed {
		s.Put(mustNormalize(t, el))
	}
	return s
}

func TestSearchCompositeFilter(t *testing.T) {
	s := seedSearchStore(t)
	min := 100.0
	got := s.Search(Query{
		Types:    []string{"rectangle"},
		Fields:   map[string]string{"strokeColor": "#ff0000"},
		MinWidth: &min,
	})
	if len(got) != 1 {
		t.Fatalf("count = %d, want 1", len(got))
	}
	if got[0].ID() != "red-big" {
		t.Errorf("matched %s, want red-big", got[0].ID())
	}
}

func TestSearchTypeMembership(t *testing.T) {
	s := seedSearchStore(t)
	got := s.Search(Query{Types: []string{"ellipse", "text"}})
	if len(got) != 2 {
		t.Fatalf("count = %d, want 2", len(got))
	}
}

func TestSearchNumericEqualityOnFields(t *testing.T) {
	s := seedSearchStore(t)
	// String(200) == "200" — numbers compare through their string form.
	got := s.Search(Query{Fields: map[string]string{"width": "200"}})
	if len(got) != 1 || got[0].ID() != "red-big" {
		t.Fatalf("numeric field equality failed: %v", ids(got))
	}
}

func TestSearchMissingFieldFailsPredicate(t *testing.T) {
	s := seedSearchStore(t)
	got := s.Search(Query{Fields: map[string]string{"nonexistentKey": "x"}})
	if len(got) != 0 {
		t.Fatalf("elements without the key matched: %v", ids(got))
	}
}

func TestSearchTextContains(t *testing.T) {
	s := seedSearchStore(t)
	got := s.Search(Query{TextContains: "hello"})
	if len(got) != 1 || got[0].ID() != "label" {
		t.Fatalf("textContains failed: %v", ids(got))
	}
}

func TestSearchHeightRange(t *testing.T) {
	s := seedSearchStore(t)
	min, max := 80.0, 100.0
	got := s.Search(Query{MinHeight: &min, MaxHeight: &max})
	// Inclusive bounds: red-big (80) and blue (90).
	if len(got) != 2 {
		t.Fatalf("count = %d, want 2 (%v)", len(got), ids(got))
	}
}

func TestSearchEmptyResult(t *testing.T) {
	s := seedSearchStore(t)
	got := s.Search(Query{Types: []string{"frame"}})
	if got == nil || len(got) != 0 {
		t.Fatalf("empty match must be an empty slice, got %#v", got)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{float64(2), "2"},
		{float64(2.5), "2.5"},
		{true, "true"},
		{nil, "null"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func ids(els []domain.Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.ID()
	}
	return out
}
