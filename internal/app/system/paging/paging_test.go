package paging

import (
	"reflect"
	"testing"
)

func TestLimitPlusOne(t *testing.T) {
	want := int64(PageSize + 1)
	got := LimitPlusOne()
	if got != want {
		t.Errorf("LimitPlusOne() = %d, want %d", got, want)
	}
}

func TestTrimPage(t *testing.T) {
	tests := []struct {
		name       string
		rows       []int
		before     string
		after      string
		wantRows   []int
		wantResult Result
	}{
		{
			name:       "first page with no extra",
			rows:       []int{1, 2, 3},
			before:     "",
			after:      "",
			wantRows:   []int{1, 2, 3},
			wantResult: Result{HasPrev: false, HasNext: false},
		},
		{
			name:       "first page with extra (has next)",
			rows:       make([]int, PageSize+1),
			before:     "",
			after:      "",
			wantRows:   make([]int, PageSize),
			wantResult: Result{HasPrev: false, HasNext: true},
		},
		{
			name:       "forward page with extra",
			rows:       make([]int, PageSize+1),
			before:     "",
			after:      "cursor123",
			wantRows:   make([]int, PageSize),
			wantResult: Result{HasPrev: true, HasNext: true},
		},
		{
			name:       "forward page without extra",
			rows:       []int{1, 2, 3},
			before:     "",
			after:      "cursor123",
			wantRows:   []int{1, 2, 3},
			wantResult: Result{HasPrev: true, HasNext: false},
		},
		{
			name:       "backward page with extra",
			rows:       make([]int, PageSize+1),
			before:     "cursor123",
			after:      "",
			wantRows:   make([]int, PageSize),
			wantResult: Result{HasPrev: true, HasNext: true},
		},
		{
			name:       "backward page without extra",
			rows:       []int{1, 2, 3},
			before:     "cursor123",
			after:      "",
			wantRows:   []int{1, 2, 3},
			wantResult: Result{HasPrev: false, HasNext: true},
		},
		{
			name:       "empty rows",
			rows:       []int{},
			before:     "",
			after:      "",
			wantRows:   []int{},
			wantResult: Result{HasPrev: false, HasNext: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]int, len(tt.rows))
			copy(rows, tt.rows)

			got := TrimPage(&rows, tt.before, tt.after)

			if len(rows) != len(tt.wantRows) {
				t.Errorf("TrimPage() rows len = %d, want %d", len(rows), len(tt.wantRows))
			}
			if got.HasPrev != tt.wantResult.HasPrev {
				t.Errorf("TrimPage() HasPrev = %v, want %v", got.HasPrev, tt.wantResult.HasPrev)
			}
			if got.HasNext != tt.wantResult.HasNext {
				t.Errorf("TrimPage() HasNext = %v, want %v", got.HasNext, tt.wantResult.HasNext)
			}
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	tests := []struct {
		key string
		id  string
	}{
		{"Fall Screening", "admin-1"},
		{"", "admin-2"},
		{"name with spaces and: punctuation", "550e8400-e29b-41d4-a716-446655440000"},
	}
	for _, tt := range tests {
		tok := EncodeCursor(tt.key, tt.id)
		c, ok := DecodeCursor(tok)
		if !ok {
			t.Fatalf("DecodeCursor(%q) failed", tok)
		}
		if c.Key != tt.key || c.ID != tt.id {
			t.Errorf("round trip = %+v, want {%q %q}", c, tt.key, tt.id)
		}
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, bad := range []string{"not base64!!!", "bm9zZXBhcmF0b3I"} {
		if _, ok := DecodeCursor(bad); ok {
			t.Errorf("DecodeCursor(%q) succeeded, want failure", bad)
		}
	}
}

func TestConfigureKeyset(t *testing.T) {
	tests := []struct {
		name      string
		before    string
		after     string
		wantDir   Direction
		wantOrder int
	}{
		{
			name:      "no cursors (first page)",
			before:    "",
			after:     "",
			wantDir:   Forward,
			wantOrder: 1,
		},
		{
			name:      "after cursor (forward)",
			before:    "",
			after:     EncodeCursor("a", "1"),
			wantDir:   Forward,
			wantOrder: 1,
		},
		{
			name:      "before cursor (backward)",
			before:    EncodeCursor("a", "1"),
			after:     "",
			wantDir:   Backward,
			wantOrder: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ConfigureKeyset(tt.before, tt.after)
			if cfg.Direction != tt.wantDir {
				t.Errorf("Direction = %v, want %v", cfg.Direction, tt.wantDir)
			}
			if cfg.SortOrder != tt.wantOrder {
				t.Errorf("SortOrder = %d, want %d", cfg.SortOrder, tt.wantOrder)
			}
			if (tt.before != "" || tt.after != "") && cfg.Cursor == nil {
				t.Error("Cursor = nil, want decoded cursor")
			}
		})
	}
}

func TestKeysetWindow(t *testing.T) {
	cfg := ConfigureKeyset("", EncodeCursor("beta", "id-2"))
	win := cfg.KeysetWindow("name")
	if win == nil {
		t.Fatal("KeysetWindow returned nil")
	}

	// No cursor means no window.
	if w := ConfigureKeyset("", "").KeysetWindow("name"); w != nil {
		t.Errorf("KeysetWindow without cursor = %v, want nil", w)
	}
}

func TestReverse(t *testing.T) {
	rows := []string{"a", "b", "c"}
	Reverse(rows)
	if !reflect.DeepEqual(rows, []string{"c", "b", "a"}) {
		t.Errorf("Reverse = %v", rows)
	}
}

func TestBuildCursors(t *testing.T) {
	type row struct{ name, id string }
	rows := []row{{"alpha", "1"}, {"beta", "2"}, {"gamma", "3"}}

	prev, next := BuildCursors(rows,
		func(r row) string { return r.name },
		func(r row) string { return r.id })

	if c, ok := DecodeCursor(prev); !ok || c.Key != "alpha" || c.ID != "1" {
		t.Errorf("prev cursor = %+v ok=%v", c, ok)
	}
	if c, ok := DecodeCursor(next); !ok || c.Key != "gamma" || c.ID != "3" {
		t.Errorf("next cursor = %+v ok=%v", c, ok)
	}

	prev, next = BuildCursors(nil,
		func(r row) string { return r.name },
		func(r row) string { return r.id })
	if prev != "" || next != "" {
		t.Errorf("empty rows cursors = %q, %q", prev, next)
	}
}
