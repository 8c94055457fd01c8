package pagination

import "testing"

func TestNormalizeSize(t *testing.T) {
	if got := NormalizeSize(0); got != DefaultPageSize {
		t.Fatalf("expected default size, got %d", got)
	}
	if got := NormalizeSize(500); got != MaxPageSize {
		t.Fatalf("expected max size, got %d", got)
	}
	if got := NormalizeSize(7); got != 7 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}

func TestPageBounds(t *testing.T) {
	p := New(1, 5, 12)
	start, end := p.Bounds()
	if start != 5 || end != 10 {
		t.Fatalf("expected [5,10) got [%d,%d)", start, end)
	}
	if p.Count() != 3 {
		t.Fatalf("expected 3 pages, got %d", p.Count())
	}
	if !p.HasPrev() || !p.HasNext() {
		t.Fatal("middle page must have both neighbors")
	}
}

func TestPageClamping(t *testing.T) {
	p := New(99, 5, 12)
	if p.Number != 2 {
		t.Fatalf("expected clamp to last page 2, got %d", p.Number)
	}
	if p.HasNext() {
		t.Fatal("last page has no next")
	}

	p = New(-3, 5, 12)
	if p.Number != 0 {
		t.Fatalf("expected clamp to first page, got %d", p.Number)
	}
	if p.HasPrev() {
		t.Fatal("first page has no prev")
	}
}

func TestEmptyList(t *testing.T) {
	p := New(4, 5, 0)
	if p.Number != 0 {
		t.Fatalf("empty list maps to page zero, got %d", p.Number)
	}
	start, end := p.Bounds()
	if start != 0 || end != 0 {
		t.Fatalf("expected empty bounds, got [%d,%d)", start, end)
	}
	if p.Count() != 1 {
		t.Fatalf("empty list still renders one page, got %d", p.Count())
	}
}
