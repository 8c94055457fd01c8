package pagination

const (
	// DefaultPageSize is the standard keyboard page size when a size is
	// not provided.
	DefaultPageSize = 5
	// MaxPageSize caps how many rows an inline-keyboard list renders.
	MaxPageSize = 20
)

// Page describes one window over a list rendered as keyboard rows.
type Page struct {
	Number int
	Size   int
	Total  int
}

// NormalizeSize enforces the configured default and maximum sizes.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// New clamps the requested page into the valid range for total rows.
// Pages are zero-based; an empty list always maps to page zero.
func New(number, size, total int) Page {
	size = NormalizeSize(size)
	if number < 0 {
		number = 0
	}
	if last := lastPage(total, size); number > last {
		number = last
	}
	return Page{Number: number, Size: size, Total: total}
}

// Bounds returns the half-open [start, end) slice window for the page.
func (p Page) Bounds() (int, int) {
	start := p.Number * p.Size
	if start > p.Total {
		start = p.Total
	}
	end := start + p.Size
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// Count returns how many pages the list spans, at least one.
func (p Page) Count() int {
	return lastPage(p.Total, p.Size) + 1
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool {
	return p.Number > 0
}

// HasNext reports whether a further page exists.
func (p Page) HasNext() bool {
	return p.Number < lastPage(p.Total, p.Size)
}

func lastPage(total, size int) int {
	if total <= 0 {
		return 0
	}
	return (total - 1) / size
}
