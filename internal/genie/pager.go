package genie

// PageSizes are the selectable rows-per-page options.
var PageSizes = []int{10, 20, 50}

// DefaultPageSize is used until the user picks another size.
const DefaultPageSize = 10

// Pager is a view-state projection over a message's table. It never mutates
// the message; it only computes which row window page k shows.
type Pager struct {
	rowCount  int
	pageIndex int
	pageSize  int
}

// NewPager creates a pager over rowCount rows at the default page size.
func NewPager(rowCount int) *Pager {
	return NewPagerWithSize(rowCount, DefaultPageSize)
}

// NewPagerWithSize creates a pager with an explicit page size. Sizes outside
// PageSizes fall back to the default.
func NewPagerWithSize(rowCount, size int) *Pager {
	if !validPageSize(size) {
		size = DefaultPageSize
	}
	if rowCount < 0 {
		rowCount = 0
	}
	return &Pager{rowCount: rowCount, pageSize: size}
}

func validPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Page returns the current 0-indexed page.
func (p *Pager) Page() int { return p.pageIndex }

// PageSize returns the current rows-per-page.
func (p *Pager) PageSize() int { return p.pageSize }

// PageCount returns the number of pages, at least 1.
func (p *Pager) PageCount() int {
	if p.rowCount == 0 {
		return 1
	}
	return (p.rowCount + p.pageSize - 1) / p.pageSize
}

// Window returns the half-open row range [lo, hi) displayed on the current
// page: [k*S, min((k+1)*S, N)).
func (p *Pager) Window() (lo, hi int) {
	lo = p.pageIndex * p.pageSize
	if lo > p.rowCount {
		lo = p.rowCount
	}
	hi = lo + p.pageSize
	if hi > p.rowCount {
		hi = p.rowCount
	}
	return lo, hi
}

// Next advances one page, stopping at the last.
func (p *Pager) Next() {
	if p.pageIndex < p.PageCount()-1 {
		p.pageIndex++
	}
}

// Prev goes back one page, stopping at the first.
func (p *Pager) Prev() {
	if p.pageIndex > 0 {
		p.pageIndex--
	}
}

// SetPageSize changes the rows-per-page and resets to page 0. Sizes outside
// PageSizes are ignored.
func (p *Pager) SetPageSize(size int) {
	if !validPageSize(size) {
		return
	}
	p.pageSize = size
	p.pageIndex = 0
}

// CycleSize moves to the next selectable page size, wrapping around, and
// resets to page 0.
func (p *Pager) CycleSize() {
	for i, s := range PageSizes {
		if s == p.pageSize {
			p.SetPageSize(PageSizes[(i+1)%len(PageSizes)])
			return
		}
	}
	p.SetPageSize(DefaultPageSize)
}
