package genie

import "testing"

func TestPager_WindowRoundTrip(t *testing.T) {
	// Two rows at page size 10: page 0 shows both.
	p := NewPager(2)
	if lo, hi := p.Window(); lo != 0 || hi != 2 {
		t.Errorf("Window = [%d,%d), want [0,2)", lo, hi)
	}

	// Page size 1, page 1 shows exactly the second row.
	p = NewPagerWithSize(2, 10)
	p.pageSize = 1 // sizes outside PageSizes aren't selectable by users
	p.Next()
	if lo, hi := p.Window(); lo != 1 || hi != 2 {
		t.Errorf("Window = [%d,%d), want [1,2)", lo, hi)
	}
}

func TestPager_PageCountAndClamping(t *testing.T) {
	p := NewPager(25) // size 10 -> 3 pages
	if p.PageCount() != 3 {
		t.Errorf("PageCount = %d, want 3", p.PageCount())
	}

	p.Next()
	p.Next()
	p.Next() // clamped at last page
	if p.Page() != 2 {
		t.Errorf("Page = %d, want 2", p.Page())
	}
	if lo, hi := p.Window(); lo != 20 || hi != 25 {
		t.Errorf("last Window = [%d,%d), want [20,25)", lo, hi)
	}

	p.Prev()
	p.Prev()
	p.Prev() // clamped at first page
	if p.Page() != 0 {
		t.Errorf("Page = %d, want 0", p.Page())
	}
}

func TestPager_SetPageSizeResetsPage(t *testing.T) {
	p := NewPager(100)
	p.Next()
	p.Next()
	if p.Page() != 2 {
		t.Fatal("precondition: page 2")
	}

	p.SetPageSize(50)
	if p.Page() != 0 {
		t.Errorf("Page = %d after size change, want 0", p.Page())
	}
	if p.PageSize() != 50 || p.PageCount() != 2 {
		t.Errorf("size=%d pages=%d, want 50/2", p.PageSize(), p.PageCount())
	}

	// Invalid sizes are ignored entirely.
	p.Next()
	p.SetPageSize(7)
	if p.PageSize() != 50 || p.Page() != 1 {
		t.Errorf("invalid size applied: size=%d page=%d", p.PageSize(), p.Page())
	}
}

func TestPager_CycleSize(t *testing.T) {
	p := NewPager(100)
	sizes := []int{20, 50, 10}
	for _, want := range sizes {
		p.CycleSize()
		if p.PageSize() != want {
			t.Errorf("PageSize = %d, want %d", p.PageSize(), want)
		}
		if p.Page() != 0 {
			t.Errorf("cycle must reset to page 0, got %d", p.Page())
		}
		p.Next()
	}
}

func TestPager_EmptyTable(t *testing.T) {
	p := NewPager(0)
	if p.PageCount() != 1 {
		t.Errorf("PageCount = %d, want 1", p.PageCount())
	}
	if lo, hi := p.Window(); lo != 0 || hi != 0 {
		t.Errorf("Window = [%d,%d), want [0,0)", lo, hi)
	}
}
