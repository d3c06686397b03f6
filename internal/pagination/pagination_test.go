package pagination

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func mustNew(t *testing.T, items []int, perPage int) *Controller[int] {
	t.Helper()
	c, err := New(items, perPage)
	if err != nil {
		t.Fatalf("New(%d items, %d) error = %v", len(items), perPage, err)
	}
	return c
}

func assertPageInvariant(t *testing.T, c *Controller[int]) {
	t.Helper()
	if c.CurrentPage() < 1 || c.CurrentPage() > max(1, c.TotalPages()) {
		t.Fatalf("current page %d outside [1, %d]", c.CurrentPage(), max(1, c.TotalPages()))
	}
}

func TestTotalPagesIsCeilDivision(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 40; n++ {
		for p := 1; p <= 12; p++ {
			c := mustNew(t, seq(n), p)
			want := (n + p - 1) / p
			if got := c.TotalPages(); got != want {
				t.Fatalf("n=%d p=%d TotalPages() = %d, want %d", n, p, got, want)
			}
			if c.TotalPages() < 0 {
				t.Fatalf("n=%d p=%d TotalPages() negative", n, p)
			}
		}
	}
}

func TestTotalPagesWithHugePageSize(t *testing.T) {
	t.Parallel()

	for _, p := range []int{math.MaxInt, math.MaxInt - 1, math.MaxInt - 2, math.MaxInt / 2} {
		c := mustNew(t, seq(5), p)
		if got := c.TotalPages(); got != 1 {
			t.Fatalf("p=%d TotalPages() = %d, want 1", p, got)
		}
		if got := len(c.PaginatedItems()); got != 5 {
			t.Fatalf("p=%d len(PaginatedItems()) = %d, want 5", p, got)
		}
		if c.EndIndex() != 5 {
			t.Fatalf("p=%d EndIndex() = %d, want 5", p, c.EndIndex())
		}

		empty := mustNew(t, nil, p)
		if empty.TotalPages() != 0 || len(empty.PaginatedItems()) != 0 {
			t.Fatalf("p=%d empty TotalPages() = %d", p, empty.TotalPages())
		}
	}
}

func TestPaginatedItemsLengths(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 35; n++ {
		for p := 1; p <= 8; p++ {
			c := mustNew(t, seq(n), p)
			for page := 1; page <= c.TotalPages(); page++ {
				c.GoToPage(page)
				got := len(c.PaginatedItems())
				if got > p {
					t.Fatalf("n=%d p=%d page=%d len=%d exceeds page size", n, p, page, got)
				}
				if page < c.TotalPages() && got != p {
					t.Fatalf("n=%d p=%d page=%d len=%d, want full page", n, p, page, got)
				}
				assertPageInvariant(t, c)
			}
		}
	}
}

func TestGoToPageOutOfRangeIsNoOp(t *testing.T) {
	t.Parallel()

	c := mustNew(t, seq(25), 10)
	c.GoToPage(2)

	for _, page := range []int{-5, -1, 0, 4, 100} {
		c.GoToPage(page)
		if got := c.CurrentPage(); got != 2 {
			t.Fatalf("GoToPage(%d) moved to %d, want 2", page, got)
		}
	}
}

func TestResetPaginationAlwaysReturnsToFirstPage(t *testing.T) {
	t.Parallel()

	c := mustNew(t, seq(95), 10)
	for page := 1; page <= c.TotalPages(); page++ {
		c.GoToPage(page)
		c.ResetPagination()
		if got := c.CurrentPage(); got != 1 {
			t.Fatalf("after reset from page %d current = %d, want 1", page, got)
		}
	}
}

func TestPaginatedItemsIsIdempotent(t *testing.T) {
	t.Parallel()

	c := mustNew(t, seq(23), 5)
	c.GoToPage(3)
	first := c.PaginatedItems()
	second := c.PaginatedItems()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("PaginatedItems() not idempotent: %v vs %v", first, second)
	}
}

func TestTwentyFiveItemsTenPerPage(t *testing.T) {
	t.Parallel()

	c := mustNew(t, seq(25), 10)
	if got := c.TotalPages(); got != 3 {
		t.Fatalf("TotalPages() = %d, want 3", got)
	}

	steps := []struct {
		page  int
		items []int
		start int
		end   int
		next  bool
		prev  bool
	}{
		{page: 1, items: seq(10), start: 1, end: 10, next: true, prev: false},
		{page: 2, items: seq(20)[10:], start: 11, end: 20, next: true, prev: true},
		{page: 3, items: seq(25)[20:], start: 21, end: 25, next: false, prev: true},
		{page: 3, items: seq(25)[20:], start: 21, end: 25, next: false, prev: true},
	}
	for i, step := range steps {
		if i > 0 {
			c.GoToNextPage()
		}
		if got := c.CurrentPage(); got != step.page {
			t.Fatalf("step %d: page = %d, want %d", i, got, step.page)
		}
		if got := c.PaginatedItems(); !reflect.DeepEqual(got, step.items) {
			t.Fatalf("step %d: items = %v, want %v", i, got, step.items)
		}
		if c.StartIndex() != step.start || c.EndIndex() != step.end {
			t.Fatalf("step %d: range = %d-%d, want %d-%d", i, c.StartIndex(), c.EndIndex(), step.start, step.end)
		}
		if c.HasNextPage() != step.next || c.HasPreviousPage() != step.prev {
			t.Fatalf("step %d: next/prev = %v/%v, want %v/%v", i, c.HasNextPage(), c.HasPreviousPage(), step.next, step.prev)
		}
		if c.TotalItems() != 25 {
			t.Fatalf("step %d: TotalItems() = %d, want 25", i, c.TotalItems())
		}
	}
}

func TestEmptyItemsKeepsZeroOfZeroSentinel(t *testing.T) {
	t.Parallel()

	c := mustNew(t, []int{}, 10)
	if got := c.TotalPages(); got != 0 {
		t.Fatalf("TotalPages() = %d, want 0", got)
	}
	if got := c.CurrentPage(); got != 1 {
		t.Fatalf("CurrentPage() = %d, want 1", got)
	}
	if got := c.PaginatedItems(); len(got) != 0 {
		t.Fatalf("PaginatedItems() = %v, want empty", got)
	}
	if c.StartIndex() != 1 || c.EndIndex() != 0 {
		t.Fatalf("range = %d-%d, want 1-0", c.StartIndex(), c.EndIndex())
	}
	if c.HasNextPage() || c.HasPreviousPage() {
		t.Fatal("empty controller must not report next/previous pages")
	}

	c.GoToNextPage()
	c.GoToPreviousPage()
	c.GoToPage(1)
	assertPageInvariant(t, c)
	if got := c.CurrentPage(); got != 1 {
		t.Fatalf("CurrentPage() after navigation = %d, want 1", got)
	}
}

func TestNilItemsBehaveLikeEmpty(t *testing.T) {
	t.Parallel()

	c := mustNew(t, nil, 3)
	if c.TotalPages() != 0 || c.TotalItems() != 0 || len(c.PaginatedItems()) != 0 {
		t.Fatalf("nil items: pages=%d items=%d", c.TotalPages(), c.TotalItems())
	}
}

func TestNewRejectsNonPositivePageSize(t *testing.T) {
	t.Parallel()

	for _, perPage := range []int{0, -1, -10} {
		c, err := New(seq(5), perPage)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("New(_, %d) error = %v, want ErrInvalidConfiguration", perPage, err)
		}
		if c != nil {
			t.Fatalf("New(_, %d) returned a controller alongside the error", perPage)
		}
	}
}

func TestNewDefaultUsesTenPerPage(t *testing.T) {
	t.Parallel()

	c := NewDefault(seq(11))
	if got := c.ItemsPerPage(); got != DefaultItemsPerPage {
		t.Fatalf("ItemsPerPage() = %d, want %d", got, DefaultItemsPerPage)
	}
	if got := c.TotalPages(); got != 2 {
		t.Fatalf("TotalPages() = %d, want 2", got)
	}
}

func TestGoToPreviousPageStopsAtFirst(t *testing.T) {
	t.Parallel()

	c := mustNew(t, seq(30), 10)
	c.GoToPage(3)
	c.GoToPreviousPage()
	c.GoToPreviousPage()
	c.GoToPreviousPage()
	if got := c.CurrentPage(); got != 1 {
		t.Fatalf("CurrentPage() = %d, want 1", got)
	}
}

func TestPaginatedItemsDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	items := seq(10)
	c := mustNew(t, items, 4)
	page := c.PaginatedItems()
	page = append(page, 99)
	if items[4] != 4 {
		t.Fatalf("appending to a page overwrote the input: %v", items)
	}
	if len(page) != 5 {
		t.Fatalf("unexpected page length %d", len(page))
	}
}

func TestSetItemsClampsCurrentPage(t *testing.T) {
	t.Parallel()

	c := mustNew(t, seq(50), 10)
	c.GoToPage(5)

	c.SetItems(seq(50))
	if got := c.CurrentPage(); got != 5 {
		t.Fatalf("same-size replacement moved page to %d", got)
	}

	c.SetItems(seq(12))
	if got := c.CurrentPage(); got != 2 {
		t.Fatalf("CurrentPage() = %d, want clamp to 2", got)
	}

	c.SetItems(nil)
	if got := c.CurrentPage(); got != 1 {
		t.Fatalf("CurrentPage() = %d, want 1 after empty replacement", got)
	}
	assertPageInvariant(t, c)
}

func TestSnapshotMirrorsController(t *testing.T) {
	t.Parallel()

	c := mustNew(t, seq(25), 10)
	c.GoToNextPage()
	snap := c.Snapshot()

	if snap.Number != 2 || snap.TotalPages != 3 || snap.TotalItems != 25 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.StartIndex != 11 || snap.EndIndex != 20 || !snap.HasNext || !snap.HasPrevious {
		t.Fatalf("snapshot range/flags = %+v", snap)
	}
	if !reflect.DeepEqual(snap.Items, seq(20)[10:]) {
		t.Fatalf("snapshot items = %v", snap.Items)
	}
}

func TestPageWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		number int
		total  int
		width  int
		want   []int
	}{
		{name: "empty", number: 1, total: 0, width: 5, want: nil},
		{name: "fewer pages than width", number: 2, total: 3, width: 5, want: []int{1, 2, 3}},
		{name: "centered", number: 6, total: 12, width: 5, want: []int{4, 5, 6, 7, 8}},
		{name: "start edge", number: 1, total: 12, width: 5, want: []int{1, 2, 3, 4, 5}},
		{name: "end edge", number: 12, total: 12, width: 5, want: []int{8, 9, 10, 11, 12}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := Page[int]{Number: tc.number, TotalPages: tc.total}
			if got := p.Window(tc.width); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Window(%d) = %v, want %v", tc.width, got, tc.want)
			}
		})
	}
}
