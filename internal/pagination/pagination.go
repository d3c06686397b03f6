// Package pagination presents a bounded, 1-based page window over an
// in-memory item sequence.
package pagination

import (
	"errors"
	"fmt"
)

// DefaultItemsPerPage is used by NewDefault.
const DefaultItemsPerPage = 10

// ErrInvalidConfiguration is returned when a controller is constructed with a
// non-positive page size.
var ErrInvalidConfiguration = errors.New("invalid pagination configuration")

// Controller pages over items. The zero value is not usable; construct it with
// New or NewDefault.
//
// A Controller is not safe for concurrent mutation. GoToPage and
// ResetPagination are not atomic with respect to each other.
type Controller[T any] struct {
	items        []T
	itemsPerPage int
	currentPage  int
}

// Page is a read-only snapshot of a controller for rendering.
type Page[T any] struct {
	Items        []T
	Number       int
	ItemsPerPage int
	TotalPages   int
	TotalItems   int
	StartIndex   int
	EndIndex     int
	HasNext      bool
	HasPrevious  bool
}

// New returns a controller positioned on page 1.
func New[T any](items []T, itemsPerPage int) (*Controller[T], error) {
	if itemsPerPage <= 0 {
		return nil, fmt.Errorf("%w: items per page must be at least 1, got %d", ErrInvalidConfiguration, itemsPerPage)
	}
	return &Controller[T]{
		items:        items,
		itemsPerPage: itemsPerPage,
		currentPage:  1,
	}, nil
}

// NewDefault returns a controller using DefaultItemsPerPage.
func NewDefault[T any](items []T) *Controller[T] {
	c, _ := New(items, DefaultItemsPerPage)
	return c
}

// SetItems replaces the item sequence. The current page is kept when it is
// still in range and clamped to the last page (or 1) otherwise.
func (c *Controller[T]) SetItems(items []T) {
	c.items = items
	if last := max(1, c.TotalPages()); c.currentPage > last {
		c.currentPage = last
	}
}

// ItemsPerPage returns the page size.
func (c *Controller[T]) ItemsPerPage() int {
	return c.itemsPerPage
}

// CurrentPage returns the 1-based current page.
func (c *Controller[T]) CurrentPage() int {
	return c.currentPage
}

// TotalItems returns the length of the item sequence.
func (c *Controller[T]) TotalItems() int {
	return len(c.items)
}

// TotalPages returns ceil(TotalItems / ItemsPerPage). It is 0 for an empty
// sequence while CurrentPage stays 1.
func (c *Controller[T]) TotalPages() int {
	if len(c.items) == 0 {
		return 0
	}
	return (len(c.items)-1)/c.itemsPerPage + 1
}

// PaginatedItems returns the items on the current page. The result shares
// memory with the input sequence but is capacity-limited, so appending to it
// never writes into the caller's slice.
func (c *Controller[T]) PaginatedItems() []T {
	start := (c.currentPage - 1) * c.itemsPerPage
	if start >= len(c.items) {
		return []T{}
	}
	end := start + min(c.itemsPerPage, len(c.items)-start)
	return c.items[start:end:end]
}

// GoToPage moves to page when 1 <= page <= TotalPages and is a no-op
// otherwise.
func (c *Controller[T]) GoToPage(page int) {
	if page < 1 || page > c.TotalPages() {
		return
	}
	c.currentPage = page
}

// GoToNextPage is a no-op on the last page.
func (c *Controller[T]) GoToNextPage() {
	c.GoToPage(c.currentPage + 1)
}

// GoToPreviousPage is a no-op on the first page.
func (c *Controller[T]) GoToPreviousPage() {
	c.GoToPage(c.currentPage - 1)
}

// ResetPagination moves back to page 1.
func (c *Controller[T]) ResetPagination() {
	c.currentPage = 1
}

func (c *Controller[T]) HasNextPage() bool {
	return c.currentPage < c.TotalPages()
}

func (c *Controller[T]) HasPreviousPage() bool {
	return c.currentPage > 1
}

// StartIndex is the 1-based display index of the first item on the page.
func (c *Controller[T]) StartIndex() int {
	return (c.currentPage-1)*c.itemsPerPage + 1
}

// EndIndex is the 1-based display index of the last item on the page. For an
// empty sequence it is 0, which together with StartIndex 1 reads as "0 of 0".
func (c *Controller[T]) EndIndex() int {
	start := (c.currentPage - 1) * c.itemsPerPage
	return start + max(0, min(c.itemsPerPage, len(c.items)-start))
}

// Snapshot captures the current page and every derived field.
func (c *Controller[T]) Snapshot() Page[T] {
	return Page[T]{
		Items:        c.PaginatedItems(),
		Number:       c.currentPage,
		ItemsPerPage: c.itemsPerPage,
		TotalPages:   c.TotalPages(),
		TotalItems:   c.TotalItems(),
		StartIndex:   c.StartIndex(),
		EndIndex:     c.EndIndex(),
		HasNext:      c.HasNextPage(),
		HasPrevious:  c.HasPreviousPage(),
	}
}

// Window returns up to width page numbers centred on the current page, for
// rendering numbered page links.
func (p Page[T]) Window(width int) []int {
	if p.TotalPages <= 0 || width <= 0 {
		return nil
	}
	if width > p.TotalPages {
		width = p.TotalPages
	}
	start := p.Number - width/2
	if start < 1 {
		start = 1
	}
	if start+width-1 > p.TotalPages {
		start = p.TotalPages - width + 1
	}
	out := make([]int, width)
	for i := range out {
		out[i] = start + i
	}
	return out
}
