package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/open-cbom/internal/config"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
	"github.com/open-sspm/open-cbom/internal/pagination"
)

const pagerWindow = 5

func parsePageParam(c *echo.Context) int {
	page := 1
	if rawPage := strings.TrimSpace(c.QueryParam("page")); rawPage != "" {
		if parsed, err := strconv.Atoi(rawPage); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return page
}

// parsePerPage reads per_page, falling back to def when it is missing or not
// a positive number and capping it at config.MaxPageSize.
func parsePerPage(c *echo.Context, def int) int {
	perPage := def
	if raw := strings.TrimSpace(c.QueryParam("per_page")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			perPage = parsed
		}
	}
	return min(perPage, config.MaxPageSize)
}

// paginate pages items with a pagination.Controller. A page past the end
// shows the last page.
func paginate[T any](items []T, page, perPage int, href func(page int) string) ([]T, viewmodels.Pager) {
	ctrl, err := pagination.New(items, perPage)
	if err != nil {
		ctrl = pagination.NewDefault(items)
	}
	ctrl.GoToPage(min(page, max(1, ctrl.TotalPages())))
	snap := ctrl.Snapshot()

	pager := viewmodels.Pager{
		Page:       snap.Number,
		PerPage:    snap.ItemsPerPage,
		TotalPages: snap.TotalPages,
		TotalCount: snap.TotalItems,
	}
	if snap.TotalItems > 0 {
		pager.ShowingFrom = snap.StartIndex
		pager.ShowingTo = snap.EndIndex
	}
	if snap.HasPrevious {
		pager.PrevHref = href(snap.Number - 1)
	}
	if snap.HasNext {
		pager.NextHref = href(snap.Number + 1)
	}
	for _, n := range snap.Window(pagerWindow) {
		pager.Links = append(pager.Links, viewmodels.PageLink{Number: n, Href: href(n), Current: n == snap.Number})
	}
	return snap.Items, pager
}

// listQuery rebuilds the query string of a list page.
type listQuery struct {
	Path           string
	Query          string
	Tab            string
	Type           string
	Language       string
	Quantum        string
	Node           string
	PerPage        int
	DefaultPerPage int
}

func (q listQuery) URL(page int) string {
	values := url.Values{}
	if v := strings.TrimSpace(q.Query); v != "" {
		values.Set("q", v)
	}
	if q.Tab != "" {
		values.Set("tab", q.Tab)
	}
	if q.Type != "" {
		values.Set("type", q.Type)
	}
	if q.Language != "" {
		values.Set("language", q.Language)
	}
	if q.Quantum != "" {
		values.Set("quantum", q.Quantum)
	}
	if q.Node != "" {
		values.Set("node", q.Node)
	}
	if q.PerPage > 0 && q.PerPage != q.DefaultPerPage {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	if len(values) == 0 {
		return q.Path
	}
	return q.Path + "?" + values.Encode()
}

func (q listQuery) withTab(tab string) listQuery {
	q.Tab = tab
	q.Node = ""
	return q
}

func (q listQuery) withNode(id string) listQuery {
	q.Node = id
	return q
}
