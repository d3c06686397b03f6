package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/open-cbom/internal/cbom"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
	"github.com/open-sspm/open-cbom/internal/http/views"
	"github.com/open-sspm/open-cbom/internal/viewer"
)

// HandleDrillDown narrows the loaded CBOM dataset to the libraries or
// languages matching q.
func (h *Handlers) HandleDrillDown(c *echo.Context) error {
	ctx := c.Request().Context()
	componentType, err := cbom.ParseComponentType(c.QueryParam("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	query := c.QueryParam("q")

	state, err := h.loadViewer(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	_ = state.SetSearchMode(viewer.ModeCBOM)
	if _, err := h.search(ctx, state, state.LastSearchQuery, cbom.Filter{}); err != nil {
		return h.RenderError(c, err)
	}

	layout := h.LayoutData(c, "Drill-down", state)
	layout.Breadcrumbs = []viewmodels.Breadcrumb{{Label: "Dashboard", Href: "/"}, {Label: "Drill-down"}}
	data := viewmodels.DrillDownViewData{
		Layout:        layout,
		Query:         query,
		ComponentType: string(componentType),
		BackHref:      "/?tab=" + state.ActiveTab,
	}

	switch err := state.SetDrillDown(query, componentType); {
	case errors.Is(err, viewer.ErrNoDataset):
	case err != nil:
		return h.RenderError(c, err)
	default:
		dd, _ := state.ComponentsDrillDownData.Get()
		fillDrillDown(&data, dd, listQuery{
			Path:           "/drilldown",
			Query:          dd.Query,
			Type:           string(componentType),
			PerPage:        parsePerPage(c, h.pageSize()),
			DefaultPerPage: h.pageSize(),
		}, parsePageParam(c))
	}
	h.saveViewer(c, state)

	if wantsPartial(c, views.DrillDownResultsID) {
		return h.RenderComponent(c, views.DrillDownResults(data))
	}
	return h.RenderComponent(c, views.DrillDownPage(data))
}

func fillDrillDown(data *viewmodels.DrillDownViewData, dd cbom.DrillDown, lq listQuery, page int) {
	data.HasDataset = true
	data.Query = dd.Query
	data.TotalApplications = dd.TotalApplications
	data.TotalServices = dd.TotalServices

	rows := make([]viewmodels.DrillDownRow, 0, len(dd.Components))
	for _, comp := range dd.Components {
		row := viewmodels.DrillDownRow{
			Name:         comp.Name,
			Language:     comp.Language,
			Versions:     comp.Versions,
			Applications: comp.Applications,
		}
		for _, ref := range comp.Services {
			row.Services = append(row.Services, viewmodels.ServiceLink{
				Label: ref.Application + " / " + ref.Service,
				Href:  views.ApplicationURL(ref.Application, ref.Service),
			})
		}
		rows = append(rows, row)
	}
	data.Rows, data.Pager = paginate(rows, page, lq.PerPage, lq.URL)
}
