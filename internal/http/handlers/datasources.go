package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/open-cbom/internal/http/authn"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
	"github.com/open-sspm/open-cbom/internal/http/views"
	cbomsync "github.com/open-sspm/open-cbom/internal/sync"
)

func (h *Handlers) HandleDataSources(c *echo.Context) error {
	state, err := h.loadViewer(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	h.saveViewer(c, state)

	layout := h.LayoutData(c, "Data sources", state)
	layout.Breadcrumbs = []viewmodels.Breadcrumb{{Label: "Data sources"}}
	selected, hasSelected := state.SelectedDataSource().Get()

	data := viewmodels.DataSourcesViewData{
		Layout:    layout,
		CanResync: layout.IsAdmin && h.Syncer != nil && hasSelected,
	}
	for _, ds := range state.DataSources() {
		lastUpdated := ""
		if !ds.LastUpdated.IsZero() {
			lastUpdated = ds.LastUpdated.UTC().Format("2006-01-02 15:04 MST")
		}
		data.Sources = append(data.Sources, viewmodels.DataSourceRow{
			ID:           ds.ID,
			Name:         dataSourceName(ds.Name, ds.ID),
			Type:         ds.ConnectionType.Label(),
			Format:       ds.Format,
			Status:       string(ds.Status),
			LastError:    ds.LastError,
			LastUpdated:  lastUpdated,
			ServiceCount: ds.ServiceCount,
			Selected:     hasSelected && ds.ID == selected.ID,
		})
	}
	data.HasSources = len(data.Sources) > 0
	return h.RenderComponent(c, views.DataSourcesPage(data))
}

// HandleDataSourceSelect switches the session to another data source. The
// previous source's selections and drill-down do not carry over.
func (h *Handlers) HandleDataSourceSelect(c *echo.Context) error {
	state, err := h.loadViewer(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	id := strings.TrimSpace(c.FormValue("id"))
	previous, _ := state.SelectedDataSource().Get()
	if err := state.SelectDataSource(id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if previous.ID != id {
		state.ClearSelection()
		state.ClearDrillDown()
	}
	h.saveViewer(c, state)

	redirect := authn.SanitizeNext(c.FormValue("redirect"))
	if redirect == "" {
		redirect = "/"
	}
	return c.Redirect(http.StatusSeeOther, redirect)
}

// HandleResync syncs the selected data source inline and reports the outcome
// as a toast on the data sources page.
func (h *Handlers) HandleResync(c *echo.Context) error {
	ctx := c.Request().Context()
	state, err := h.loadViewer(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	src, ok := state.SelectedDataSource().Get()
	switch {
	case !ok:
		setFlashToast(c, viewmodels.ToastViewData{Category: "warning", Title: "No data source selected"})
	case h.Syncer == nil:
		setFlashToast(c, viewmodels.ToastViewData{Category: "warning", Title: "Sync is disabled", Description: "This server was started without a sync runner."})
	default:
		name := dataSourceName(src.Name, src.ID)
		err := h.Syncer.RunOnce(cbomsync.WithSourceScope(ctx, src.ID))
		switch {
		case err == nil:
			setFlashToast(c, viewmodels.ToastViewData{Category: "success", Title: "Resync finished", Description: name + " was synced."})
		case errors.Is(err, cbomsync.ErrSyncAlreadyRunning):
			setFlashToast(c, viewmodels.ToastViewData{Category: "warning", Title: "A sync is already running", Description: "Try again when it has finished."})
		default:
			c.Logger().Error("resync failed", "source", src.ID, "error", err)
			setFlashToast(c, viewmodels.ToastViewData{Category: "error", Title: "Resync failed", Description: "The status of " + name + " shows the error."})
		}
	}
	return c.Redirect(http.StatusSeeOther, "/datasources")
}
