package handlers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/open-cbom/internal/cbom"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
	"github.com/open-sspm/open-cbom/internal/http/views"
	"github.com/open-sspm/open-cbom/internal/viewer"
)

// HandleApplication shows an application's services. The service query
// parameter selects a service and opens its detail panel.
func (h *Handlers) HandleApplication(c *echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return RenderNotFound(c)
	}

	state, err := h.loadViewer(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	_ = state.SetSearchMode(viewer.ModeCBOM)

	if _, err := h.search(ctx, state, state.LastSearchQuery, cbom.Filter{}); err != nil {
		return h.RenderError(c, err)
	}
	err = state.SelectApplication(name)
	if errors.Is(err, viewer.ErrUnknownSelection) && state.LastSearchQuery != "" {
		// The application is outside the current search; drop the search.
		if _, err := h.search(ctx, state, "", cbom.Filter{}); err != nil {
			return h.RenderError(c, err)
		}
		err = state.SelectApplication(name)
	}
	if err != nil {
		if errors.Is(err, viewer.ErrUnknownSelection) || errors.Is(err, viewer.ErrNoDataset) {
			return RenderNotFound(c)
		}
		return h.RenderError(c, err)
	}

	appName := state.SelectedApplication.OrElse(name)
	if service := strings.TrimSpace(c.QueryParam("service")); service != "" {
		if err := state.SelectService(appName, service); err != nil {
			if errors.Is(err, viewer.ErrUnknownSelection) {
				return RenderNotFound(c)
			}
			return h.RenderError(c, err)
		}
		if err := state.ShowDetails(); err != nil {
			return h.RenderError(c, err)
		}
	} else {
		state.HideDetails()
	}
	h.saveViewer(c, state)

	data := h.applicationViewData(c, state, appName)
	if wantsPartial(c, views.ServiceDetailID) {
		return h.RenderComponent(c, views.ServiceDetailPanel(data.Detail))
	}
	return h.RenderComponent(c, views.ApplicationPage(data))
}

func (h *Handlers) applicationViewData(c *echo.Context, state *viewer.State, name string) viewmodels.ApplicationViewData {
	inv := state.ActiveDataset().CBOM
	app, _ := inv.Application(name)

	layout := h.LayoutData(c, app.Name, state)
	layout.Breadcrumbs = []viewmodels.Breadcrumb{
		{Label: "Dashboard", Href: "/"},
		{Label: "Applications", Href: "/?tab=" + viewer.TabApplications},
		{Label: app.Name},
	}

	data := viewmodels.ApplicationViewData{
		Layout:   layout,
		Name:     app.Name,
		Version:  app.Version,
		Sources:  app.Sources,
		BackHref: "/?tab=" + viewer.TabApplications,
	}

	var selected cbom.ServiceRef
	ref, hasService := state.SelectedService.Get()
	if hasService {
		selected = ref
	}
	for _, svc := range app.Services {
		isSelected := hasService && strings.EqualFold(selected.Service, svc.Name)
		vulnerable := 0
		for _, alg := range svc.Algorithms {
			if alg.Quantum == cbom.QuantumVulnerable {
				vulnerable++
			}
		}
		data.Services = append(data.Services, viewmodels.ServiceRow{
			Name:       svc.Name,
			Language:   svc.Language,
			Href:       views.ApplicationURL(app.Name, svc.Name),
			Libraries:  len(svc.Libraries),
			Algorithms: len(svc.Algorithms),
			Protocols:  len(svc.Protocols),
			Vulnerable: vulnerable,
			Selected:   isSelected,
		})
		if isSelected && state.ShowServiceDetails {
			data.Detail = &viewmodels.ServiceDetail{Service: svc, CloseHref: views.ApplicationURL(app.Name, "")}
		}
	}
	return data
}
