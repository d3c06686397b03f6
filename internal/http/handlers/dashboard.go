package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/open-cbom/internal/cbom"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
	"github.com/open-sspm/open-cbom/internal/http/views"
	"github.com/open-sspm/open-cbom/internal/viewer"
)

var tabLabels = map[string]string{
	viewer.TabOverview:     "Overview",
	viewer.TabApplications: "Applications",
	viewer.TabLibraries:    "Libraries",
	viewer.TabAlgorithms:   "Algorithms",
	viewer.TabProtocols:    "Protocols",
	viewer.TabLanguages:    "Languages",
	viewer.TabGraph:        "Graph",
	viewer.TabCertificates: "Certificates",
	viewer.TabMaterials:    "Keys & secrets",
}

var modePaths = map[viewer.SearchMode]string{
	viewer.ModeCBOM:            "/",
	viewer.ModeCryptoMaterials: "/materials",
}

func (h *Handlers) HandleDashboard(c *echo.Context) error {
	return h.renderDashboard(c, viewer.ModeCBOM)
}

func (h *Handlers) HandleMaterials(c *echo.Context) error {
	return h.renderDashboard(c, viewer.ModeCryptoMaterials)
}

// renderDashboard serves both search modes. The path decides the mode; a
// mode query parameter redirects to the other path.
func (h *Handlers) renderDashboard(c *echo.Context, mode viewer.SearchMode) error {
	ctx := c.Request().Context()
	path := modePaths[mode]

	if raw := strings.TrimSpace(c.QueryParam("mode")); raw != "" {
		requested, err := viewer.ParseSearchMode(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		values := c.Request().URL.Query()
		values.Del("mode")
		values.Del("tab")
		target := modePaths[requested]
		if encoded := values.Encode(); encoded != "" {
			target += "?" + encoded
		}
		if requested != mode {
			return c.Redirect(http.StatusSeeOther, target)
		}
	}

	state, err := h.loadViewer(c)
	if err != nil {
		return h.RenderError(c, err)
	}
	_ = state.SetSearchMode(mode)

	query := state.LastSearchQuery
	if c.Request().URL.Query().Has("q") {
		query = c.QueryParam("q")
	}
	if c.QueryParam("reset") != "" {
		state.ClearSelection()
		state.ClearDrillDown()
		query = ""
	}
	if tab := strings.TrimSpace(c.QueryParam("tab")); tab != "" {
		if err := state.SetActiveTab(tab); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	filter := cbom.Filter{Language: strings.TrimSpace(c.QueryParam("language"))}
	if raw := strings.TrimSpace(c.QueryParam("quantum")); raw != "" {
		status, ok := cbom.ParseQuantumStatus(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown quantum status")
		}
		filter.Quantum = status
	}

	searched, err := h.search(ctx, state, query, filter)
	if err != nil {
		return h.RenderError(c, err)
	}

	if node := strings.TrimSpace(c.QueryParam("node")); node != "" {
		if err := state.SelectNode(node); err != nil {
			if errors.Is(err, viewer.ErrUnknownSelection) {
				return RenderNotFound(c)
			}
			if !errors.Is(err, viewer.ErrNoDataset) {
				return h.RenderError(c, err)
			}
		}
	}
	h.saveViewer(c, state)

	lq := listQuery{
		Path:           path,
		Query:          state.LastSearchQuery,
		Tab:            state.ActiveTab,
		Language:       filter.Language,
		Quantum:        string(filter.Quantum),
		PerPage:        parsePerPage(c, h.pageSize()),
		DefaultPerPage: h.pageSize(),
	}
	data := h.dashboardViewData(c, state, searched, lq, parsePageParam(c))
	if wantsPartial(c, views.DashboardResultsID) {
		return h.RenderComponent(c, views.DashboardResults(data))
	}
	return h.RenderComponent(c, views.DashboardPage(data))
}

func (h *Handlers) dashboardViewData(c *echo.Context, state *viewer.State, searched *cbom.Inventory, lq listQuery, page int) viewmodels.DashboardViewData {
	title := "Dashboard"
	if state.SearchMode == viewer.ModeCryptoMaterials {
		title = "Crypto materials"
	}
	layout := h.LayoutData(c, title, state)
	layout.Breadcrumbs = []viewmodels.Breadcrumb{{Label: title, Href: lq.Path}}
	if src, ok := state.SelectedDataSource().Get(); ok {
		layout.Breadcrumbs = append(layout.Breadcrumbs, viewmodels.Breadcrumb{Label: dataSourceName(src.Name, src.ID)})
	}

	data := viewmodels.DashboardViewData{
		Layout: layout,
		Search: viewmodels.SearchBarData{
			Action:        lq.Path,
			Mode:          string(state.SearchMode),
			Query:         state.LastSearchQuery,
			Tab:           state.ActiveTab,
			Language:      lq.Language,
			Quantum:       lq.Quantum,
			PerPage:       lq.PerPage,
			CBOMHref:      modePaths[viewer.ModeCBOM],
			MaterialsHref: modePaths[viewer.ModeCryptoMaterials],
			ResetHref:     lq.Path + "?reset=1",
		},
		ActiveTab: state.ActiveTab,
	}
	for _, tab := range viewer.Tabs(state.SearchMode) {
		data.Tabs = append(data.Tabs, viewmodels.TabLink{
			Key:    tab,
			Label:  tabLabels[tab],
			Href:   lq.withTab(tab).URL(1),
			Active: tab == state.ActiveTab,
		})
	}
	if searched != nil {
		data.Search.LanguageOptions = filterOptions(cbom.LanguageOptions(searched), lq.Language)
		data.Search.QuantumOptions = filterOptions(cbom.QuantumOptions(searched), lq.Quantum)
	}

	ds := state.ActiveDataset()
	data.HasDataset = ds.Present
	if !ds.Present {
		data.EmptyStateMsg = "No data source selected. Configure one on the data sources page."
		if _, ok := state.SelectedDataSource().Get(); ok {
			data.EmptyStateMsg = "The selected data source has no documents yet."
		}
		return data
	}

	if ds.CBOM != nil {
		fillCBOMTab(&data, state, ds.CBOM, lq, page)
	}
	if ds.Materials != nil {
		fillMaterialsTab(&data, ds.Materials, lq, page)
	}
	return data
}

func filterOptions(opts []cbom.FilterOption, current string) []viewmodels.FilterOption {
	out := make([]viewmodels.FilterOption, 0, len(opts))
	for _, opt := range opts {
		out = append(out, viewmodels.FilterOption{
			Value:    opt.Value,
			Label:    opt.Label,
			Count:    opt.Count,
			Selected: current != "" && strings.EqualFold(current, opt.Value),
		})
	}
	return out
}

func fillCBOMTab(data *viewmodels.DashboardViewData, state *viewer.State, inv *cbom.Inventory, lq listQuery, page int) {
	sum := inv.Summary
	vulnerableTone := ""
	if sum.QuantumVulnerable > 0 {
		vulnerableTone = "danger"
	}
	data.Cards = []viewmodels.SummaryCard{
		{Label: "Applications", Value: sum.Applications},
		{Label: "Services", Value: sum.Services},
		{Label: "Libraries", Value: sum.Libraries},
		{Label: "Algorithms", Value: sum.Algorithms},
		{Label: "Protocols", Value: sum.Protocols},
		{Label: "Quantum-vulnerable algorithms", Value: sum.QuantumVulnerable, Tone: vulnerableTone},
	}
	href := lq.URL

	switch state.ActiveTab {
	case viewer.TabOverview:
		data.QuantumMix = filterOptions(cbom.QuantumOptions(inv), "")
		if dd, ok := state.ComponentsDrillDownData.Get(); ok {
			data.DrillDownHref = views.DrillDownURL(dd.Query, string(dd.ComponentType))
		}
	case viewer.TabApplications:
		selected := state.SelectedApplication.OrElse("")
		rows := make([]viewmodels.ApplicationRow, 0, len(inv.Applications))
		for _, app := range inv.Applications {
			rows = append(rows, viewmodels.ApplicationRow{
				Name:       app.Name,
				Version:    app.Version,
				Href:       views.ApplicationURL(app.Name, ""),
				Services:   len(app.Services),
				Languages:  app.Languages(),
				Vulnerable: vulnerableServices(app),
				Selected:   strings.EqualFold(selected, app.Name),
			})
		}
		data.Applications, data.Pager = paginate(rows, page, lq.PerPage, href)
	case viewer.TabLibraries:
		rows := make([]viewmodels.LibraryRow, 0, len(inv.Libraries))
		for _, lib := range inv.Libraries {
			rows = append(rows, viewmodels.LibraryRow{
				LibraryUsage:  lib,
				DrillDownHref: views.DrillDownURL(lib.Name, string(cbom.ComponentLibraries)),
			})
		}
		data.Libraries, data.Pager = paginate(rows, page, lq.PerPage, href)
	case viewer.TabAlgorithms:
		data.Algorithms, data.Pager = paginate(inv.Algorithms, page, lq.PerPage, href)
	case viewer.TabProtocols:
		data.Protocols, data.Pager = paginate(inv.Protocols, page, lq.PerPage, href)
	case viewer.TabLanguages:
		rows := make([]viewmodels.LanguageRow, 0, len(inv.Languages))
		for _, lang := range inv.Languages {
			rows = append(rows, viewmodels.LanguageRow{
				LanguageUsage: lang,
				DrillDownHref: views.DrillDownURL(lang.Name, string(cbom.ComponentLanguages)),
			})
		}
		data.Languages, data.Pager = paginate(rows, page, lq.PerPage, href)
	case viewer.TabGraph:
		graph := cbom.BuildGraph(inv)
		selected := state.SelectedNode.OrElse("")
		rows := make([]viewmodels.GraphNodeRow, 0, len(graph.Nodes))
		for _, n := range graph.Nodes {
			rows = append(rows, viewmodels.GraphNodeRow{
				ID:       n.ID,
				Kind:     string(n.Kind),
				Label:    n.Label,
				Risk:     string(n.Risk),
				Selected: n.ID == selected,
			})
		}
		pageRows, pager := paginate(rows, page, lq.PerPage, href)
		for i := range pageRows {
			pageRows[i].Href = lq.withNode(pageRows[i].ID).URL(pager.Page)
		}
		data.Graph = viewmodels.GraphData{
			NodeCount:    len(graph.Nodes),
			EdgeCount:    len(graph.Edges),
			SelectedNode: selected,
			Nodes:        pageRows,
			JSONHref:     "/api/graph",
		}
		data.Pager = pager
	}
}

func fillMaterialsTab(data *viewmodels.DashboardViewData, m *cbom.MaterialsInventory, lq listQuery, page int) {
	sum := m.Summary
	expiredTone, expiringTone := "", ""
	if sum.Expired > 0 {
		expiredTone = "danger"
	}
	if sum.Expiring > 0 {
		expiringTone = "warning"
	}
	data.Cards = []viewmodels.SummaryCard{
		{Label: "Certificates", Value: sum.Certificates},
		{Label: "Expired", Value: sum.Expired, Tone: expiredTone},
		{Label: "Expiring within 30 days", Value: sum.Expiring, Tone: expiringTone},
		{Label: "Keys & secrets", Value: sum.Materials},
		{Label: "Applications", Value: sum.Applications},
	}
	switch data.ActiveTab {
	case viewer.TabCertificates:
		data.Certificates, data.Pager = paginate(m.Certificates, page, lq.PerPage, lq.URL)
	case viewer.TabMaterials:
		data.Materials, data.Pager = paginate(m.Materials, page, lq.PerPage, lq.URL)
	}
}

// vulnerableServices counts the services of app using a quantum-vulnerable
// algorithm.
func vulnerableServices(app cbom.Application) int {
	n := 0
	for _, svc := range app.Services {
		for _, alg := range svc.Algorithms {
			if alg.Quantum == cbom.QuantumVulnerable {
				n++
				break
			}
		}
	}
	return n
}
