package views

import (
	"github.com/a-h/templ"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
)

const DrillDownResultsID = "drilldown-results"

func DrillDownPage(data viewmodels.DrillDownViewData) templ.Component {
	return Layout(data.Layout, component(func(h *htmlWriter) {
		h.elem("h1", "Drill-down: "+Humanize(data.ComponentType))
		h.open("form", "method", "get", "action", "/drilldown",
			"hx-get", "/drilldown", "hx-target", "#"+DrillDownResultsID, "hx-push-url", "true",
			"hx-trigger", "input changed delay:300ms from:input[name='q'], submit")
		h.open("input", "type", "hidden", "name", "type", "value", data.ComponentType)
		h.open("input", "type", "search", "name", "q", "value", data.Query, "aria-label", "Filter components")
		h.raw(`<button type="submit">Filter</button>`)
		h.close("form")
		h.open("div", "id", DrillDownResultsID)
		h.render(DrillDownResults(data))
		h.close("div")
		h.raw("<p>")
		h.link(data.BackHref, "Back to the dashboard")
		h.raw("</p>")
	}))
}

func DrillDownResults(data viewmodels.DrillDownViewData) templ.Component {
	return component(func(h *htmlWriter) {
		if !data.HasDataset {
			emptyState(h, "Select a data source and load a CBOM dataset first.")
			return
		}
		h.elem("p", FormatInt(data.Pager.TotalCount)+" components across "+FormatInt(data.TotalApplications)+
			" applications and "+FormatInt(data.TotalServices)+" services.", "class", "muted")
		if len(data.Rows) == 0 {
			emptyState(h, "No components match.")
			return
		}
		tableHead(h, "Component", "Language", "Versions", "Applications", "Services")
		for _, row := range data.Rows {
			h.raw("<tr>")
			h.elem("td", row.Name)
			h.elem("td", OrDash(row.Language))
			h.elem("td", JoinOrDash(row.Versions))
			h.raw("<td>")
			for i, app := range row.Applications {
				if i > 0 {
					h.raw(", ")
				}
				h.link(ApplicationURL(app, ""), app)
			}
			h.raw("</td><td>")
			for i, svc := range row.Services {
				if i > 0 {
					h.raw(", ")
				}
				h.link(svc.Href, svc.Label)
			}
			h.raw("</td></tr>")
		}
		tableEnd(h)
		pager(h, data.Pager, "#"+DrillDownResultsID)
	})
}
