package views

import (
	"github.com/a-h/templ"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
)

func DataSourcesPage(data viewmodels.DataSourcesViewData) templ.Component {
	return Layout(data.Layout, component(func(h *htmlWriter) {
		h.elem("h1", "Data sources")
		if !data.HasSources {
			emptyState(h, "No data sources are configured. Add them to the data source catalog and run a sync.")
			return
		}
		tableHead(h, "Name", "Type", "Format", "Services", "Last updated", "Status", "")
		for _, ds := range data.Sources {
			if ds.Selected {
				h.raw(`<tr class="selected">`)
			} else {
				h.raw("<tr>")
			}
			h.elem("td", ds.Name, "title", ds.ID)
			h.elem("td", ds.Type)
			h.elem("td", OrDash(ds.Format))
			h.elem("td", FormatInt(ds.ServiceCount))
			h.elem("td", OrDash(ds.LastUpdated))
			h.raw("<td>")
			h.elem("span", Humanize(ds.Status), "class", DataSourceStatusBadgeClass(ds.Status))
			if ds.LastError != "" {
				h.elem("div", ds.LastError, "class", "muted")
			}
			h.raw("</td><td>")
			if ds.Selected {
				h.elem("strong", "Selected")
			} else {
				h.raw(`<form method="post" action="/datasources/select" class="inline">`)
				h.open("input", "type", "hidden", "name", "csrf", "value", data.Layout.CSRFToken)
				h.open("input", "type", "hidden", "name", "id", "value", ds.ID)
				h.raw(`<input type="hidden" name="redirect" value="/datasources"><button type="submit">Select</button></form>`)
			}
			h.raw("</td></tr>")
		}
		tableEnd(h)

		if data.CanResync {
			h.raw(`<form method="post" action="/datasources/resync" hx-boost="false">`)
			h.open("input", "type", "hidden", "name", "csrf", "value", data.Layout.CSRFToken)
			h.raw(`<button type="submit">Resync selected source</button></form>`)
		}
	}))
}
