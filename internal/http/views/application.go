package views

import (
	"github.com/a-h/templ"
	"github.com/open-sspm/open-cbom/internal/cbom"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
)

// ServiceDetailID is the htmx target of the service detail panel.
const ServiceDetailID = "service-detail"

func ApplicationPage(data viewmodels.ApplicationViewData) templ.Component {
	return Layout(data.Layout, component(func(h *htmlWriter) {
		title := data.Name
		if data.Version != "" {
			title += " " + data.Version
		}
		h.elem("h1", title)
		if len(data.Sources) > 0 {
			h.elem("p", "Documents: "+JoinOrDash(data.Sources), "class", "muted")
		}

		if len(data.Services) == 0 {
			emptyState(h, "This application has no services.")
		} else {
			tableHead(h, "Service", "Language", "Libraries", "Algorithms", "Protocols", "Quantum-vulnerable algorithms")
			for _, svc := range data.Services {
				if svc.Selected {
					h.raw(`<tr class="selected">`)
				} else {
					h.raw("<tr>")
				}
				h.raw("<td>")
				h.link(svc.Href, svc.Name, "hx-get", svc.Href, "hx-target", "#"+ServiceDetailID, "hx-select", "#"+ServiceDetailID, "hx-swap", "outerHTML")
				h.raw("</td>")
				h.elem("td", OrDash(svc.Language))
				h.elem("td", FormatInt(svc.Libraries))
				h.elem("td", FormatInt(svc.Algorithms))
				h.elem("td", FormatInt(svc.Protocols))
				h.elem("td", FormatInt(svc.Vulnerable))
				h.raw("</tr>")
			}
			tableEnd(h)
		}

		h.render(ServiceDetailPanel(data.Detail))
		h.raw("<p>")
		h.link(data.BackHref, "Back to applications")
		h.raw("</p>")
	}))
}

// ServiceDetailPanel renders the detail panel, or an empty placeholder
// when no service is shown.
func ServiceDetailPanel(detail *viewmodels.ServiceDetail) templ.Component {
	return component(func(h *htmlWriter) {
		if detail == nil {
			h.open("div", "id", ServiceDetailID)
			h.close("div")
			return
		}
		svc := detail.Service
		h.open("section", "id", ServiceDetailID, "class", "detail", "aria-label", "Service details")
		h.elem("h2", svc.Name)
		h.elem("p", "Language: "+OrDash(svc.Language))
		if len(svc.Endpoints) > 0 {
			h.elem("p", "Endpoints: "+JoinOrDash(svc.Endpoints))
		}

		h.elem("h3", "Libraries")
		if len(svc.Libraries) == 0 {
			h.elem("p", "None found.", "class", "muted")
		} else {
			h.raw("<ul>")
			for _, lib := range svc.Libraries {
				h.raw("<li>")
				h.link(DrillDownURL(lib.Name, string(cbom.ComponentLibraries)), lib.Name)
				if lib.Version != "" {
					h.text(" " + lib.Version)
				}
				h.raw("</li>")
			}
			h.raw("</ul>")
		}

		h.elem("h3", "Algorithms")
		if len(svc.Algorithms) == 0 {
			h.elem("p", "None found.", "class", "muted")
		} else {
			h.raw("<ul>")
			for _, alg := range svc.Algorithms {
				h.raw("<li>")
				h.text(alg.Name + " ")
				h.elem("span", HumanizeQuantum(string(alg.Quantum)), "class", QuantumBadgeClass(string(alg.Quantum)))
				h.raw("</li>")
			}
			h.raw("</ul>")
		}

		h.elem("h3", "Protocols")
		if len(svc.Protocols) == 0 {
			h.elem("p", "None found.", "class", "muted")
		} else {
			h.raw("<ul>")
			for _, p := range svc.Protocols {
				label := p.Name
				if p.Version != "" {
					label += " " + p.Version
				}
				h.elem("li", label)
			}
			h.raw("</ul>")
		}
		h.link(detail.CloseHref, "Close")
		h.close("section")
	})
}
