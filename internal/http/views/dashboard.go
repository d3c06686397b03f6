package views

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
)

// DashboardResultsID is the htmx target re-rendered by searches, tabs and
// page links.
const DashboardResultsID = "dashboard-results"

func DashboardPage(data viewmodels.DashboardViewData) templ.Component {
	return Layout(data.Layout, component(func(h *htmlWriter) {
		searchBar(h, data.Search)
		h.open("div", "id", DashboardResultsID)
		h.render(DashboardResults(data))
		h.close("div")
	}))
}

func searchBar(h *htmlWriter, s viewmodels.SearchBarData) {
	h.raw(`<section class="search">`)
	h.raw(`<div class="mode-toggle" role="group" aria-label="Search mode">`)
	cbomAttrs := []string{"href", s.CBOMHref}
	materialsAttrs := []string{"href", s.MaterialsHref}
	if s.Mode == "crypto-materials" {
		materialsAttrs = append(materialsAttrs, "aria-pressed", "true")
	} else {
		cbomAttrs = append(cbomAttrs, "aria-pressed", "true")
	}
	h.elem("a", "CBOM", cbomAttrs...)
	h.raw(" ")
	h.elem("a", "Crypto materials", materialsAttrs...)
	h.raw("</div>")

	h.open("form", "method", "get", "action", s.Action,
		"hx-get", s.Action,
		"hx-target", "#"+DashboardResultsID,
		"hx-push-url", "true",
		"hx-trigger", "input changed delay:300ms from:input[name='q'], change from:select, submit")
	h.open("input", "type", "hidden", "name", "tab", "value", s.Tab)
	h.open("input", "type", "hidden", "name", "per_page", "value", FormatInt(s.PerPage))
	placeholder := "Search applications, services, libraries, algorithms"
	if s.Mode == "crypto-materials" {
		placeholder = "Search certificates, keys and secrets"
	}
	h.open("input", "type", "search", "name", "q", "value", s.Query, "placeholder", placeholder, "aria-label", "Search")
	if s.Mode != "crypto-materials" {
		filterSelect(h, "language", "All languages", s.Language, s.LanguageOptions)
		filterSelect(h, "quantum", "Any quantum status", s.Quantum, s.QuantumOptions)
	}
	h.raw(`<button type="submit">Search</button> `)
	h.link(s.ResetHref, "Clear")
	h.close("form")
	h.raw("</section>")
}

func filterSelect(h *htmlWriter, name, anyLabel, current string, options []viewmodels.FilterOption) {
	h.open("select", "name", name, "aria-label", anyLabel)
	h.elem("option", anyLabel, "value", "")
	for _, opt := range options {
		attrs := []string{"value", opt.Value}
		if opt.Selected || (current != "" && strings.EqualFold(current, opt.Value)) {
			attrs = append(attrs, "selected", "")
		}
		h.elem("option", opt.Label+" ("+FormatInt(opt.Count)+")", attrs...)
	}
	h.close("select")
}

// DashboardResults is the part of the dashboard swapped by htmx requests.
func DashboardResults(data viewmodels.DashboardViewData) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<nav class="tabs" role="tablist">`)
		for _, tab := range data.Tabs {
			selected := "false"
			if tab.Active {
				selected = "true"
			}
			h.link(tab.Href, tab.Label, "role", "tab", "aria-selected", selected,
				"hx-get", tab.Href, "hx-target", "#"+DashboardResultsID, "hx-push-url", "true")
		}
		h.raw("</nav>")

		if !data.HasDataset {
			emptyState(h, data.EmptyStateMsg)
			return
		}

		if len(data.Cards) > 0 {
			h.raw(`<section class="cards">`)
			for _, card := range data.Cards {
				h.open("div", "class", CardClass(card.Tone))
				h.elem("div", card.Label, "class", "label")
				h.elem("div", FormatInt(card.Value), "class", "value")
				h.close("div")
			}
			h.raw("</section>")
		}

		switch data.ActiveTab {
		case "overview":
			overviewTab(h, data)
		case "applications":
			applicationsTab(h, data.Applications)
		case "libraries":
			librariesTab(h, data.Libraries)
		case "algorithms":
			algorithmsTab(h, data)
		case "protocols":
			protocolsTab(h, data)
		case "languages":
			languagesTab(h, data.Languages)
		case "graph":
			graphTab(h, data.Graph)
		case "certificates":
			certificatesTab(h, data)
		case "materials":
			materialsTab(h, data)
		}
		pager(h, data.Pager, "#"+DashboardResultsID)
	})
}

func overviewTab(h *htmlWriter, data viewmodels.DashboardViewData) {
	h.elem("h2", "Quantum readiness")
	if len(data.QuantumMix) == 0 {
		emptyState(h, "No cryptographic algorithms found.")
		return
	}
	h.raw("<ul class=\"quantum-mix\">")
	for _, opt := range data.QuantumMix {
		h.raw("<li>")
		h.elem("span", HumanizeQuantum(opt.Value), "class", QuantumBadgeClass(opt.Value))
		h.text(" " + FormatInt(opt.Count) + " algorithms")
		h.raw("</li>")
	}
	h.raw("</ul>")
	if data.DrillDownHref != "" {
		h.raw("<p>")
		h.link(data.DrillDownHref, "Continue the last drill-down")
		h.raw("</p>")
	}
}

func tableHead(h *htmlWriter, columns ...string) {
	h.raw("<table><thead><tr>")
	for _, col := range columns {
		h.elem("th", col)
	}
	h.raw("</tr></thead><tbody>")
}

func tableEnd(h *htmlWriter) {
	h.raw("</tbody></table>")
}

func applicationsTab(h *htmlWriter, rows []viewmodels.ApplicationRow) {
	if len(rows) == 0 {
		emptyState(h, "No applications match the current search.")
		return
	}
	tableHead(h, "Application", "Version", "Services", "Languages", "Quantum-vulnerable services")
	for _, row := range rows {
		if row.Selected {
			h.raw(`<tr class="selected">`)
		} else {
			h.raw("<tr>")
		}
		h.raw("<td>")
		h.link(row.Href, row.Name)
		h.raw("</td>")
		h.elem("td", OrDash(row.Version))
		h.elem("td", FormatInt(row.Services))
		h.elem("td", JoinOrDash(row.Languages))
		h.elem("td", FormatInt(row.Vulnerable))
		h.raw("</tr>")
	}
	tableEnd(h)
}

func librariesTab(h *htmlWriter, rows []viewmodels.LibraryRow) {
	if len(rows) == 0 {
		emptyState(h, "No cryptographic libraries match the current search.")
		return
	}
	tableHead(h, "Library", "Language", "Versions", "Latest", "Applications", "Services", "Outdated services", "")
	for _, row := range rows {
		h.raw("<tr>")
		h.elem("td", row.Name)
		h.elem("td", OrDash(row.Language))
		h.elem("td", JoinOrDash(row.Versions))
		h.elem("td", OrDash(row.LatestVersion))
		h.elem("td", FormatInt(row.Applications))
		h.elem("td", FormatInt(row.Services))
		h.elem("td", FormatInt(row.OutdatedServices))
		h.raw("<td>")
		h.link(row.DrillDownHref, "Drill down")
		h.raw("</td></tr>")
	}
	tableEnd(h)
}

func algorithmsTab(h *htmlWriter, data viewmodels.DashboardViewData) {
	if len(data.Algorithms) == 0 {
		emptyState(h, "No algorithms match the current search.")
		return
	}
	tableHead(h, "Algorithm", "Primitive", "Quantum status", "Applications", "Services", "Occurrences")
	for _, alg := range data.Algorithms {
		h.raw("<tr>")
		h.elem("td", alg.Name)
		h.elem("td", Humanize(alg.Primitive))
		h.raw("<td>")
		h.elem("span", HumanizeQuantum(string(alg.Quantum)), "class", QuantumBadgeClass(string(alg.Quantum)))
		h.raw("</td>")
		h.elem("td", FormatInt(alg.Applications))
		h.elem("td", FormatInt(alg.Services))
		h.elem("td", FormatInt(alg.Occurrences))
		h.raw("</tr>")
	}
	tableEnd(h)
}

func protocolsTab(h *htmlWriter, data viewmodels.DashboardViewData) {
	if len(data.Protocols) == 0 {
		emptyState(h, "No protocols match the current search.")
		return
	}
	tableHead(h, "Protocol", "Type", "Versions", "Applications", "Services")
	for _, p := range data.Protocols {
		h.raw("<tr>")
		h.elem("td", p.Name)
		h.elem("td", OrDash(p.Type))
		h.elem("td", JoinOrDash(p.Versions))
		h.elem("td", FormatInt(p.Applications))
		h.elem("td", FormatInt(p.Services))
		h.raw("</tr>")
	}
	tableEnd(h)
}

func languagesTab(h *htmlWriter, rows []viewmodels.LanguageRow) {
	if len(rows) == 0 {
		emptyState(h, "No languages match the current search.")
		return
	}
	tableHead(h, "Language", "Applications", "Services", "Libraries", "")
	for _, row := range rows {
		h.raw("<tr>")
		h.elem("td", row.Name)
		h.elem("td", FormatInt(row.Applications))
		h.elem("td", FormatInt(row.Services))
		h.elem("td", FormatInt(row.Libraries))
		h.raw("<td>")
		h.link(row.DrillDownHref, "Drill down")
		h.raw("</td></tr>")
	}
	tableEnd(h)
}

func graphTab(h *htmlWriter, g viewmodels.GraphData) {
	h.open("p", "class", "graph-summary")
	h.text(FormatInt(g.NodeCount) + " nodes, " + FormatInt(g.EdgeCount) + " edges. ")
	h.link(g.JSONHref, "Download as JSON", "hx-boost", "false")
	h.close("p")
	if len(g.Nodes) == 0 {
		emptyState(h, "The graph is empty.")
		return
	}
	tableHead(h, "Node", "Kind", "Risk", "")
	for _, n := range g.Nodes {
		if n.Selected {
			h.raw(`<tr class="selected">`)
		} else {
			h.raw("<tr>")
		}
		h.elem("td", n.Label, "title", n.ID)
		h.elem("td", Humanize(n.Kind))
		h.raw("<td>")
		if n.Risk != "" {
			h.elem("span", HumanizeQuantum(n.Risk), "class", QuantumBadgeClass(n.Risk))
		}
		h.raw("</td><td>")
		if !n.Selected {
			h.link(n.Href, "Select", "hx-get", n.Href, "hx-target", "#"+DashboardResultsID)
		}
		h.raw("</td></tr>")
	}
	tableEnd(h)
}

func certificatesTab(h *htmlWriter, data viewmodels.DashboardViewData) {
	if len(data.Certificates) == 0 {
		emptyState(h, "No certificates match the current search.")
		return
	}
	tableHead(h, "Certificate", "Subject", "Issuer", "Not after", "Expiry", "Signature algorithm", "Application", "Service")
	for _, cert := range data.Certificates {
		h.raw("<tr>")
		h.elem("td", cert.Name)
		h.elem("td", OrDash(cert.Subject))
		h.elem("td", OrDash(cert.Issuer))
		notAfter := ""
		if !cert.NotAfter.IsZero() {
			notAfter = cert.NotAfter.UTC().Format("2006-01-02")
		}
		h.elem("td", OrDash(notAfter))
		h.raw("<td>")
		h.elem("span", Humanize(string(cert.Expiry)), "class", ExpiryBadgeClass(string(cert.Expiry)))
		h.raw("</td>")
		h.elem("td", OrDash(cert.SignatureAlgorithm))
		h.raw("<td>")
		h.link(ApplicationURL(cert.Application, ""), cert.Application)
		h.raw("</td>")
		h.elem("td", OrDash(cert.Service))
		h.raw("</tr>")
	}
	tableEnd(h)
}

func materialsTab(h *htmlWriter, data viewmodels.DashboardViewData) {
	if len(data.Materials) == 0 {
		emptyState(h, "No keys or secrets match the current search.")
		return
	}
	tableHead(h, "Material", "Type", "Size", "Algorithm", "State", "Application", "Service")
	for _, m := range data.Materials {
		h.raw("<tr>")
		h.elem("td", m.Name)
		h.elem("td", Humanize(m.Type))
		size := ""
		if m.Size > 0 {
			size = FormatInt(m.Size)
		}
		h.elem("td", OrDash(size))
		h.elem("td", OrDash(m.Algorithm))
		h.elem("td", Humanize(m.State))
		h.raw("<td>")
		h.link(ApplicationURL(m.Application, ""), m.Application)
		h.raw("</td>")
		h.elem("td", OrDash(m.Service))
		h.raw("</tr>")
	}
	tableEnd(h)
}
