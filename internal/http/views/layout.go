package views

import (
	"github.com/a-h/templ"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
)

const htmxScript = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

func Layout(data viewmodels.LayoutData, content templ.Component) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<!doctype html>")
		h.open("html", "lang", "en")
		h.raw(`<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.elem("title", data.Title+" · Open CBOM")
		h.raw(`<link rel="stylesheet" href="/static/app.css">`)
		h.open("script", "src", htmxScript, "defer", "")
		h.close("script")
		h.raw("</head>")
		h.open("body", "hx-boost", "true", "hx-headers", `{"X-CSRF-Token": "`+data.CSRFToken+`"}`)
		header(h, data)
		h.raw("<main>")
		if data.Toast != nil {
			toast(h, *data.Toast)
		}
		breadcrumbs(h, data.Breadcrumbs)
		h.render(content)
		h.raw("</main></body></html>")
	})
}

func header(h *htmlWriter, data viewmodels.LayoutData) {
	h.raw(`<header class="app-header">`)
	h.link("/", "Open CBOM", "class", "brand")
	h.raw("<nav>")
	for _, item := range []struct{ href, label string }{
		{"/", "Dashboard"},
		{"/materials", "Crypto materials"},
		{"/datasources", "Data sources"},
	} {
		h.raw(" ")
		h.link(item.href, item.label, "aria-current", AriaCurrent(data.ActivePath, item.href))
	}
	h.raw("</nav>")

	if len(data.DataSources) > 0 {
		h.open("form", "method", "post", "action", "/datasources/select", "class", "inline")
		h.open("input", "type", "hidden", "name", "csrf", "value", data.CSRFToken)
		h.open("input", "type", "hidden", "name", "redirect", "value", data.ActivePath)
		h.open("select", "name", "id", "aria-label", "Data source", "onchange", "this.form.requestSubmit()")
		for _, ds := range data.DataSources {
			attrs := []string{"value", ds.ID}
			if ds.Selected {
				attrs = append(attrs, "selected", "")
			}
			h.elem("option", ds.Name, attrs...)
		}
		h.close("select")
		h.raw(`<noscript><button type="submit">Switch</button></noscript>`)
		h.close("form")
	}

	if data.AuthEnabled && data.UserEmail != "" {
		h.elem("span", data.UserEmail+" ("+HumanizeAuthUserRole(data.UserRole)+")", "class", "user")
		h.raw(`<form method="post" action="/logout" hx-boost="false" class="inline">`)
		h.open("input", "type", "hidden", "name", "csrf", "value", data.CSRFToken)
		h.raw(`<button type="submit">Sign out</button></form>`)
	}
	h.raw("</header>")
}

func breadcrumbs(h *htmlWriter, crumbs []viewmodels.Breadcrumb) {
	if len(crumbs) == 0 {
		return
	}
	h.raw(`<nav class="breadcrumbs" aria-label="Breadcrumb">`)
	for i, crumb := range crumbs {
		if i > 0 {
			h.raw(" / ")
		}
		if crumb.Href == "" || i == len(crumbs)-1 {
			h.elem("span", crumb.Label, "aria-current", "page")
			continue
		}
		h.link(crumb.Href, crumb.Label)
	}
	h.raw("</nav>")
}

func toast(h *htmlWriter, t viewmodels.ToastViewData) {
	role := "status"
	if t.Category == "error" {
		role = "alert"
	}
	h.open("div", "class", ToastClass(t.Category), "role", role)
	if t.Title != "" {
		h.elem("strong", t.Title)
	}
	if t.Description != "" {
		h.elem("p", t.Description)
	}
	h.close("div")
}

// emptyState renders the placeholder shown instead of an empty table.
func emptyState(h *htmlWriter, msg string) {
	h.elem("div", msg, "class", "empty")
}

func pager(h *htmlWriter, p viewmodels.Pager, target string) {
	if p.TotalCount == 0 {
		return
	}
	h.open("nav", "class", "pager", "aria-label", "Pagination")
	h.elem("span", "Showing "+FormatInt(p.ShowingFrom)+"–"+FormatInt(p.ShowingTo)+" of "+FormatInt(p.TotalCount))
	if p.PrevHref != "" {
		h.link(p.PrevHref, "Previous", "hx-get", p.PrevHref, "hx-target", target, "hx-push-url", "true")
	}
	for _, l := range p.Links {
		if l.Current {
			h.elem("strong", FormatInt(l.Number), "aria-current", "page")
			continue
		}
		h.link(l.Href, FormatInt(l.Number), "hx-get", l.Href, "hx-target", target, "hx-push-url", "true")
	}
	if p.NextHref != "" {
		h.link(p.NextHref, "Next", "hx-get", p.NextHref, "hx-target", target, "hx-push-url", "true")
	}
	h.close("nav")
}
