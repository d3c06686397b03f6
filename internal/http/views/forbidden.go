package views

import (
	"github.com/a-h/templ"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
)

func ForbiddenPage(layout viewmodels.LayoutData) templ.Component {
	return Layout(layout, component(func(h *htmlWriter) {
		h.elem("h1", "Forbidden")
		h.elem("p", "Your role does not allow this action. Ask an admin for access.")
		h.link("/", "Back to the dashboard")
	}))
}
