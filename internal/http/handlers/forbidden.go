package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/open-cbom/internal/http/views"
)

func (h *Handlers) RenderForbidden(c *echo.Context) error {
	layout := h.LayoutData(c, "Forbidden", nil)

	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(http.StatusForbidden)
	if err := views.ForbiddenPage(layout).Render(c.Request().Context(), c.Response()); err != nil {
		return h.RenderError(c, err)
	}
	return nil
}
