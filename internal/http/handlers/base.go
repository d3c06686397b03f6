// Package handlers contains HTTP handler logic split by page.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-sspm/open-cbom/internal/config"
	"github.com/open-sspm/open-cbom/internal/http/authn"
	"github.com/open-sspm/open-cbom/internal/http/viewmodels"
	"github.com/open-sspm/open-cbom/internal/inventory"
	"github.com/open-sspm/open-cbom/internal/store"
	"github.com/open-sspm/open-cbom/internal/viewer"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// SyncRunner is the interface for triggering manual syncs.
type SyncRunner interface {
	RunOnce(context.Context) error
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg      config.Config
	Store    store.Store
	Cache    *inventory.Cache
	Sessions *scs.SessionManager
	Syncer   SyncRunner
}

// LayoutData builds the common layout data for page rendering. state may be
// nil on pages that do not show the data source selector.
func (h *Handlers) LayoutData(c *echo.Context, title string, state *viewer.State) viewmodels.LayoutData {
	principal, ok := authn.PrincipalFromContext(c)
	csrfToken, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	layout := viewmodels.LayoutData{
		Title:       title,
		CSRFToken:   csrfToken,
		UserEmail:   principal.Email,
		UserRole:    principal.Role,
		IsAdmin:     ok && principal.IsAdmin(),
		AuthEnabled: !h.Cfg.AuthDisabled,
		Toast:       popFlashToast(c),
		ActivePath:  c.Request().URL.Path,
	}
	if state == nil {
		return layout
	}

	selected, hasSelected := state.SelectedDataSource().Get()
	for _, ds := range state.DataSources() {
		layout.DataSources = append(layout.DataSources, viewmodels.DataSourceOption{
			ID:       ds.ID,
			Name:     dataSourceName(ds.Name, ds.ID),
			Status:   string(ds.Status),
			Selected: hasSelected && ds.ID == selected.ID,
		})
	}
	return layout
}

func dataSourceName(name, id string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return id
}

// RenderComponent renders a templ component as the response.
func (h *Handlers) RenderComponent(c *echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(c.Request().Context(), c.Response()); err != nil {
		return h.RenderError(c, err)
	}
	return nil
}

// RenderError returns a plain text error response.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
	return c.String(http.StatusInternalServerError, msg)
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return c.String(http.StatusNotFound, "404 page not found")
}

func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (h *Handlers) pageSize() int {
	if h.Cfg.PageSize > 0 {
		return h.Cfg.PageSize
	}
	return config.DefaultPageSize
}
