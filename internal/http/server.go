package httpapp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-sspm/open-cbom/internal/auth"
	"github.com/open-sspm/open-cbom/internal/http/authn"
	"github.com/open-sspm/open-cbom/internal/http/handlers"
	"github.com/open-sspm/open-cbom/web"
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// NewEchoServer creates a new HTTP server around h. h.Sessions must be set.
func NewEchoServer(h *handlers.Handlers) (*EchoServer, error) {
	if h == nil || h.Store == nil {
		return nil, errors.New("http server requires a store")
	}
	if h.Sessions == nil {
		return nil, errors.New("http server requires a session manager")
	}
	es := &EchoServer{h: h, e: echo.New()}
	es.e.HTTPErrorHandler = es.httpErrorHandler
	es.e.Use(middleware.Recover())
	es.e.Use(requestID())
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.h.HandleHealthz)
	es.e.StaticFS("/static", web.Static())

	csrf := middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
	})

	public := es.e.Group("", csrf)
	public.GET("/login", es.h.HandleLoginGet)
	public.POST("/login", es.h.HandleLoginPost)

	authed := es.e.Group("", csrf)
	if es.h.Cfg.AuthDisabled {
		authed.Use(authn.AllowAnonymous())
	} else {
		authed.Use(authn.RequireAuth(es.h.Sessions, es.h.Store))
	}
	authed.GET("/", es.h.HandleDashboard)
	authed.GET("/materials", es.h.HandleMaterials)
	authed.GET("/applications/:name", es.h.HandleApplication)
	authed.GET("/drilldown", es.h.HandleDrillDown)
	authed.GET("/datasources", es.h.HandleDataSources)
	authed.POST("/datasources/select", es.h.HandleDataSourceSelect)
	authed.POST("/datasources/resync", es.h.HandleResync, authn.RequireRole(auth.RoleAdmin))
	authed.GET("/api/state", es.h.HandleAPIState)
	authed.GET("/api/graph", es.h.HandleAPIGraph)
	authed.POST("/logout", es.h.HandleLogoutPost)
}

// Handler returns the root handler with session loading applied.
func (es *EchoServer) Handler() http.Handler {
	return es.h.Sessions.LoadAndSave(es.e)
}

// requestID reuses a sane inbound X-Request-ID or mints one.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(echo.HeaderXRequestID))
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			c.Set(handlers.ContextKeyRequestID, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	if resp, uErr := echo.UnwrapResponse(c.Response()); uErr == nil && resp.Committed {
		return
	}

	status := httpStatusFromError(err)
	switch {
	case status == http.StatusNotFound:
		_ = handlers.RenderNotFound(c)
	case status == http.StatusForbidden:
		_ = es.h.RenderForbidden(c)
	case status >= 400 && status < 500:
		_ = c.String(status, http.StatusText(status))
	default:
		_ = es.h.RenderError(c, err)
	}
}

func httpStatusFromError(err error) int {
	var coder echo.HTTPStatusCoder
	if errors.As(err, &coder) {
		if status := coder.StatusCode(); status != 0 {
			return status
		}
	}
	return http.StatusInternalServerError
}
