package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/open-cbom/internal/cbom"
)

type apiError struct {
	Error string `json:"error"`
}

// HandleAPIState returns the session's viewer state with its datasets
// reloaded for the last search.
func (h *Handlers) HandleAPIState(c *echo.Context) error {
	state, err := h.loadViewer(c)
	if err != nil {
		c.Logger().Error("load viewer state", "error", err)
		return c.JSON(http.StatusInternalServerError, apiError{Error: "internal error"})
	}
	if _, err := h.search(c.Request().Context(), state, state.LastSearchQuery, cbom.Filter{}); err != nil {
		c.Logger().Error("load dataset", "error", err)
		return c.JSON(http.StatusInternalServerError, apiError{Error: "internal error"})
	}
	return c.JSON(http.StatusOK, state)
}

// HandleAPIGraph returns the node/edge graph of the active CBOM dataset. It
// is empty in crypto-materials mode or without a dataset.
func (h *Handlers) HandleAPIGraph(c *echo.Context) error {
	state, err := h.loadViewer(c)
	if err != nil {
		c.Logger().Error("load viewer state", "error", err)
		return c.JSON(http.StatusInternalServerError, apiError{Error: "internal error"})
	}
	if _, err := h.search(c.Request().Context(), state, state.LastSearchQuery, cbom.Filter{}); err != nil {
		c.Logger().Error("load dataset", "error", err)
		return c.JSON(http.StatusInternalServerError, apiError{Error: "internal error"})
	}

	graph := cbom.Graph{Nodes: []cbom.Node{}, Edges: []cbom.Edge{}}
	if ds := state.ActiveDataset(); ds.Present && ds.CBOM != nil {
		graph = cbom.BuildGraph(ds.CBOM)
		if graph.Nodes == nil {
			graph.Nodes = []cbom.Node{}
		}
		if graph.Edges == nil {
			graph.Edges = []cbom.Edge{}
		}
	}
	return c.JSON(http.StatusOK, graph)
}
