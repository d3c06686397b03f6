package handlers

import (
	"context"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/open-cbom/internal/cbom"
	"github.com/open-sspm/open-cbom/internal/metrics"
	"github.com/open-sspm/open-cbom/internal/viewer"
)

// SessionKeyViewer holds the encoded viewer.Snapshot of a session.
const SessionKeyViewer = "viewer_state"

// loadViewer restores the session's viewer state and refreshes its data
// source list from the store.
func (h *Handlers) loadViewer(c *echo.Context) (*viewer.State, error) {
	ctx := c.Request().Context()
	raw := ""
	if h.Sessions != nil {
		raw = h.Sessions.GetString(ctx, SessionKeyViewer)
	}
	snap, err := viewer.DecodeSnapshot(raw)
	if err != nil {
		c.Logger().Warn("discarding unreadable viewer state", "error", err)
	}
	state := viewer.Restore(snap)

	sources, err := h.Store.ListDataSources(ctx)
	if err != nil {
		return nil, err
	}
	state.SetDataSources(sources)
	return state, nil
}

func (h *Handlers) saveViewer(c *echo.Context, state *viewer.State) {
	if h.Sessions == nil || state == nil {
		return
	}
	raw, err := viewer.EncodeSnapshot(state.Snapshot())
	if err != nil {
		c.Logger().Warn("viewer state not saved", "error", err)
		return
	}
	h.Sessions.Put(c.Request().Context(), SessionKeyViewer, raw)
}

// search loads the selected source's dataset and completes a search in the
// state's mode. It returns the searched inventory before filter was applied
// so dropdown options keep listing every value; it is nil outside cbom mode
// or when no source is selected.
func (h *Handlers) search(ctx context.Context, state *viewer.State, query string, filter cbom.Filter) (*cbom.Inventory, error) {
	state.BeginLoading(query)
	src, ok := state.SelectedDataSource().Get()
	if !ok || h.Cache == nil {
		state.FailLoading()
		return nil, nil
	}
	ds, err := h.Cache.Load(ctx, src.ID)
	if err != nil {
		state.FailLoading()
		return nil, err
	}

	if strings.TrimSpace(query) != "" {
		metrics.DashboardSearchesTotal.WithLabelValues(string(state.SearchMode)).Inc()
	}
	if state.SearchMode == viewer.ModeCryptoMaterials {
		state.CompleteCryptoMaterialsSearch(cbom.SearchMaterials(ds.Materials, query))
		return nil, nil
	}
	searched := cbom.Search(ds.CBOM, query)
	state.CompleteCBOMSearch(filter.Apply(searched))
	return searched, nil
}
