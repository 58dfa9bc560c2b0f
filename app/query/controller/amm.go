package controller

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

// respondPage trims a limit+1 query result down to the page and derives the
// next cursor from the last row.
func respondPage[T any](w http.ResponseWriter, page pageSpec, rows []T, cursorOf func(T) string) {
	nextCursor := (*string)(nil)
	if len(rows) > page.Limit {
		rows = rows[:page.Limit]
		cursor := cursorOf(rows[len(rows)-1])
		nextCursor = &cursor
	}

	writeJSON(w, http.StatusOK, pagedResponse[T]{
		Data:       rows,
		Limit:      page.Limit,
		NextCursor: nextCursor,
	})
}

func (c *Controller) HandleFactories(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.Store.ListFactories(r.Context(), page.Cursor, page.Limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondPage(w, page, rows, func(f *models.Factory) string { return f.Address })
}

func (c *Controller) HandleFactory(w http.ResponseWriter, r *http.Request) {
	factory, err := c.App.Store.GetFactory(r.Context(), mux.Vars(r)["address"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "factory not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, factory)
}

func (c *Controller) HandleFactoryPairs(w http.ResponseWriter, r *http.Request) {
	rows, err := c.App.Store.ListPairsByFactory(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": rows})
}

func (c *Controller) HandlePairs(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.Store.ListPairs(r.Context(), page.Cursor, page.Limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondPage(w, page, rows, func(p *models.Pair) string { return p.Address })
}

func (c *Controller) HandlePair(w http.ResponseWriter, r *http.Request) {
	pair, err := c.App.Store.GetPair(r.Context(), mux.Vars(r)["address"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "pair not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (c *Controller) HandlePairPositions(w http.ResponseWriter, r *http.Request) {
	rows, err := c.App.Store.ListLiquidityPositionsByPair(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": rows})
}

func (c *Controller) HandleLiquidityEvents(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.Store.ListLiquidityEventsByPair(r.Context(), mux.Vars(r)["address"], page.Cursor, page.Limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondPage(w, page, rows, func(e *models.LiquidityEvent) string {
		return store.EventCursor(e.Block, e.EventIndex)
	})
}

func (c *Controller) HandleSwapEvents(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.Store.ListSwapEventsByPair(r.Context(), mux.Vars(r)["address"], page.Cursor, page.Limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondPage(w, page, rows, func(e *models.SwapEvent) string {
		return store.EventCursor(e.Block, e.EventIndex)
	})
}

func (c *Controller) HandleUserPositions(w http.ResponseWriter, r *http.Request) {
	rows, err := c.App.Store.ListLiquidityPositionsByUser(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": rows})
}
