package controller

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/defi-space/indexer/pkg/models"
	"github.com/defi-space/indexer/pkg/store"
)

func (c *Controller) HandlePowerplants(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.Store.ListPowerplants(r.Context(), page.Cursor, page.Limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondPage(w, page, rows, func(p *models.Powerplant) string { return p.Address })
}

func (c *Controller) HandlePowerplant(w http.ResponseWriter, r *http.Request) {
	powerplant, err := c.App.Store.GetPowerplant(r.Context(), mux.Vars(r)["address"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "powerplant not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, powerplant)
}

func (c *Controller) HandlePowerplantReactors(w http.ResponseWriter, r *http.Request) {
	rows, err := c.App.Store.ListReactorsByPowerplant(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": rows})
}

func (c *Controller) HandleReactors(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.Store.ListReactors(r.Context(), page.Cursor, page.Limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondPage(w, page, rows, func(rx *models.Reactor) string { return rx.Address })
}

func (c *Controller) HandleReactor(w http.ResponseWriter, r *http.Request) {
	reactor, err := c.App.Store.GetReactor(r.Context(), mux.Vars(r)["address"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reactor not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, reactor)
}

func (c *Controller) HandleReactorStakes(w http.ResponseWriter, r *http.Request) {
	rows, err := c.App.Store.ListUserStakesByReactor(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": rows})
}

func (c *Controller) HandleStakeEvents(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.Store.ListStakeEventsByReactor(r.Context(), mux.Vars(r)["address"], page.Cursor, page.Limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondPage(w, page, rows, func(e *models.StakeEvent) string {
		return store.EventCursor(e.Block, e.EventIndex)
	})
}

func (c *Controller) HandleRewardEvents(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := c.App.Store.ListRewardEventsByReactor(r.Context(), mux.Vars(r)["address"], page.Cursor, page.Limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondPage(w, page, rows, func(e *models.RewardEvent) string {
		return store.EventCursor(e.Block, e.EventIndex)
	})
}

func (c *Controller) HandleUserStakes(w http.ResponseWriter, r *http.Request) {
	rows, err := c.App.Store.ListUserStakesByUser(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": rows})
}
