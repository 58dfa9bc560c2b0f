package controller

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/defi-space/indexer/app/query/types"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")

	r.HandleFunc("/factories", c.HandleFactories).Methods("GET")
	r.HandleFunc("/factories/{address}", c.HandleFactory).Methods("GET")
	r.HandleFunc("/factories/{address}/pairs", c.HandleFactoryPairs).Methods("GET")

	r.HandleFunc("/pairs", c.HandlePairs).Methods("GET")
	r.HandleFunc("/pairs/{address}", c.HandlePair).Methods("GET")
	r.HandleFunc("/pairs/{address}/positions", c.HandlePairPositions).Methods("GET")
	r.HandleFunc("/pairs/{address}/liquidity-events", c.HandleLiquidityEvents).Methods("GET")
	r.HandleFunc("/pairs/{address}/swaps", c.HandleSwapEvents).Methods("GET")

	r.HandleFunc("/powerplants", c.HandlePowerplants).Methods("GET")
	r.HandleFunc("/powerplants/{address}", c.HandlePowerplant).Methods("GET")
	r.HandleFunc("/powerplants/{address}/reactors", c.HandlePowerplantReactors).Methods("GET")

	r.HandleFunc("/reactors", c.HandleReactors).Methods("GET")
	r.HandleFunc("/reactors/{address}", c.HandleReactor).Methods("GET")
	r.HandleFunc("/reactors/{address}/stakes", c.HandleReactorStakes).Methods("GET")
	r.HandleFunc("/reactors/{address}/stake-events", c.HandleStakeEvents).Methods("GET")
	r.HandleFunc("/reactors/{address}/reward-events", c.HandleRewardEvents).Methods("GET")

	r.HandleFunc("/users/{address}/positions", c.HandleUserPositions).Methods("GET")
	r.HandleFunc("/users/{address}/stakes", c.HandleUserStakes).Methods("GET")

	r.HandleFunc("/ws", c.HandleWebSocket)

	return r, nil
}
