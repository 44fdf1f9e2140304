// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hlandauf/namecore/app/services/node/handlers/v1/private"
	"github.com/hlandauf/namecore/app/services/node/handlers/v1/public"
	"github.com/hlandauf/namecore/business/sys/metrics"
	"github.com/hlandauf/namecore/business/web/mid"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
	"github.com/hlandauf/namecore/foundation/events"
	"github.com/hlandauf/namecore/foundation/keystore"
	"github.com/hlandauf/namecore/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log       *zap.SugaredLogger
	State     *state.State
	KS        *keystore.KeyStore
	Evts      *events.Events
	Metrics   *metrics.Metrics
	RateLimit mid.RateLimitConfig
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		KS:    cfg.KS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	limit := mid.RateLimit(cfg.RateLimit, cfg.Metrics)

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/names/show/*name", pbl.ShowName)
	app.Handle(http.MethodGet, version, "/names/history/*name", pbl.History)
	app.Handle(http.MethodGet, version, "/names/scan", pbl.Scan)
	app.Handle(http.MethodGet, version, "/names/filter", pbl.Filter)
	app.Handle(http.MethodGet, version, "/names/pending", pbl.Pending)
	app.Handle(http.MethodGet, version, "/names/list/:address", pbl.ListByAddress)
	app.Handle(http.MethodGet, version, "/commitments/:hash", pbl.Commitment)
	app.Handle(http.MethodGet, version, "/accounts/:address", pbl.Account)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction, limit)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/node/block/list/:from/:to", prv.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/node/tx/list", prv.Mempool)
	app.Handle(http.MethodPost, version, "/node/block/propose", prv.ProposeBlock)
	app.Handle(http.MethodPost, version, "/node/tx/submit", prv.SubmitNodeTransaction)
	app.Handle(http.MethodPost, version, "/node/peers", prv.AddPeer)
	app.Handle(http.MethodPost, version, "/node/generate/:count", prv.Generate)
	app.Handle(http.MethodPost, version, "/node/rewind/:height", prv.Rewind)
}
