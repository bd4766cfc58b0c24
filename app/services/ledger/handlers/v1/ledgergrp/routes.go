package ledgergrp

import (
	"net/http"
	"time"

	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/csbeno10/Kripto/foundation/events"
	"github.com/csbeno10/Kripto/foundation/web"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log         *zap.SugaredLogger
	Ledger      *ledger.Ledger
	Evts        *events.Events
	MineTimeout time.Duration
}

// Routes binds all the version 1 ledger routes.
func Routes(app *web.App, cfg Config) {
	hdl := Handlers{
		Log:         cfg.Log,
		Ledger:      cfg.Ledger,
		Evts:        cfg.Evts,
		MineTimeout: cfg.MineTimeout,
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/status", hdl.Status)
	app.Handle(http.MethodGet, version, "/blocks", hdl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/:index", hdl.Block)
	app.Handle(http.MethodPost, version, "/blocks", hdl.MineBlock)
	app.Handle(http.MethodGet, version, "/verify", hdl.Verify)
	app.Handle(http.MethodPost, version, "/proof", hdl.Proof)
	app.Handle(http.MethodGet, version, "/events", hdl.Events)
}
