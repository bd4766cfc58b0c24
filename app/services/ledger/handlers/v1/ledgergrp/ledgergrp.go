// Package ledgergrp maintains the group of handlers for ledger access.
package ledgergrp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/csbeno10/Kripto/business/core/ledger"
	"github.com/csbeno10/Kripto/business/sys/validate"
	"github.com/csbeno10/Kripto/business/web/errs"
	"github.com/csbeno10/Kripto/foundation/events"
	"github.com/csbeno10/Kripto/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	Ledger      *ledger.Ledger
	Evts        *events.Events
	WS          websocket.Upgrader
	MineTimeout time.Duration
}

// Status returns the height of the chain and the settings it was built with.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	settings := h.Ledger.Settings()
	latest := h.Ledger.Chain().Latest()

	resp := status{
		Height:     h.Ledger.Chain().Len(),
		LatestHash: latest.Hash,
		Difficulty: settings.Difficulty,
		Hash:       settings.Hash,
		Encoding:   settings.Encoding,
		Signer:     settings.Signer,
		Listeners:  h.Evts.Listeners(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Blocks returns every block in the chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.Ledger.Chain().Blocks()

	resp := blockList{
		Total:  len(blocks),
		Blocks: blocks,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Block returns the block at the index in the path.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block index %q", web.Param(r, "index")), http.StatusBadRequest)
	}

	b, exists := h.Ledger.Chain().Block(index)
	if !exists {
		return errs.NotFound(fmt.Errorf("block %d not found", index))
	}

	return web.Respond(ctx, w, b, http.StatusOK)
}

// MineBlock mines a block for the transactions in the payload and appends it
// to the chain.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nb newBlock
	if err := web.Decode(r, &nb); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(nb); err != nil {
		return err
	}

	if h.MineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.MineTimeout)
		defer cancel()
	}

	h.Log.Infow("mine block", "traceid", v.TraceID, "txs", len(nb.Transactions))

	b, err := h.Ledger.Mine(ctx, nb.Transactions)
	if err != nil {
		return fmt.Errorf("mining: %w", err)
	}

	return web.Respond(ctx, w, b, http.StatusCreated)
}

// Verify checks every block in the chain and reports every failure.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Verify(), http.StatusOK)
}

// Proof runs an identity proof with freshly generated public values.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var np newProof
	if r.ContentLength != 0 {
		if err := web.Decode(r, &np); err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	if err := validate.Check(np); err != nil {
		return err
	}

	p, err := h.Ledger.Prove(ctx, np.Rounds)
	if err != nil {
		return fmt.Errorf("proof: %w", err)
	}

	return web.Respond(ctx, w, p, http.StatusOK)
}

// Events handles a web socket to provide the mining narration to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}
