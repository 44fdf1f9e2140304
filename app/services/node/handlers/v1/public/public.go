// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hlandauf/namecore/business/sys/validate"
	"github.com/hlandauf/namecore/business/web/errs"
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/namestore"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
	"github.com/hlandauf/namecore/foundation/events"
	"github.com/hlandauf/namecore/foundation/keystore"
	"github.com/hlandauf/namecore/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of name registry endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	KS    *keystore.KeyStore
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
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
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a signed name operation to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "from:nonce", signedTx, "kind", signedTx.Kind, "name", signedTx.Name)
	if err := h.State.SubmitWalletTransaction(signedTx); err != nil {
		return rejection(err)
	}

	resp := struct {
		Status string `json:"status"`
		TxID   string `json:"txid"`
	}{
		Status: "transaction added to mempool",
		TxID:   signedTx.TxID(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// ShowName returns the record of a name, optionally at a past height.
func (h Handlers) ShowName(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := queryHeight(r)
	if err != nil {
		return err
	}

	info, err := h.State.QueryName(nameParam(r), height)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, h.toName(info), http.StatusOK)
}

// History returns every record a name has had.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	history, err := h.State.QueryHistory(nameParam(r))
	if err != nil {
		return err
	}

	out := make([]name, len(history))
	for i, info := range history {
		out[i] = h.toName(info)
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// ListByAddress returns the names currently owned by an address.
func (h Handlers) ListByAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := names.ToAddress(web.Param(r, "address"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	infos := h.State.QueryNamesByAddress(address)

	out := make([]name, len(infos))
	for i, info := range infos {
		out[i] = h.toName(info)
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// Scan walks the registry in name order.
func (h Handlers) Scan(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := scanQuery{
		Start: r.URL.Query().Get("start"),
		Count: 500,
	}
	if s := r.URL.Query().Get("count"); s != "" {
		count, err := strconv.Atoi(s)
		if err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid count: %w", err), http.StatusBadRequest)
		}
		q.Count = count
	}

	if err := validate.Check(q); err != nil {
		return err
	}

	infos := h.State.QueryScan(q.Start, q.Count)

	out := make([]name, len(infos))
	for i, info := range infos {
		out[i] = h.toName(info)
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// Filter searches the active names.
func (h Handlers) Filter(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var q filterQuery
	if err := q.parse(r); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(q); err != nil {
		return err
	}

	infos, err := h.State.QueryFilter(namestore.Filter{
		Pattern: q.Regexp,
		MaxAge:  q.MaxAge,
		From:    q.From,
		Count:   q.Count,
	})
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if q.Stat {
		resp := struct {
			Count  int    `json:"count"`
			Height uint64 `json:"height"`
		}{
			Count:  len(infos),
			Height: h.State.RetrieveLatestBlock().Header.Number,
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}

	out := make([]name, len(infos))
	for i, info := range infos {
		out[i] = h.toName(info)
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// Pending returns the name operations waiting in the mempool.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryPending(), http.StatusOK)
}

// Commitment returns the status of a commitment hash.
func (h Handlers) Commitment(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := names.ToHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	height, err := queryHeight(r)
	if err != nil {
		return err
	}

	status, err := h.State.QueryCommitment(hash, height)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Account returns the nonce and outputs controlled by an address.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := names.ToAddress(web.Param(r, "address"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	acct := h.State.QueryAccount(address)

	resp := account{
		Account: acct,
		KeyName: h.KS.Lookup(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func (h Handlers) toName(info state.NameInfo) name {
	return name{
		Name:       info.Name,
		Value:      info.Value,
		TxID:       info.Owner.TxID,
		Vout:       info.Owner.Index,
		Address:    info.Address,
		KeyName:    h.KS.Lookup(info.Address),
		Height:     info.LastUpdateHeight,
		ExpiresIn:  info.ExpiresIn,
		Expired:    info.Expired,
		Superseded: info.Superseded,
	}
}

// rejection passes registry errors through so they keep their kind and wraps
// anything else as a bad request.
func rejection(err error) error {
	if _, ok := names.KindOf(err); ok {
		return err
	}

	return errs.NewTrusted(err, http.StatusBadRequest)
}

// nameParam reads the catch-all name parameter. Names carry a namespace
// separated by a slash so they can't be a single path segment.
func nameParam(r *http.Request) string {
	return strings.TrimPrefix(web.Param(r, "name"), "/")
}

// queryHeight reads the optional height query parameter.
func queryHeight(r *http.Request) (uint64, error) {
	s := r.URL.Query().Get("height")
	if s == "" {
		return state.QueryLastest, nil
	}

	height, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(errors.New("invalid height"), http.StatusBadRequest)
	}

	return height, nil
}
