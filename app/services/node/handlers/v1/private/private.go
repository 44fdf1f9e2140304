// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/hlandauf/namecore/business/web/errs"
	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/names"
	"github.com/hlandauf/namecore/foundation/blockchain/peer"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
	"github.com/hlandauf/namecore/foundation/web"
	"go.uber.org/zap"
)

// maxGenerate bounds a single generate request.
const maxGenerate = 1000

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// SubmitNodeTransaction adds a transaction shared by a peer to the mempool.
func (h Handlers) SubmitNodeTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Decode the JSON in the post call into a block transaction.
	var tx database.BlockTx
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	// Ask the state package to add this transaction to the mempool and perform
	// any other business logic.
	h.Log.Infow("add tran", "traceid", v.TraceID, "from:nonce", tx, "kind", tx.Kind)
	if err := h.State.UpsertNodeTransaction(tx); err != nil {
		if _, ok := names.KindOf(err); ok {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Decode the JSON in the post call into a file system block.
	var blockData database.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	// Convert the block data into a block. This action will create a merkle
	// tree for the set of transactions required for blockchain operations.
	block, err := database.ToBlock(blockData)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	// Ask the state package to validate the proposed block. If the block
	// passes validation, it will be added to the blockchain database.
	if err := h.State.ProcessProposedBlock(block); err != nil {
		h.Log.Infow("propose block", "traceid", v.TraceID, "number", block.Header.Number, "ERROR", err)

		if errors.Is(err, database.ErrChainForked) {
			if err := h.State.Reorganize(); err != nil {
				h.Log.Errorw("propose block", "traceid", v.TraceID, "status", "reorganize", "ERROR", err)
			}
		}

		return errs.NewTrusted(errors.New("block not accepted"), http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = strconv.FormatUint(state.QueryLastest, 10)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = strconv.FormatUint(state.QueryLastest, 10)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		blockData[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs := h.State.RetrieveMempool()
	return web.Respond(ctx, w, txs, http.StatusOK)
}

// Generate mines the requested number of blocks right away.
func (h Handlers) Generate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	count, err := strconv.Atoi(web.Param(r, "count"))
	if err != nil || count <= 0 || count > maxGenerate {
		return errs.NewTrusted(errors.New("count must be between 1 and 1000"), http.StatusBadRequest)
	}

	blocks, err := h.State.Generate(ctx, count)
	if err != nil {
		return err
	}

	hashes := make([]string, len(blocks))
	for i, block := range blocks {
		hashes[i] = block.Hash()
	}

	return web.Respond(ctx, w, hashes, http.StatusOK)
}

// Rewind removes every block above the requested height.
func (h Handlers) Rewind(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := h.State.Rewind(height); err != nil {
		if errors.Is(err, state.ErrHeightTooHigh) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return err
	}

	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// AddPeer adds a peer to the known peer list.
func (h Handlers) AddPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var pr peer.Peer
	if err := web.Decode(r, &pr); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if pr.Host == "" {
		return errs.NewTrusted(errors.New("host required"), http.StatusBadRequest)
	}

	if !pr.Match(h.State.RetrieveHost()) {
		h.State.AddKnownPeer(pr)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
