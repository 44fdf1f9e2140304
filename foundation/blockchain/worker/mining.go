package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
	"github.com/hlandauf/namecore/foundation/blockchain/state"
)

// mined is the outcome of a single POW attempt.
type mined struct {
	block    database.Block
	err      error
	duration time.Duration
}

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the pending name operations into a new block. A
// cancel request stops the POW, and this G then holds until the requester
// has finished changing state.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Validate we are allowed to mine and we are not in a resync.
	if !w.state.IsMiningAllowed() {
		w.evHandler("worker: runMiningOperation: MINING: turned off")
		return
	}

	if length := w.state.QueryMempoolLength(); length == 0 {
		w.evHandler("worker: runMiningOperation: MINING: no transactions to mine: Txs[%d]", length)
		return
	}

	// A cancel left over from a request that happened while we were idle
	// has nothing to stop.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := make(chan mined, 1)
	go func() {
		t := time.Now()
		block, err := w.state.MineNewBlock(ctx)
		result <- mined{block: block, err: err, duration: time.Since(t)}
	}()

	select {
	case res := <-result:
		w.minedBlock(res)

	case wait := <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		cancel()
		w.minedBlock(<-result)

		w.evHandler("worker: runMiningOperation: MINING: termination signal: waiting")
		<-wait
		w.evHandler("worker: runMiningOperation: MINING: termination signal: received")
	}

	// Operations may still be waiting, either left out of a full block or
	// submitted while we were mining.
	if length := w.state.QueryMempoolLength(); length > 0 {
		w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: Txs[%d]", length)
		w.SignalStartMining()
	}
}

// minedBlock reports the outcome of a POW attempt and proposes a solved
// block to the network.
func (w *Worker) minedBlock(res mined) {
	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", res.duration)

	switch {
	case errors.Is(res.err, state.ErrNoTransactions):
		w.evHandler("worker: runMiningOperation: MINING: WARNING: no transactions in mempool")
		return

	case errors.Is(res.err, context.Canceled):
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		return

	case res.err != nil:
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", res.err)
		return
	}

	status := w.state.RetrieveStatus()
	w.evHandler("worker: runMiningOperation: MINING: block[%d]: txs[%d]: names[%d]: pending commitments[%d]",
		res.block.Header.Number, len(res.block.Values()), status.Names, status.PendingCommitments)

	// Propose the new block to the network. Log the error, but that's it.
	if err := w.state.NetSendBlockToPeers(res.block); err != nil {
		w.evHandler("worker: runMiningOperation: MINING: proposeBlockToPeers: WARNING %s", err)
	}
}
