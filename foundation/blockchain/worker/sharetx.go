package worker

import (
	"github.com/hlandauf/namecore/foundation/blockchain/database"
)

// maxTxShareRequests bounds the number of name operations waiting to be
// relayed. Operations arriving while the queue is full are not relayed.
const maxTxShareRequests = 100

// =============================================================================

// SignalShareTx queues a name operation accepted into the mempool so it can
// be relayed to the known peers.
func (w *Worker) SignalShareTx(blockTx database.BlockTx) {
	select {
	case w.txSharing <- blockTx:
		w.evHandler("worker: SignalShareTx: tx[%s]: kind[%s]: queued", blockTx, blockTx.Kind)
	default:
		w.evHandler("worker: SignalShareTx: tx[%s]: relay queue full, dropped", blockTx)
	}
}

// shareTxOperations relays queued name operations until shutdown.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if w.isShutdown() {
				continue
			}
			w.state.NetSendTxToPeers(tx)

		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}
