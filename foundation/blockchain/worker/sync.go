package worker

import (
	"errors"

	"github.com/hlandauf/namecore/foundation/blockchain/database"
)

// Sync updates the peer list, mempool and blocks.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, peer := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(peer)
		if err != nil {
			w.evHandler("worker: sync: NetRequestPeerStatus: %s: ERROR: %s", peer.Host, err)
			continue
		}

		// Add new peers to this nodes list.
		w.addNewPeers(peerStatus.KnownPeers)

		// Retrieve the mempool from the peer. Operations that conflict with
		// ones already pending here are skipped.
		pool, err := w.state.NetRequestPeerMempool(peer)
		if err != nil {
			w.evHandler("worker: sync: NetRequestPeerMempool: %s: ERROR: %s", peer.Host, err)
		}
		for _, tx := range pool {
			if err := w.state.UpsertNodeTransaction(tx); err != nil {
				w.evHandler("worker: sync: NetRequestPeerMempool: %s: tx[%s]: skipped: %s", peer.Host, tx, err)
			}
		}

		// If this peer has blocks we don't have, we need to add them.
		if peerStatus.Behind(w.state.RetrieveLatestBlock().Header.Number) {
			w.evHandler("worker: sync: NetRequestPeerBlocks: %s: latestBlockNumber[%d]", peer.Host, peerStatus.LatestBlockNumber)

			if err := w.state.NetRequestPeerBlocks(peer); err != nil {
				w.evHandler("worker: sync: NetRequestPeerBlocks: %s: ERROR %s", peer.Host, err)

				if errors.Is(err, database.ErrChainForked) {
					if err := w.state.Reorganize(); err != nil {
						w.evHandler("worker: sync: Reorganize: ERROR %s", err)
					}
					return
				}
			}
		}
	}
}
